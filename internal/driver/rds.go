package driver

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"costguard/internal/tags"
)

// RDSAPI is the subset of the RDS client the driver needs.
type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	ListTagsForResource(ctx context.Context, params *rds.ListTagsForResourceInput, optFns ...func(*rds.Options)) (*rds.ListTagsForResourceOutput, error)
	StartDBInstance(ctx context.Context, params *rds.StartDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error)
	StopDBInstance(ctx context.Context, params *rds.StopDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error)
}

// RDSDriver lists database instances and starts/stops them. RDS has no
// server-side tag filter on DescribeDBInstances, so tags are fetched per
// instance; a tag fetch failure surfaces on the resource as TagsErr.
type RDSDriver struct {
	api RDSAPI
}

func NewRDS(api RDSAPI) *RDSDriver {
	return &RDSDriver{api: api}
}

func (d *RDSDriver) Kind() string { return "rds" }

// List describes all DB instances. Multi-AZ instances cannot be stopped and
// are dropped here.
func (d *RDSDriver) List(ctx context.Context) ([]Resource, error) {
	var out []Resource
	var marker *string
	for {
		resp, err := d.api.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			return nil, fmt.Errorf("rds describe instances: %w", err)
		}
		for _, inst := range resp.DBInstances {
			if aws.ToBool(inst.MultiAZ) {
				continue
			}
			r := Resource{
				ID:    aws.ToString(inst.DBInstanceIdentifier),
				State: mapRDSStatus(aws.ToString(inst.DBInstanceStatus)),
			}
			tl, err := d.api.ListTagsForResource(ctx, &rds.ListTagsForResourceInput{
				ResourceName: inst.DBInstanceArn,
			})
			if err != nil {
				r.TagsErr = fmt.Errorf("rds tags %s: %w", r.ID, err)
			} else {
				r.Tags = rdsTags(tl.TagList)
			}
			out = append(out, r)
		}
		marker = resp.Marker
		if marker == nil {
			return out, nil
		}
	}
}

func (d *RDSDriver) Start(ctx context.Context, id string) error {
	_, err := d.api.StartDBInstance(ctx, &rds.StartDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("rds start %s: %w", id, err)
	}
	return nil
}

func (d *RDSDriver) Stop(ctx context.Context, id string) error {
	_, err := d.api.StopDBInstance(ctx, &rds.StopDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("rds stop %s: %w", id, err)
	}
	return nil
}

func mapRDSStatus(status string) State {
	switch status {
	case "available":
		return StateRunning
	case "stopped":
		return StateStopped
	case "creating", "starting", "stopping", "rebooting", "modifying", "backing-up":
		return StateTransitioning
	default:
		return StateUnknown
	}
}

func rdsTags(in []rdstypes.Tag) tags.Map {
	pairs := make([]tags.Pair, 0, len(in))
	for _, t := range in {
		pairs = append(pairs, tags.Pair{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}
	return tags.FromPairs(pairs)
}
