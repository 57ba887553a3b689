package driver

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"costguard/internal/tags"
)

// EC2API is the subset of the EC2 client the driver needs. Tests use fakes.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
}

// EC2Driver lists instances carrying the scheduler tag and starts/stops them.
type EC2Driver struct {
	api    EC2API
	tagKey string
}

func NewEC2(api EC2API, schedulerTagKey string) *EC2Driver {
	return &EC2Driver{api: api, tagKey: schedulerTagKey}
}

func (d *EC2Driver) Kind() string { return "ec2" }

// List describes all instances carrying the scheduler tag, any value.
// Terminated instances are dropped here; everything else is reported with
// its mapped state.
func (d *EC2Driver) List(ctx context.Context) ([]Resource, error) {
	var out []Resource
	var token *string
	for {
		resp, err := d.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			Filters: []ec2types.Filter{
				{Name: aws.String("tag:" + d.tagKey), Values: []string{"*"}},
			},
			NextToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("ec2 describe instances: %w", err)
		}
		for _, res := range resp.Reservations {
			for _, inst := range res.Instances {
				state := mapEC2State(inst.State)
				if state == stateTerminated {
					continue
				}
				out = append(out, Resource{
					ID:    aws.ToString(inst.InstanceId),
					State: state,
					Tags:  ec2Tags(inst.Tags),
				})
			}
		}
		token = resp.NextToken
		if token == nil {
			return out, nil
		}
	}
}

func (d *EC2Driver) Start(ctx context.Context, id string) error {
	_, err := d.api.StartInstances(ctx, &ec2.StartInstancesInput{InstanceIds: []string{id}})
	if err != nil {
		return fmt.Errorf("ec2 start %s: %w", id, err)
	}
	return nil
}

func (d *EC2Driver) Stop(ctx context.Context, id string) error {
	_, err := d.api.StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{id}})
	if err != nil {
		return fmt.Errorf("ec2 stop %s: %w", id, err)
	}
	return nil
}

// stateTerminated is internal to List; terminated instances never surface.
const stateTerminated State = -1

func mapEC2State(s *ec2types.InstanceState) State {
	if s == nil {
		return StateUnknown
	}
	switch s.Name {
	case ec2types.InstanceStateNameRunning:
		return StateRunning
	case ec2types.InstanceStateNameStopped:
		return StateStopped
	case ec2types.InstanceStateNameTerminated:
		return stateTerminated
	case ec2types.InstanceStateNamePending,
		ec2types.InstanceStateNameStopping,
		ec2types.InstanceStateNameShuttingDown:
		return StateTransitioning
	default:
		return StateUnknown
	}
}

func ec2Tags(in []ec2types.Tag) tags.Map {
	pairs := make([]tags.Pair, 0, len(in))
	for _, t := range in {
		pairs = append(pairs, tags.Pair{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}
	return tags.FromPairs(pairs)
}
