// Package lifecycle optimizes S3 storage costs: it ensures buckets carry a
// transition policy (IA -> Glacier -> Deep Archive plus multipart-upload
// abort), cleans up stale incomplete uploads, and estimates monthly savings.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"costguard/internal/clock"
	"costguard/internal/eventbus"
	logx "costguard/pkg/logx"
)

// Config controls the optimizer. Zero day thresholds take the defaults.
type Config struct {
	DryRun               bool
	DaysIA               int // default 30
	DaysGlacier          int // default 90
	DaysDeepArchive      int // default 365
	IncompleteUploadDays int // default 7
	OldVersionDays       int // default 90
}

func (c Config) withDefaults() Config {
	if c.DaysIA <= 0 {
		c.DaysIA = 30
	}
	if c.DaysGlacier <= 0 {
		c.DaysGlacier = 90
	}
	if c.DaysDeepArchive <= 0 {
		c.DaysDeepArchive = 365
	}
	if c.IncompleteUploadDays <= 0 {
		c.IncompleteUploadDays = 7
	}
	if c.OldVersionDays <= 0 {
		c.OldVersionDays = 90
	}
	return c
}

// S3API is the subset of the S3 client the optimizer needs.
type S3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetBucketLifecycleConfiguration(ctx context.Context, params *s3.GetBucketLifecycleConfigurationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLifecycleConfigurationOutput, error)
	PutBucketLifecycleConfiguration(ctx context.Context, params *s3.PutBucketLifecycleConfigurationInput, optFns ...func(*s3.Options)) (*s3.PutBucketLifecycleConfigurationOutput, error)
	GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
	ListMultipartUploads(ctx context.Context, params *s3.ListMultipartUploadsInput, optFns ...func(*s3.Options)) (*s3.ListMultipartUploadsOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// MetricsAPI provides bucket size lookups for savings estimates.
type MetricsAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// Report is the outcome of one optimization pass.
type Report struct {
	Time             time.Time `json:"time"`
	DryRun           bool      `json:"dry_run"`
	BucketsProcessed int       `json:"buckets_processed"`
	PoliciesCreated  int       `json:"policies_created"`
	UploadsCleaned   int       `json:"uploads_cleaned"`
	EmptyBuckets     int       `json:"empty_buckets"`
	EstimatedSavings float64   `json:"estimated_savings"` // USD per month
	Actions          []string  `json:"actions"`
	Errors           []string  `json:"errors"`
}

func (r Report) Active() bool { return len(r.Actions) > 0 || len(r.Errors) > 0 }

// Optimizer runs the per-bucket optimization batch.
type Optimizer struct {
	cfg Config
	s3  S3API
	cw  MetricsAPI
	clk clock.Clock
	bus eventbus.Bus
	log logx.Logger
}

func NewOptimizer(cfg Config, s3api S3API, cw MetricsAPI, clk clock.Clock, bus eventbus.Bus, log logx.Logger) *Optimizer {
	if clk == nil {
		clk = clock.System()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Optimizer{cfg: cfg.withDefaults(), s3: s3api, cw: cw, clk: clk, bus: bus, log: log}
}

// Run optimizes every bucket. Per-bucket failures are recorded and the batch
// continues.
func (o *Optimizer) Run(ctx context.Context) Report {
	rep := Report{Time: o.clk.Now(), DryRun: o.cfg.DryRun}

	resp, err := o.s3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		rep.Errors = append(rep.Errors, fmt.Sprintf("Error listing buckets: %v", err))
		return rep
	}

	for _, b := range resp.Buckets {
		name := aws.ToString(b.Name)
		if err := o.optimizeBucket(ctx, name, &rep); err != nil {
			rep.Errors = append(rep.Errors, fmt.Sprintf("Error processing bucket %s: %v", name, err))
			o.log.Error("bucket optimization failed", logx.String("bucket", name), logx.Err(err))
		}
		rep.BucketsProcessed++
	}

	if o.bus != nil {
		o.bus.Publish(eventbus.Event{Type: eventbus.TypeLifecycleDone, Data: rep})
	}
	o.log.Info("lifecycle optimization completed",
		logx.Int("buckets", rep.BucketsProcessed),
		logx.Int("policies", rep.PoliciesCreated),
		logx.Float64("savings", rep.EstimatedSavings),
		logx.Bool("dry_run", rep.DryRun))
	return rep
}

func (o *Optimizer) optimizeBucket(ctx context.Context, name string, rep *Report) error {
	empty, err := o.isBucketEmpty(ctx, name)
	if err != nil {
		return err
	}
	if empty {
		rep.EmptyBuckets++
		rep.Actions = append(rep.Actions, fmt.Sprintf("Bucket %s is empty - consider deletion", name))
		return nil
	}

	optimal, err := o.hasOptimalPolicy(ctx, name)
	if err != nil {
		return err
	}
	if !optimal {
		if !o.cfg.DryRun {
			if err := o.putPolicy(ctx, name); err != nil {
				return err
			}
		}
		rep.PoliciesCreated++
		rep.Actions = append(rep.Actions, fmt.Sprintf("Created/Updated lifecycle policy for %s", name))
	}

	stale, err := o.staleUploads(ctx, name)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		if !o.cfg.DryRun {
			o.abortUploads(ctx, name, stale)
		}
		rep.UploadsCleaned += len(stale)
		rep.Actions = append(rep.Actions, fmt.Sprintf("Cleaned %d incomplete uploads in %s", len(stale), name))
		// Rough per-upload storage cost.
		rep.EstimatedSavings += float64(len(stale)) * 0.023
	}

	if sizeGB, ok := o.bucketSizeGB(ctx, name); ok {
		if savings := transitionSavings(sizeGB); savings > 0 {
			rep.EstimatedSavings += savings
			rep.Actions = append(rep.Actions,
				fmt.Sprintf("Estimated $%.2f/month savings from transitions in %s", savings, name))
		}
	}
	return nil
}

func (o *Optimizer) isBucketEmpty(ctx context.Context, name string) (bool, error) {
	resp, err := o.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(name),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list objects: %w", err)
	}
	return len(resp.Contents) == 0, nil
}

// hasOptimalPolicy reports whether the bucket already has an enabled rule set
// covering an IA transition, an archive transition, and multipart cleanup.
func (o *Optimizer) hasOptimalPolicy(ctx context.Context, name string) (bool, error) {
	resp, err := o.s3.GetBucketLifecycleConfiguration(ctx, &s3.GetBucketLifecycleConfigurationInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchLifecycleConfiguration" {
			return false, nil
		}
		return false, fmt.Errorf("get lifecycle: %w", err)
	}

	var hasIA, hasArchive, hasAbort bool
	for _, rule := range resp.Rules {
		if rule.Status != s3types.ExpirationStatusEnabled {
			continue
		}
		for _, t := range rule.Transitions {
			switch t.StorageClass {
			case s3types.TransitionStorageClassStandardIa, s3types.TransitionStorageClassOnezoneIa:
				hasIA = true
			case s3types.TransitionStorageClassGlacier, s3types.TransitionStorageClassDeepArchive:
				hasArchive = true
			}
		}
		if rule.AbortIncompleteMultipartUpload != nil {
			hasAbort = true
		}
	}
	return hasIA && hasArchive && hasAbort, nil
}

func (o *Optimizer) putPolicy(ctx context.Context, name string) error {
	rule := s3types.LifecycleRule{
		ID:     aws.String("OptimizationRule"),
		Status: s3types.ExpirationStatusEnabled,
		Filter: &s3types.LifecycleRuleFilter{Prefix: aws.String("")},
		Transitions: []s3types.Transition{
			{Days: aws.Int32(int32(o.cfg.DaysIA)), StorageClass: s3types.TransitionStorageClassStandardIa},
			{Days: aws.Int32(int32(o.cfg.DaysGlacier)), StorageClass: s3types.TransitionStorageClassGlacier},
			{Days: aws.Int32(int32(o.cfg.DaysDeepArchive)), StorageClass: s3types.TransitionStorageClassDeepArchive},
		},
		AbortIncompleteMultipartUpload: &s3types.AbortIncompleteMultipartUpload{
			DaysAfterInitiation: aws.Int32(int32(o.cfg.IncompleteUploadDays)),
		},
	}

	versioned, err := o.isVersioningEnabled(ctx, name)
	if err != nil {
		o.log.Warn("versioning check failed; skipping noncurrent rules",
			logx.String("bucket", name), logx.Err(err))
	}
	if versioned {
		rule.NoncurrentVersionTransitions = []s3types.NoncurrentVersionTransition{
			{NoncurrentDays: aws.Int32(int32(o.cfg.DaysIA)), StorageClass: s3types.TransitionStorageClassStandardIa},
			{NoncurrentDays: aws.Int32(int32(o.cfg.DaysGlacier)), StorageClass: s3types.TransitionStorageClassGlacier},
		}
		rule.NoncurrentVersionExpiration = &s3types.NoncurrentVersionExpiration{
			NoncurrentDays: aws.Int32(int32(o.cfg.OldVersionDays)),
		}
	}

	_, err = o.s3.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket:                 aws.String(name),
		LifecycleConfiguration: &s3types.BucketLifecycleConfiguration{Rules: []s3types.LifecycleRule{rule}},
	})
	if err != nil {
		return fmt.Errorf("put lifecycle: %w", err)
	}
	return nil
}

func (o *Optimizer) isVersioningEnabled(ctx context.Context, name string) (bool, error) {
	resp, err := o.s3.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(name)})
	if err != nil {
		return false, err
	}
	return resp.Status == s3types.BucketVersioningStatusEnabled, nil
}

type upload struct {
	key      string
	uploadID string
}

func (o *Optimizer) staleUploads(ctx context.Context, name string) ([]upload, error) {
	cutoff := o.clk.Now().Add(-time.Duration(o.cfg.IncompleteUploadDays) * 24 * time.Hour)
	var stale []upload
	var keyMarker, idMarker *string
	for {
		resp, err := o.s3.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{
			Bucket:         aws.String(name),
			KeyMarker:      keyMarker,
			UploadIdMarker: idMarker,
		})
		if err != nil {
			return nil, fmt.Errorf("list multipart uploads: %w", err)
		}
		for _, u := range resp.Uploads {
			if u.Initiated != nil && u.Initiated.Before(cutoff) {
				stale = append(stale, upload{key: aws.ToString(u.Key), uploadID: aws.ToString(u.UploadId)})
			}
		}
		if !aws.ToBool(resp.IsTruncated) {
			return stale, nil
		}
		keyMarker = resp.NextKeyMarker
		idMarker = resp.NextUploadIdMarker
	}
}

func (o *Optimizer) abortUploads(ctx context.Context, name string, uploads []upload) {
	for _, u := range uploads {
		_, err := o.s3.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(name),
			Key:      aws.String(u.key),
			UploadId: aws.String(u.uploadID),
		})
		if err != nil {
			o.log.Warn("abort upload failed",
				logx.String("bucket", name), logx.String("key", u.key), logx.Err(err))
		}
	}
}

// bucketSizeGB reads the StandardStorage size from CloudWatch. Missing
// datapoints just mean no estimate.
func (o *Optimizer) bucketSizeGB(ctx context.Context, name string) (float64, bool) {
	if o.cw == nil {
		return 0, false
	}
	now := o.clk.Now()
	resp, err := o.cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/S3"),
		MetricName: aws.String("BucketSizeBytes"),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("BucketName"), Value: aws.String(name)},
			{Name: aws.String("StorageType"), Value: aws.String("StandardStorage")},
		},
		StartTime:  aws.Time(now.Add(-24 * time.Hour)),
		EndTime:    aws.Time(now),
		Period:     aws.Int32(86400),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil || len(resp.Datapoints) == 0 {
		return 0, false
	}
	return aws.ToFloat64(resp.Datapoints[0].Average) / (1 << 30), true
}

// transitionSavings estimates the monthly saving of moving aged data out of
// Standard, assuming 30% migrates to IA and 50% to Glacier. Buckets under
// 1 GB are ignored.
func transitionSavings(sizeGB float64) float64 {
	if sizeGB < 1 {
		return 0
	}
	const (
		standard = 0.023  // USD/GB/month
		ia       = 0.0125 // USD/GB/month
		glacier  = 0.004  // USD/GB/month
	)
	s := (standard-ia)*0.3*sizeGB + (standard-glacier)*0.5*sizeGB
	if s < 0 {
		return 0
	}
	return s
}
