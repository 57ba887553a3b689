package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"costguard/internal/sweep"
)

func sampleSummary() sweep.Summary {
	return sweep.Summary{
		Time:     time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		Duration: 2 * time.Second,
		Kinds: map[string]sweep.KindCounts{
			"ec2": {Processed: 5, Started: 2, Stopped: 1},
			"rds": {Processed: 1, Stopped: 1},
		},
		Errors: []string{"one", "two"},
	}
}

func TestObserveSweep(t *testing.T) {
	t.Parallel()
	m := NewMetrics()
	m.ObserveSweep(sampleSummary())

	if got := testutil.ToFloat64(m.sweepsTotal); got != 1 {
		t.Fatalf("sweeps_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal); got != 2 {
		t.Fatalf("errors_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.actionsTotal.WithLabelValues("ec2", "start")); got != 2 {
		t.Fatalf("actions{ec2,start} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.actionsTotal.WithLabelValues("rds", "stop")); got != 1 {
		t.Fatalf("actions{rds,stop} = %v, want 1", got)
	}
}

type fakeCW struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCW) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestPublishSweep(t *testing.T) {
	t.Parallel()
	api := &fakeCW{}
	p := NewCloudWatchPublisher(api)

	if err := p.PublishSweep(context.Background(), sampleSummary()); err != nil {
		t.Fatalf("PublishSweep error: %v", err)
	}
	if len(api.inputs) != 1 {
		t.Fatalf("calls = %d, want 1", len(api.inputs))
	}
	in := api.inputs[0]
	if aws.ToString(in.Namespace) != Namespace {
		t.Fatalf("namespace = %q", aws.ToString(in.Namespace))
	}
	byName := map[string]float64{}
	for _, d := range in.MetricData {
		byName[aws.ToString(d.MetricName)] = aws.ToFloat64(d.Value)
	}
	if byName["ResourcesProcessed"] != 6 || byName["ResourcesStarted"] != 2 ||
		byName["ResourcesStopped"] != 2 || byName["Errors"] != 2 {
		t.Fatalf("metric data = %v", byName)
	}
}
