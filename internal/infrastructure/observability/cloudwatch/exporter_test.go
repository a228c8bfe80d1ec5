package cloudwatch

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
)

func sampleCluster() *health.ClusterHealth {
	return &health.ClusterHealth{
		CheckID:   "test-check",
		Timestamp: time.Now(),
		Nodes: []*health.NodeHealth{
			{
				Name:          "web-1",
				Platform:      "linux",
				Reachable:     true,
				CPUPercent:    25.0,
				CPUCount:      4,
				LoadAverage:   [3]float64{2.0, 1.5, 1.0},
				MemoryPercent: 40.0,
				DiskPercent:   50.0,
				Thresholds:    health.DefaultThresholds(),
			},
			{
				Name:         "db-1",
				Platform:     "linux",
				Reachable:    false,
				ErrorMessage: "Connection timeout",
			},
		},
	}
}

func TestBuildClusterData(t *testing.T) {
	data := buildClusterData(sampleCluster())

	// reachable node: 5 gauges, unreachable node: 1, cluster: 4
	if len(data) != 10 {
		t.Fatalf("got %d data points, want 10", len(data))
	}

	byName := make(map[string]float64)
	for _, datum := range data {
		byName[*datum.MetricName] = *datum.Value
	}

	if byName["MemoryPercent"] != 40.0 {
		t.Errorf("MemoryPercent = %v", byName["MemoryPercent"])
	}
	if byName["NormalizedLoad"] != 0.5 {
		t.Errorf("NormalizedLoad = %v, want 0.5 (2.0 load / 4 cores)", byName["NormalizedLoad"])
	}
	if byName["HealthyNodes"] != 1 || byName["CriticalNodes"] != 1 || byName["TotalNodes"] != 2 {
		t.Errorf("cluster counts = healthy %v / critical %v / total %v",
			byName["HealthyNodes"], byName["CriticalNodes"], byName["TotalNodes"])
	}
}

func TestBuildClusterData_UnreachableSkipsMetricGauges(t *testing.T) {
	data := buildClusterData(sampleCluster())

	for _, datum := range data {
		if *datum.MetricName != "NodeReachable" {
			continue
		}
		for _, dim := range datum.Dimensions {
			if *dim.Name == "NodeName" && *dim.Value == "db-1" && *datum.Value != 0 {
				t.Errorf("unreachable node reported NodeReachable=%v", *datum.Value)
			}
		}
	}
}

type fakeCloudWatch struct {
	calls  int
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, input *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.calls++
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestExporter_ExportClusterHealth(t *testing.T) {
	fake := &fakeCloudWatch{}
	exporter := &Exporter{client: fake, namespace: "NodeHealthMonitor/Test"}

	if err := exporter.ExportClusterHealth(context.Background(), sampleCluster()); err != nil {
		t.Fatalf("ExportClusterHealth: %v", err)
	}

	if fake.calls != 1 {
		t.Fatalf("PutMetricData called %d times, want 1", fake.calls)
	}
	if *fake.inputs[0].Namespace != "NodeHealthMonitor/Test" {
		t.Errorf("namespace = %q", *fake.inputs[0].Namespace)
	}
}
