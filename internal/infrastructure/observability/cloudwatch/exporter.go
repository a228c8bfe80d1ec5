package cloudwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
)

const (
	// CloudWatch limits
	maxMetricsPerRequest = 1000
	maxRetries           = 3
	initialBackoff       = 100 * time.Millisecond
)

// ExporterConfig holds configuration for the CloudWatch exporter.
type ExporterConfig struct {
	Namespace       string // CloudWatch namespace (e.g., "NodeHealthMonitor/Cluster")
	Region          string // AWS region (e.g., "us-east-1")
	Endpoint        string // Optional endpoint override (for LocalStack)
	AccessKeyID     string // AWS access key
	SecretAccessKey string // AWS secret key
}

// cloudwatchAPI is the subset of the CloudWatch client the exporter uses.
type cloudwatchAPI interface {
	PutMetricData(ctx context.Context, input *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Exporter publishes per-node and cluster-level gauges to CloudWatch
// after each check pass.
type Exporter struct {
	client    cloudwatchAPI
	namespace string
}

// NewExporter creates a CloudWatch exporter.
func NewExporter(ctx context.Context, cfg ExporterConfig) (*Exporter, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	return &Exporter{
		client:    cloudwatch.NewFromConfig(awsCfg),
		namespace: cfg.Namespace,
	}, nil
}

// ExportClusterHealth publishes gauges for every node plus cluster totals.
func (e *Exporter) ExportClusterHealth(ctx context.Context, cluster *health.ClusterHealth) error {
	data := buildClusterData(cluster)

	for i := 0; i < len(data); i += maxMetricsPerRequest {
		end := i + maxMetricsPerRequest
		if end > len(data) {
			end = len(data)
		}
		if err := e.putWithRetry(ctx, data[i:end]); err != nil {
			return fmt.Errorf("failed to publish chunk: %w", err)
		}
	}
	return nil
}

// buildClusterData converts a cluster snapshot to CloudWatch metric data.
func buildClusterData(cluster *health.ClusterHealth) []types.MetricDatum {
	timestamp := aws.Time(cluster.Timestamp)
	data := make([]types.MetricDatum, 0, len(cluster.Nodes)*5+4)

	for _, node := range cluster.Nodes {
		dimensions := []types.Dimension{
			{Name: aws.String("NodeName"), Value: aws.String(node.Name)},
			{Name: aws.String("Platform"), Value: aws.String(node.Platform)},
		}

		reachable := 0.0
		if node.Reachable {
			reachable = 1.0
		}
		data = append(data, types.MetricDatum{
			MetricName: aws.String("NodeReachable"),
			Value:      aws.Float64(reachable),
			Unit:       types.StandardUnitCount,
			Timestamp:  timestamp,
			Dimensions: dimensions,
		})

		if !node.Reachable {
			continue
		}

		data = append(data,
			types.MetricDatum{
				MetricName: aws.String("MemoryPercent"),
				Value:      aws.Float64(node.MemoryPercent),
				Unit:       types.StandardUnitPercent,
				Timestamp:  timestamp,
				Dimensions: dimensions,
			},
			types.MetricDatum{
				MetricName: aws.String("DiskPercent"),
				Value:      aws.Float64(node.DiskPercent),
				Unit:       types.StandardUnitPercent,
				Timestamp:  timestamp,
				Dimensions: dimensions,
			},
			types.MetricDatum{
				MetricName: aws.String("CPUPercent"),
				Value:      aws.Float64(node.CPUPercent),
				Unit:       types.StandardUnitPercent,
				Timestamp:  timestamp,
				Dimensions: dimensions,
			},
			types.MetricDatum{
				MetricName: aws.String("NormalizedLoad"),
				Value:      aws.Float64(node.NormalizedLoad()),
				Unit:       types.StandardUnitNone,
				Timestamp:  timestamp,
				Dimensions: dimensions,
			},
		)
	}

	clusterDimensions := []types.Dimension{
		{Name: aws.String("Scope"), Value: aws.String("cluster")},
	}
	for name, value := range map[string]float64{
		"HealthyNodes":  float64(cluster.HealthyCount()),
		"WarningNodes":  float64(cluster.WarningCount()),
		"CriticalNodes": float64(cluster.CriticalCount()),
		"TotalNodes":    float64(len(cluster.Nodes)),
	} {
		data = append(data, types.MetricDatum{
			MetricName: aws.String(name),
			Value:      aws.Float64(value),
			Unit:       types.StandardUnitCount,
			Timestamp:  timestamp,
			Dimensions: clusterDimensions,
		})
	}

	return data
}

// putWithRetry publishes a batch with exponential backoff retry.
func (e *Exporter) putWithRetry(ctx context.Context, data []types.MetricDatum) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		input := &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(e.namespace),
			MetricData: data,
		}

		_, err := e.client.PutMetricData(ctx, input)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// buildAWSConfig creates an AWS config with credentials.
func buildAWSConfig(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey string) (aws.Config, error) {
	optFns := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	// Add static credentials if provided
	if accessKeyID != "" && secretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}

	// Override endpoint if specified (for LocalStack testing)
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}

	return cfg, nil
}
