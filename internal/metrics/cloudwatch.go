package metrics

import (
	"context"
	"time"

	"github.com/Conceptual-Machines/choreo-api/internal/llm"
	"github.com/Conceptual-Machines/choreo-api/internal/logger"
	"github.com/Conceptual-Machines/choreo-api/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	namespace                = "Choreo/API"
	httpStatusServerError    = 500
	cloudwatchTimeoutSeconds = 5
)

// metricPutter is the slice of the CloudWatch API the client uses
type metricPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Client wraps CloudWatch client for custom metrics
type Client struct {
	client      metricPutter
	enabled     bool
	environment string
	async       bool
}

// NewClient creates a new CloudWatch metrics client. Outside production it is disabled.
func NewClient(ctx context.Context, environment string) (*Client, error) {
	if environment != "production" {
		logger.Info("CloudWatch metrics disabled", logger.Fields{"environment": environment})
		return &Client{enabled: false, environment: environment}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Warn("Failed to load AWS config for CloudWatch", logger.Fields{"error": err.Error()})
		return &Client{enabled: false, environment: environment}, nil
	}

	logger.Info("CloudWatch metrics enabled", logger.Fields{"namespace": namespace})
	return &Client{
		client:      cloudwatch.NewFromConfig(cfg),
		enabled:     true,
		environment: environment,
		async:       true,
	}, nil
}

// Enabled reports whether metrics are sent
func (m *Client) Enabled() bool {
	return m.enabled && m.client != nil
}

// RecordAPIRequest records an API request metric
func (m *Client) RecordAPIRequest(_ context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.Enabled() {
		return
	}

	m.dispatch(func(ctx context.Context) {
		metricName := "APIRequests"
		if statusCode >= httpStatusServerError {
			metricName = "APIErrors"
		}
		dimensions := m.dimensions("Endpoint", endpoint)

		m.put(ctx, metricName, 1, types.StandardUnitCount, dimensions)
		m.put(ctx, "APILatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
	})
}

// RecordSegmentOutcome counts segments per provenance source
func (m *Client) RecordSegmentOutcome(_ context.Context, style string, source models.Source) {
	if !m.Enabled() {
		return
	}

	m.dispatch(func(ctx context.Context) {
		dimensions := append(m.dimensions("Style", style), types.Dimension{
			Name:  aws.String("Source"),
			Value: aws.String(string(source)),
		})
		m.put(ctx, "Segments", 1, types.StandardUnitCount, dimensions)
	})
}

// RecordOracleCall records token usage and latency of one oracle attempt
func (m *Client) RecordOracleCall(_ context.Context, model string, duration time.Duration, usage llm.Usage, success bool) {
	if !m.Enabled() {
		return
	}

	m.dispatch(func(ctx context.Context) {
		dimensions := m.dimensions("Model", model)
		if !success {
			m.put(ctx, "OracleErrors", 1, types.StandardUnitCount, dimensions)
			return
		}
		m.put(ctx, "OracleLatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
		m.put(ctx, "LLMTokens/Total", float64(usage.TotalTokens), types.StandardUnitCount, dimensions)
		m.put(ctx, "LLMTokens/Input", float64(usage.InputTokens), types.StandardUnitCount, dimensions)
		m.put(ctx, "LLMTokens/Output", float64(usage.OutputTokens), types.StandardUnitCount, dimensions)
	})
}

// RecordRun records segment counts and duration of a completed run
func (m *Client) RecordRun(_ context.Context, style string, segments, fallbacks, repaired int, duration time.Duration) {
	if !m.Enabled() {
		return
	}

	m.dispatch(func(ctx context.Context) {
		dimensions := m.dimensions("Style", style)
		m.put(ctx, "RunSegments", float64(segments), types.StandardUnitCount, dimensions)
		m.put(ctx, "RunFallbacks", float64(fallbacks), types.StandardUnitCount, dimensions)
		m.put(ctx, "RunRepaired", float64(repaired), types.StandardUnitCount, dimensions)
		m.put(ctx, "RunDuration", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
	})
}

// dispatch runs fn off the request path in production; tests run it inline
func (m *Client) dispatch(fn func(ctx context.Context)) {
	if m.async {
		go fn(context.Background())
		return
	}
	fn(context.Background())
}

func (m *Client) dimensions(name, value string) []types.Dimension {
	return []types.Dimension{
		{
			Name:  aws.String(name),
			Value: aws.String(value),
		},
		{
			Name:  aws.String("Environment"),
			Value: aws.String(m.environment),
		},
	}
}

func (m *Client) put(ctx context.Context, metricName string, value float64, unit types.StandardUnit, dimensions []types.Dimension) {
	if err := m.putMetric(ctx, metricName, value, unit, dimensions); err != nil {
		logger.Warn("Failed to record CloudWatch metric", logger.Fields{"metric": metricName, "error": err.Error()})
	}
}

// putMetric sends a metric to CloudWatch
func (m *Client) putMetric(
	ctx context.Context,
	metricName string,
	value float64,
	unit types.StandardUnit,
	dimensions []types.Dimension,
) error {
	if !m.Enabled() {
		return nil
	}

	cwCtx, cancel := context.WithTimeout(ctx, cloudwatchTimeoutSeconds*time.Second)
	defer cancel()

	_, err := m.client.PutMetricData(cwCtx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(metricName),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(time.Now()),
				Dimensions: dimensions,
			},
		},
	})

	return err
}
