package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/roach88/cogtask/internal/ir"
)

const serviceName = "cogtask"

// Recorder is the metrics surface used by the run command.
// It matches engine.Recorder plus Close.
type Recorder interface {
	RecordTrial(ctx context.Context, row ir.ExportRow)
	RecordBlock(ctx context.Context, task ir.TaskType, trials int)
	Close(ctx context.Context) error
}

// Exporter records trial and block metrics.
type Exporter struct {
	provider     *sdkmetric.MeterProvider
	trialsTotal  metric.Int64Counter
	responseHist metric.Float64Histogram
	blocksTotal  metric.Int64Counter
}

// NewExporter creates an exporter pushing to the configured OTLP endpoint.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	e, err := newExporter(ctx, sdkmetric.NewPeriodicReader(exp))
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(e.provider)
	return e, nil
}

func newExporter(ctx context.Context, reader sdkmetric.Reader) (*Exporter, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ir.EngineVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(serviceName)

	trialsTotal, err := meter.Int64Counter(
		"cogtask_trials_total",
		metric.WithDescription("Scored trials by task and label"),
		metric.WithUnit("{trial}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating trials counter: %w", err)
	}

	responseHist, err := meter.Float64Histogram(
		"cogtask_response_time_seconds",
		metric.WithDescription("Time from stimulus onset to response"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating response time histogram: %w", err)
	}

	blocksTotal, err := meter.Int64Counter(
		"cogtask_blocks_total",
		metric.WithDescription("Completed blocks by task"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating blocks counter: %w", err)
	}

	return &Exporter{
		provider:     provider,
		trialsTotal:  trialsTotal,
		responseHist: responseHist,
		blocksTotal:  blocksTotal,
	}, nil
}

// RecordTrial counts one scored trial and records its response time.
// Participant ids are not exported.
func (e *Exporter) RecordTrial(ctx context.Context, row ir.ExportRow) {
	opt := metric.WithAttributes(
		attribute.String("task", string(row.BlockType)),
		attribute.String("label", string(row.Label)),
		attribute.String("participant_type", string(row.ParticipantType)),
	)
	e.trialsTotal.Add(ctx, 1, opt)
	e.responseHist.Record(ctx, row.ResponseTime.Seconds(), opt)
}

// RecordBlock counts one completed block.
func (e *Exporter) RecordBlock(ctx context.Context, task ir.TaskType, trials int) {
	e.blocksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("task", string(task)),
		attribute.Int("trials", trials),
	))
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}

// NoOp is a recorder that does nothing.
type NoOp struct{}

func (NoOp) RecordTrial(context.Context, ir.ExportRow) {}

func (NoOp) RecordBlock(context.Context, ir.TaskType, int) {}

func (NoOp) Close(context.Context) error { return nil }

// Open returns an Exporter when metrics are enabled, NoOp otherwise.
// An exporter that fails to start degrades to NoOp with a warning.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) Recorder {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return NoOp{}
	}
	e, err := NewExporter(ctx, cfg)
	if err != nil {
		logger.Warn("metrics disabled", "error", err)
		return NoOp{}
	}
	logger.Debug("metrics enabled", "endpoint", cfg.Endpoint)
	return e
}
