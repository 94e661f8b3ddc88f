package otel

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// LogExporter is an sdkmetric.Exporter that writes each collection as one
// zap entry, one field per non-zero int64 series.
type LogExporter struct {
	logger *zap.Logger
}

var _ sdkmetric.Exporter = (*LogExporter)(nil)

func NewLogExporter(logger *zap.Logger) *LogExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogExporter{logger: logger}
}

func (e *LogExporter) Temporality(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(kind)
}

func (e *LogExporter) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(kind)
}

func (e *LogExporter) Export(_ context.Context, rm *metricdata.ResourceMetrics) error {
	if rm == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 16)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			var v int64
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					v += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					v += dp.Value
				}
			default:
				continue
			}
			if v != 0 {
				fields = append(fields, zap.Int64(m.Name, v))
			}
		}
	}
	e.logger.Info("metrics collected", fields...)
	return nil
}

func (e *LogExporter) ForceFlush(context.Context) error { return nil }

func (e *LogExporter) Shutdown(context.Context) error { return nil }
