// Package telemetry wires OpenTelemetry tracing and metrics for repolens.
//
// Spans and metrics are exported over OTLP (grpc or http/protobuf) to a
// collector. Telemetry is disabled by default; a disabled or degraded
// instance hands out the global no-op providers so callers never branch.
//
//	tel, err := telemetry.New(ctx, telemetry.ConfigFrom(cfg.Telemetry), logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx, span := tel.Tracer("repolens/index").Start(ctx, "index")
//	defer span.End()
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
