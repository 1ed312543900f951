// Package telemetry builds the OpenTelemetry trace pipeline for ctxpack.
//
// Spans are exported over OTLP (gRPC or HTTP) with parent-based ratio
// sampling. Tracing is disabled by default; a disabled or degraded instance
// still hands out working no-op tracers, so instrumented code never checks.
//
//	tel, err := telemetry.New(ctx, cfg.Telemetry)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx, span := tel.Tracer("ctxpack/bundle").Start(ctx, "ctxpack.bundle")
//	defer span.End()
//
// Tests use NewTestTelemetry and assert on the recorded spans.
package telemetry
