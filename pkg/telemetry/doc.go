// Package telemetry wires OpenTelemetry into nodemesh.
//
// Setup installs global tracer and meter providers; the discovery service,
// the network and the Redis mirror open spans through otel.Tracer with the
// tracer names declared here, so they are exported as soon as Setup runs and
// cost nothing when it does not.
//
//	provider, err := telemetry.Setup(ctx, telemetry.Config{
//	    ServiceName: "nodemesh",
//	    Exporter:    telemetry.ExporterOTLP,
//	    Endpoint:    "otel-collector:4317",
//	    Insecure:    true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer provider.Shutdown(context.Background())
//
// RegistryMetrics wraps the counters and gauges the registry reports.
// CorrelationMiddleware and EnrichLogFields tie HTTP requests, spans and log
// lines together through X-Correlation-ID and X-Request-ID.
package telemetry
