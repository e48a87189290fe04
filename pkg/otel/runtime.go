package otel

import (
	"time"

	hostmetrics "go.opentelemetry.io/contrib/instrumentation/host"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
)

// StartRuntimeMetrics initializes OpenTelemetry runtime and host metrics
// collection (memory, GC statistics, CPU, network, disk I/O)
func StartRuntimeMetrics() error {
	if err := runtime.Start(
		runtime.WithMinimumReadMemStatsInterval(time.Second * 30),
	); err != nil {
		return err
	}

	if err := hostmetrics.Start(); err != nil {
		return err
	}

	return nil
}
