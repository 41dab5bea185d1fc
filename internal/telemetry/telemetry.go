// Package telemetry provides OpenTelemetry metrics for jirabot.
//
// Telemetry is disabled by default. Set JIRABOT_OTEL_ENABLED=true to print
// metrics through the stdout exporter; they are flushed on shutdown.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const instrumentationScope = "github.com/danielolaszy/jirabot"

// Enabled reports whether telemetry is active (JIRABOT_OTEL_ENABLED=true).
func Enabled() bool {
	return os.Getenv("JIRABOT_OTEL_ENABLED") == "true"
}

// Init installs the global meter provider and returns its shutdown function.
// When telemetry is disabled a no-op provider is installed.
func Init(w io.Writer) (func(context.Context) error, error) {
	if !Enabled() {
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return func(context.Context) error { return nil }, nil
	}

	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// Meter returns the meter used by jirabot instruments.
func Meter() metric.Meter {
	return otel.Meter(instrumentationScope)
}

// Counter creates an Int64Counter, falling back to a no-op counter if the
// provider refuses the instrument.
func Counter(name, description string) metric.Int64Counter {
	c, err := Meter().Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return metricnoop.Int64Counter{}
	}
	return c
}
