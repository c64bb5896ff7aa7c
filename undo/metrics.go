// Copyright (C) 2025 Vizworks Labs (oss@vizworks.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package undo

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for undo operations.
var (
	tracer = otel.Tracer("refcore.undo")
	meter  = otel.Meter("refcore.undo")
)

// Metrics for undo stack activity.
var (
	pushTotal     metric.Int64Counter
	replayTotal   metric.Int64Counter
	replayLatency metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		pushTotal, err = meter.Int64Counter(
			"undo_push_total",
			metric.WithDescription("Total number of operations pushed onto undo stacks"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		replayTotal, err = meter.Int64Counter(
			"undo_replay_total",
			metric.WithDescription("Total number of undo/redo replays"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		replayLatency, err = meter.Float64Histogram(
			"undo_replay_duration_seconds",
			metric.WithDescription("Duration of undo/redo replay calls"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordPush() {
	if initMetrics() != nil {
		return
	}
	pushTotal.Add(context.Background(), 1)
}

func recordReplay(direction string, elapsed time.Duration, err error) {
	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.Bool("error", err != nil),
	)
	replayTotal.Add(context.Background(), 1, attrs)
	replayLatency.Record(context.Background(), elapsed.Seconds(), attrs)
}
