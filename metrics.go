package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/manamana32321/minecraft-relay"

// relayMetrics records per-cycle counters for the watch loop.
type relayMetrics struct {
	cycles        metric.Int64Counter
	lines         metric.Int64Counter
	malformed     metric.Int64Counter
	transitions   metric.Int64Counter
	messages      metric.Int64Counter
	sourceErrors  metric.Int64Counter
	persistErrors metric.Int64Counter
	online        metric.Int64Gauge
	pending       metric.Int64Gauge
}

func newRelayMetrics(mp metric.MeterProvider) (*relayMetrics, error) {
	m := mp.Meter(meterName)
	var (
		rm  relayMetrics
		err error
	)
	if rm.cycles, err = m.Int64Counter("minecraft.relay.scan.cycles",
		metric.WithDescription("Completed scan cycles")); err != nil {
		return nil, fmt.Errorf("scan cycles counter: %w", err)
	}
	if rm.lines, err = m.Int64Counter("minecraft.relay.scan.lines",
		metric.WithDescription("Log lines read from the trailing window")); err != nil {
		return nil, fmt.Errorf("lines counter: %w", err)
	}
	if rm.malformed, err = m.Int64Counter("minecraft.relay.scan.malformed_lines",
		metric.WithDescription("Lines skipped as malformed")); err != nil {
		return nil, fmt.Errorf("malformed counter: %w", err)
	}
	if rm.transitions, err = m.Int64Counter("minecraft.relay.presence.transitions",
		metric.WithDescription("Join and leave transitions emitted")); err != nil {
		return nil, fmt.Errorf("transitions counter: %w", err)
	}
	if rm.messages, err = m.Int64Counter("minecraft.relay.chat.messages",
		metric.WithDescription("New chat messages after deduplication")); err != nil {
		return nil, fmt.Errorf("messages counter: %w", err)
	}
	if rm.sourceErrors, err = m.Int64Counter("minecraft.relay.source.errors",
		metric.WithDescription("Failed reads of the log source")); err != nil {
		return nil, fmt.Errorf("source errors counter: %w", err)
	}
	if rm.persistErrors, err = m.Int64Counter("minecraft.relay.registry.write_errors",
		metric.WithDescription("Registry writes that failed")); err != nil {
		return nil, fmt.Errorf("persist errors counter: %w", err)
	}
	if rm.online, err = m.Int64Gauge("minecraft.relay.players.online",
		metric.WithDescription("Players currently in the online registry")); err != nil {
		return nil, fmt.Errorf("online gauge: %w", err)
	}
	if rm.pending, err = m.Int64Gauge("minecraft.relay.commands.pending",
		metric.WithDescription("Inbound messages waiting for their echo")); err != nil {
		return nil, fmt.Errorf("pending gauge: %w", err)
	}
	return &rm, nil
}

func (m *relayMetrics) recordTransitions(ctx context.Context, ts []Transition) {
	for _, t := range ts {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(t.Kind))))
	}
}
