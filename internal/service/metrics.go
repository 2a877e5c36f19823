package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the domain counters exported through the meter provider
type Metrics struct {
	donationsInitialized metric.Int64Counter
	reconciliations      metric.Int64Counter
	codesIssued          metric.Int64Counter
	consumptions         metric.Int64Counter
}

// NewMetrics registers the domain counters on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.donationsInitialized, err = meter.Int64Counter("donations_initialized_total",
		metric.WithDescription("Checkout sessions opened")); err != nil {
		return nil, fmt.Errorf("failed to create donations counter: %w", err)
	}
	if m.reconciliations, err = meter.Int64Counter("donation_reconciliations_total",
		metric.WithDescription("Reconciliation steps by resulting status and trigger")); err != nil {
		return nil, fmt.Errorf("failed to create reconciliation counter: %w", err)
	}
	if m.codesIssued, err = meter.Int64Counter("recovery_codes_issued_total",
		metric.WithDescription("Recovery codes and links issued")); err != nil {
		return nil, fmt.Errorf("failed to create recovery issue counter: %w", err)
	}
	if m.consumptions, err = meter.Int64Counter("recovery_consumptions_total",
		metric.WithDescription("Recovery consumption attempts by result")); err != nil {
		return nil, fmt.Errorf("failed to create recovery consumption counter: %w", err)
	}

	return m, nil
}

// NoopMetrics returns counters that record nothing
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

func (m *Metrics) donationInitialized(ctx context.Context, currency string) {
	m.donationsInitialized.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", currency)))
}

func (m *Metrics) reconciled(ctx context.Context, status, source string) {
	m.reconciliations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("source", source),
	))
}

func (m *Metrics) codeIssued(ctx context.Context, flow string) {
	m.codesIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("flow", flow)))
}

func (m *Metrics) consumed(ctx context.Context, flow, result string) {
	m.consumptions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("result", result),
	))
}
