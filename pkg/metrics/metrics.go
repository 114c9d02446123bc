// Package metrics reports custom metrics, events and traces to New Relic.
// Everything here is a no-op when the context carries no New Relic
// application or transaction.
package metrics

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying the New Relic application used to
// record metrics and events
func NewContext(ctx context.Context, app *newrelic.Application) context.Context {
	return context.WithValue(ctx, contextKey{}, app)
}

func fromContext(ctx context.Context) (*newrelic.Application, bool) {
	app, ok := ctx.Value(contextKey{}).(*newrelic.Application)
	return app, ok && app != nil
}

// RecordCount records a count metric
func RecordCount(ctx context.Context, metricName string, count uint64) {
	if app, ok := fromContext(ctx); ok {
		app.RecordCustomMetric(metricName, float64(count))
	}
}

// RecordDuration records a duration metric, in milliseconds
func RecordDuration(ctx context.Context, metricName string, duration time.Duration) {
	if app, ok := fromContext(ctx); ok {
		app.RecordCustomMetric(metricName, float64(duration/time.Millisecond))
	}
}
