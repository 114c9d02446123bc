package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// TraceMethodCall traces a method call with a given struct/package and method
// names. The call's duration is also recorded as a custom metric named
// "<structOrPackageName>/<methodName>" when an application is in the context.
func TraceMethodCall(ctx context.Context, structOrPackageName, methodName string) *MethodTracer {
	tracer := &MethodTracer{
		ctx:    ctx,
		metric: fmt.Sprintf("%s/%s", structOrPackageName, methodName),
		start:  time.Now(),
	}

	if txn := newrelic.FromContext(ctx); txn != nil {
		tracer.txn = txn
		tracer.seg = txn.StartSegment(fmt.Sprintf("%s %s", structOrPackageName, methodName))
	}

	return tracer
}

// MethodTracer collects analytics for a given method call within an existing
// trace
type MethodTracer struct {
	ctx    context.Context
	metric string
	start  time.Time

	txn *newrelic.Transaction
	seg *newrelic.Segment
}

// AddAttribute adds a key-value pair metadata to the method trace
func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t.seg == nil {
		return
	}

	t.seg.AddAttribute(key, value)
}

// OnError observes an error within a method trace
func (t *MethodTracer) OnError(err error) {
	if t.txn == nil || err == nil {
		return
	}

	t.txn.NoticeError(err)
}

// End completes the trace for the method call
func (t *MethodTracer) End() {
	RecordDuration(t.ctx, t.metric, time.Since(t.start))

	if t.seg != nil {
		t.seg.End()
	}
}
