// Package metrics exposes the Prometheus collectors recorded by the activity,
// roles and applications modules.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ActivityMetrics is recorded by the activity service.
type ActivityMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, duration time.Duration)
	RecordMessageOutcome(ctx context.Context, outcome string)
	RecordScoreChange(ctx context.Context, source string, delta int64)
	RecordDecayRun(ctx context.Context, scanned, decayed, failed int, duration time.Duration)
}

// RoleMetrics is recorded by the role reconciler and the platform gateway.
type RoleMetrics interface {
	RecordReconciliation(ctx context.Context, outcome string)
	RecordPlatformCall(ctx context.Context, call string, success bool, duration time.Duration)
}

// ApplicationMetrics is recorded by the join application flow.
type ApplicationMetrics interface {
	RecordApplication(ctx context.Context, stage string)
}

// HandlerMetrics is recorded by the message handler wrapper.
type HandlerMetrics interface {
	RecordHandler(ctx context.Context, handler, status string, duration time.Duration)
}

// Prometheus implements every metrics interface on one registry.
type Prometheus struct {
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	messageOutcomes   *prometheus.CounterVec
	scoreChanges      *prometheus.CounterVec
	decayRuns         prometheus.Counter
	decayUsers        *prometheus.CounterVec
	decayDuration     prometheus.Histogram
	reconciliations   *prometheus.CounterVec
	platformCalls     *prometheus.CounterVec
	platformDuration  *prometheus.HistogramVec
	applications      *prometheus.CounterVec
	handlers          *prometheus.CounterVec
	handlerDuration   *prometheus.HistogramVec
}

// NewPrometheus registers the collectors on reg.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activitybot",
			Name:      "operations_total",
			Help:      "Service operations by name and status.",
		}, []string{"operation", "status"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "activitybot",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		messageOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activitybot",
			Name:      "messages_total",
			Help:      "Ingested chat messages by outcome.",
		}, []string{"outcome"}),
		scoreChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activitybot",
			Name:      "score_points_total",
			Help:      "Absolute score points moved, by source.",
		}, []string{"source"}),
		decayRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "activitybot",
			Name:      "decay_runs_total",
			Help:      "Completed decay scans.",
		}),
		decayUsers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activitybot",
			Name:      "decay_users_total",
			Help:      "Users visited by decay scans, by result.",
		}, []string{"result"}),
		decayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "activitybot",
			Name:      "decay_duration_seconds",
			Help:      "Wall time of one decay scan.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activitybot",
			Name:      "role_reconciliations_total",
			Help:      "Role reconciliations by outcome.",
		}, []string{"outcome"}),
		platformCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activitybot",
			Name:      "platform_calls_total",
			Help:      "Calls to the chat gateway by call and status.",
		}, []string{"call", "status"}),
		platformDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "activitybot",
			Name:      "platform_call_duration_seconds",
			Help:      "Chat gateway call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call"}),
		applications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activitybot",
			Name:      "applications_total",
			Help:      "Join applications by stage.",
		}, []string{"stage"}),
		handlers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "activitybot",
			Name:      "handled_messages_total",
			Help:      "Bus messages handled, by handler and status.",
		}, []string{"handler", "status"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "activitybot",
			Name:      "handler_duration_seconds",
			Help:      "Bus message handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
	}

	collectors := []prometheus.Collector{
		p.operations, p.operationDuration, p.messageOutcomes, p.scoreChanges,
		p.decayRuns, p.decayUsers, p.decayDuration, p.reconciliations,
		p.platformCalls, p.platformDuration, p.applications,
		p.handlers, p.handlerDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) RecordOperationAttempt(_ context.Context, operation string) {
	p.operations.WithLabelValues(operation, "attempt").Inc()
}

func (p *Prometheus) RecordOperationSuccess(_ context.Context, operation string) {
	p.operations.WithLabelValues(operation, "success").Inc()
}

func (p *Prometheus) RecordOperationFailure(_ context.Context, operation string) {
	p.operations.WithLabelValues(operation, "failure").Inc()
}

func (p *Prometheus) RecordOperationDuration(_ context.Context, operation string, duration time.Duration) {
	p.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (p *Prometheus) RecordMessageOutcome(_ context.Context, outcome string) {
	p.messageOutcomes.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) RecordScoreChange(_ context.Context, source string, delta int64) {
	if delta < 0 {
		delta = -delta
	}
	p.scoreChanges.WithLabelValues(source).Add(float64(delta))
}

func (p *Prometheus) RecordDecayRun(_ context.Context, scanned, decayed, failed int, duration time.Duration) {
	p.decayRuns.Inc()
	p.decayUsers.WithLabelValues("scanned").Add(float64(scanned))
	p.decayUsers.WithLabelValues("decayed").Add(float64(decayed))
	p.decayUsers.WithLabelValues("failed").Add(float64(failed))
	p.decayDuration.Observe(duration.Seconds())
}

func (p *Prometheus) RecordReconciliation(_ context.Context, outcome string) {
	p.reconciliations.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) RecordPlatformCall(_ context.Context, call string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	p.platformCalls.WithLabelValues(call, status).Inc()
	p.platformDuration.WithLabelValues(call).Observe(duration.Seconds())
}

func (p *Prometheus) RecordApplication(_ context.Context, stage string) {
	p.applications.WithLabelValues(stage).Inc()
}

func (p *Prometheus) RecordHandler(_ context.Context, handler, status string, duration time.Duration) {
	p.handlers.WithLabelValues(handler, status).Inc()
	p.handlerDuration.WithLabelValues(handler).Observe(duration.Seconds())
}

// NoOp discards every measurement.
type NoOp struct{}

func (NoOp) RecordOperationAttempt(context.Context, string) {}
func (NoOp) RecordOperationSuccess(context.Context, string) {}
func (NoOp) RecordOperationFailure(context.Context, string) {}
func (NoOp) RecordOperationDuration(context.Context, string, time.Duration) {}
func (NoOp) RecordMessageOutcome(context.Context, string) {}
func (NoOp) RecordScoreChange(context.Context, string, int64) {}
func (NoOp) RecordDecayRun(context.Context, int, int, int, time.Duration) {}
func (NoOp) RecordReconciliation(context.Context, string) {}
func (NoOp) RecordPlatformCall(context.Context, string, bool, time.Duration) {}
func (NoOp) RecordApplication(context.Context, string) {}
func (NoOp) RecordHandler(context.Context, string, string, time.Duration) {}

var (
	_ ActivityMetrics    = (*Prometheus)(nil)
	_ RoleMetrics        = (*Prometheus)(nil)
	_ ApplicationMetrics = (*Prometheus)(nil)
	_ HandlerMetrics     = (*Prometheus)(nil)
	_ ActivityMetrics    = NoOp{}
	_ RoleMetrics        = NoOp{}
	_ ApplicationMetrics = NoOp{}
	_ HandlerMetrics     = NoOp{}
)
