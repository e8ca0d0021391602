package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheus_RecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	if err != nil {
		t.Fatalf("NewPrometheus: %v", err)
	}
	ctx := context.Background()

	p.RecordMessageOutcome(ctx, "scored")
	p.RecordMessageOutcome(ctx, "scored")
	p.RecordScoreChange(ctx, "decay", -10)
	p.RecordDecayRun(ctx, 4, 3, 1, time.Second)
	p.RecordPlatformCall(ctx, "add_role", false, time.Millisecond)

	if got := testutil.ToFloat64(p.messageOutcomes.WithLabelValues("scored")); got != 2 {
		t.Errorf("messages scored = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.scoreChanges.WithLabelValues("decay")); got != 10 {
		t.Errorf("decay points = %v, want 10", got)
	}
	if got := testutil.ToFloat64(p.decayUsers.WithLabelValues("failed")); got != 1 {
		t.Errorf("decay failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.platformCalls.WithLabelValues("add_role", "failure")); got != 1 {
		t.Errorf("platform failures = %v, want 1", got)
	}
}

func TestNewPrometheus_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheus(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewPrometheus(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
