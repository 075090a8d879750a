package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"latke.GO/core/stopwatch"
)

func TestObserveBootstrap(t *testing.T) {
	frames := []stopwatch.Frame{{
		Name:    "outer",
		Elapsed: 2 * time.Second,
		Children: []*stopwatch.Frame{
			{Name: "inner", Elapsed: 500 * time.Millisecond},
		},
	}}
	ObserveBootstrap(frames)

	if got := testutil.ToFloat64(BootstrapPhaseSeconds.WithLabelValues("outer")); got != 2 {
		t.Errorf("outer = %v, want 2", got)
	}
	if got := testutil.ToFloat64(BootstrapPhaseSeconds.WithLabelValues("inner")); got != 0.5 {
		t.Errorf("inner = %v, want 0.5", got)
	}
}
