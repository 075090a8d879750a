package stopwatch

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestRecorder_Nesting(t *testing.T) {
	r := New()
	r.now = fakeClock(10 * time.Millisecond)

	r.Start("outer")
	r.Start("inner")
	if r.Depth() != 2 {
		t.Fatalf("Depth = %d, want 2", r.Depth())
	}
	if err := r.End(); err != nil {
		t.Fatalf("End inner: %v", err)
	}
	if err := r.End(); err != nil {
		t.Fatalf("End outer: %v", err)
	}

	frames := r.Frames()
	if len(frames) != 1 || frames[0].Name != "outer" {
		t.Fatalf("Frames = %+v, want single outer frame", frames)
	}
	if len(frames[0].Children) != 1 || frames[0].Children[0].Name != "inner" {
		t.Fatalf("outer children = %+v, want inner", frames[0].Children)
	}
	if frames[0].Elapsed != 30*time.Millisecond {
		t.Errorf("outer elapsed = %v, want 30ms", frames[0].Elapsed)
	}
	if frames[0].Children[0].Elapsed != 10*time.Millisecond {
		t.Errorf("inner elapsed = %v, want 10ms", frames[0].Children[0].Elapsed)
	}
}

func TestRecorder_EndWithoutStart(t *testing.T) {
	r := New()
	if err := r.End(); !errors.Is(err, ErrNoOpenScope) {
		t.Fatalf("End on empty recorder = %v, want ErrNoOpenScope", err)
	}
}

func TestRecorder_EndAllAndRelease(t *testing.T) {
	r := New()
	r.Start("a")
	r.Start("b")
	r.Start("c")
	r.EndAll()
	if r.Depth() != 0 {
		t.Fatalf("Depth after EndAll = %d, want 0", r.Depth())
	}
	if !r.Frames()[0].Done {
		t.Error("root frame not closed by EndAll")
	}
	r.Release()
	if len(r.Frames()) != 0 {
		t.Errorf("Frames after Release = %d, want 0", len(r.Frames()))
	}
	if r.Report() != "" {
		t.Errorf("Report after Release = %q, want empty", r.Report())
	}
}

func TestRecorder_Report(t *testing.T) {
	r := New()
	r.now = fakeClock(5 * time.Millisecond)
	r.Start("Init")
	r.Start("Discover")
	_ = r.End()
	_ = r.End()

	report := r.Report()
	lines := strings.Split(strings.TrimSpace(report), "\n")
	if len(lines) != 2 {
		t.Fatalf("report lines = %d, want 2: %q", len(lines), report)
	}
	if lines[0] != "[100.00%] [15ms] [Init]" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "  [33.33%] [5ms] [Discover]") {
		t.Errorf("line 1 = %q", lines[1])
	}
}
