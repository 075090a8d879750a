// Package stopwatch records nested, named timing scopes during bootstrap.
package stopwatch

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrNoOpenScope is returned by End when no scope is open. It always
// indicates a Start/End mismatch in the caller.
var ErrNoOpenScope = errors.New("stopwatch: end called with no open scope")

// Frame is one recorded scope.
type Frame struct {
	Name     string
	Started  time.Time
	Elapsed  time.Duration
	Done     bool
	Children []*Frame
}

// Recorder is a stack of open scopes plus the tree of recorded ones.
// The zero value is not usable; call New.
type Recorder struct {
	mu    sync.Mutex
	now   func() time.Time
	roots []*Frame
	stack []*Frame
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{now: time.Now}
}

// Start pushes a named scope.
func (r *Recorder) Start(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := &Frame{Name: name, Started: r.now()}
	if n := len(r.stack); n > 0 {
		parent := r.stack[n-1]
		parent.Children = append(parent.Children, f)
	} else {
		r.roots = append(r.roots, f)
	}
	r.stack = append(r.stack, f)
}

// End pops the innermost open scope and records its duration.
func (r *Recorder) End() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.end()
}

func (r *Recorder) end() error {
	n := len(r.stack)
	if n == 0 {
		return ErrNoOpenScope
	}
	f := r.stack[n-1]
	f.Elapsed = r.now().Sub(f.Started)
	f.Done = true
	r.stack = r.stack[:n-1]
	return nil
}

// EndAll closes every open scope, innermost first.
func (r *Recorder) EndAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.stack) > 0 {
		_ = r.end()
	}
}

// Depth returns the number of open scopes.
func (r *Recorder) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stack)
}

// Frames returns a deep copy of the recorded root scopes.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, 0, len(r.roots))
	for _, f := range r.roots {
		out = append(out, copyFrame(f))
	}
	return out
}

func copyFrame(f *Frame) Frame {
	c := *f
	c.Children = nil
	for _, child := range f.Children {
		cc := copyFrame(child)
		c.Children = append(c.Children, &cc)
	}
	return c
}

// Report renders every recorded scope as an indented tree. Percentages
// are relative to the enclosing root scope.
func (r *Recorder) Report() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sb strings.Builder
	for _, root := range r.roots {
		writeFrame(&sb, root, root.Elapsed, 0)
	}
	return sb.String()
}

func writeFrame(sb *strings.Builder, f *Frame, total time.Duration, depth int) {
	pct := 100.0
	if total > 0 {
		pct = float64(f.Elapsed) / float64(total) * 100
	}
	state := ""
	if !f.Done {
		state = " (open)"
	}
	fmt.Fprintf(sb, "%s[%.2f%%] [%dms] [%s]%s\n",
		strings.Repeat("  ", depth), pct, f.Elapsed.Milliseconds(), f.Name, state)
	for _, c := range f.Children {
		writeFrame(sb, c, total, depth+1)
	}
}

// Release drops all recorded and open scopes.
func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots = nil
	r.stack = nil
}
