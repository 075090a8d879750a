package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestService_StartStop(t *testing.T) {
	s := NewService(nil)
	fired := make(chan struct{}, 1)
	if err := s.Add("tick", "@every 1s", func(ctx context.Context, args ...string) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Running() {
		t.Fatal("Running = false after Start")
	}
	if want := len(Jobs()) + 1; s.Entries() != want {
		t.Errorf("Entries = %d, want %d", s.Entries(), want)
	}
	if err := s.Add("late", "@hourly", nil); !errors.Is(err, ErrStarted) {
		t.Errorf("Add after Start = %v, want ErrStarted", err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Running() {
		t.Error("Running = true after Stop")
	}
	if err := s.Stop(ctx); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestService_StopBeforeStart(t *testing.T) {
	if err := NewService(nil).Stop(context.Background()); err != nil {
		t.Errorf("Stop before Start: %v", err)
	}
}

func TestService_BadSchedule(t *testing.T) {
	s := NewService(nil)
	_ = s.Add("broken", "every now and then", func(context.Context, ...string) error { return nil })
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start with a bad schedule = nil, want error")
	}
	if s.Running() {
		t.Error("Running = true after failed Start")
	}
}

func TestService_RunOnce(t *testing.T) {
	s := NewService(nil)
	var gotArgs []string
	boom := errors.New("boom")
	_ = s.Add("echo", "@daily", func(ctx context.Context, args ...string) error {
		gotArgs = args
		return nil
	})
	_ = s.Add("fail", "@daily", func(context.Context, ...string) error { return boom })

	if err := s.RunOnce(context.Background(), "echo", "a", "b"); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "a" {
		t.Errorf("args = %v, want [a b]", gotArgs)
	}
	if err := s.RunOnce(context.Background(), "fail"); !errors.Is(err, boom) {
		t.Errorf("RunOnce fail = %v, want boom", err)
	}
	if err := s.RunOnce(context.Background(), "nope"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("RunOnce unknown = %v, want ErrUnknownJob", err)
	}
}
