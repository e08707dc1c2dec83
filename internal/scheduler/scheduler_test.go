package scheduler

import (
	"context"
	"errors"
	"testing"
)

func TestStartWithoutReportFunction(t *testing.T) {
	s := New("")
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.IsRunning() {
		t.Fatalf("scheduler without report function must not register jobs")
	}
	s.Stop()
}

func TestStartRegistersJob(t *testing.T) {
	s := New("*/5 * * * *")
	calls := 0
	s.SetReportFunction(func(ctx context.Context) error {
		calls++
		return errors.New("report failed")
	})
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	if !s.IsRunning() {
		t.Fatalf("expected a registered job")
	}

	// errors are logged, not propagated
	s.runReport()
	if calls != 1 {
		t.Fatalf("want 1 call, got %d", calls)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New("not a cron spec")
	s.SetReportFunction(func(ctx context.Context) error { return nil })
	if err := s.Start(); err == nil {
		t.Fatalf("expected error for invalid spec")
	}
}
