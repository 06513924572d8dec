package jobs

import (
	"context"
	"errors"
	"testing"
)

type countMembers struct {
	n     int64
	err   error
	calls int
}

func (c *countMembers) Count(context.Context) (int64, error) {
	c.calls++
	return c.n, c.err
}

type countSessions struct{ calls int }

func (c *countSessions) ActiveSessions() int {
	c.calls++
	return 2
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()
	if _, err := NewScheduler("every day", "UTC", &countMembers{}, &countSessions{}); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestNewSchedulerFallsBackToUTC(t *testing.T) {
	t.Parallel()
	s, err := NewScheduler("0 9 * * *", "Mars/Olympus", &countMembers{}, &countSessions{})
	if err != nil {
		t.Fatalf("NewScheduler() error: %v", err)
	}
	if s.loc.String() != "UTC" {
		t.Fatalf("location = %s, want UTC", s.loc)
	}
}

func TestReportStats(t *testing.T) {
	t.Parallel()
	members := &countMembers{n: 5}
	sessions := &countSessions{}
	s, err := NewScheduler("*/5 * * * *", "Europe/Istanbul", members, sessions)
	if err != nil {
		t.Fatalf("NewScheduler() error: %v", err)
	}

	s.reportStats(context.Background())
	if members.calls != 1 || sessions.calls != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", members.calls, sessions.calls)
	}

	members.err = errors.New("db down")
	s.reportStats(context.Background())
	if sessions.calls != 1 {
		t.Fatal("sessions must not be read when member count fails")
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	s, err := NewScheduler("0 9 * * *", "UTC", &countMembers{}, &countSessions{})
	if err != nil {
		t.Fatalf("NewScheduler() error: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	s.Stop()
}
