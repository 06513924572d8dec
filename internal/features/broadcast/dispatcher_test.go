package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"serotonyl.ru/gatekeeper-bot/internal/common"
)

// scriptedSender возвращает заранее заданные ответы для каждого получателя по очереди.
type scriptedSender struct {
	script map[int64][]error
	calls  []int64
}

func (s *scriptedSender) SendText(_ context.Context, chatID int64, _ string) error {
	s.calls = append(s.calls, chatID)
	queue := s.script[chatID]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	s.script[chatID] = queue[1:]
	return err
}

type staticMembers struct {
	ids []int64
	err error
}

func (m staticMembers) ListMemberIDs(context.Context) ([]int64, error) { return m.ids, m.err }

// fakeClock записывает все паузы вместе с тем, сколько отправок было до них.
type fakeClock struct {
	sender *scriptedSender
	sleeps []time.Duration
	marks  []int
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.marks = append(c.marks, len(c.sender.calls))
}

func blocked() error { return fmt.Errorf("sendMessage: %w", common.ErrRecipientBlocked) }

func rateLimited(sec int) error {
	return &common.RateLimitError{RetryAfter: time.Duration(sec) * time.Second, Err: errors.New("429")}
}

func newTestDispatcher(ids []int64, script map[int64][]error) (*Dispatcher, *scriptedSender, *fakeClock) {
	if script == nil {
		script = map[int64][]error{}
	}
	sender := &scriptedSender{script: script}
	clock := &fakeClock{sender: sender}
	d := NewDispatcher(sender, staticMembers{ids: ids}, WithSleep(clock.Sleep))
	return d, sender, clock
}

func checkInvariant(t *testing.T, out Outcome) {
	t.Helper()
	if out.Attempted != out.Delivered+out.Blocked+out.OtherFailures {
		t.Fatalf("invariant broken: %+v", out)
	}
}

func TestRunScenarioABC(t *testing.T) {
	t.Parallel()
	d, sender, clock := newTestDispatcher([]int64{1, 2, 3}, map[int64][]error{2: {blocked()}})

	out, err := d.Run(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := Outcome{Attempted: 3, Delivered: 2, Blocked: 1, OtherFailures: 0}
	if out != want {
		t.Fatalf("Outcome = %+v, want %+v", out, want)
	}
	checkInvariant(t, out)

	if got := fmt.Sprint(sender.calls); got != "[1 2 3]" {
		t.Fatalf("send order = %s, want [1 2 3]", got)
	}
	// Пауза только после успешных отправок.
	if len(clock.sleeps) != 2 {
		t.Fatalf("sleeps = %v, want 2 throttle pauses", clock.sleeps)
	}
	for _, s := range clock.sleeps {
		if s != DefaultSendDelay {
			t.Fatalf("throttle = %v, want %v", s, DefaultSendDelay)
		}
	}
}

func TestRunEmptyMemberList(t *testing.T) {
	t.Parallel()
	d, sender, clock := newTestDispatcher(nil, nil)

	out, err := d.Run(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out != (Outcome{}) {
		t.Fatalf("Outcome = %+v, want zero", out)
	}
	if len(sender.calls) != 0 || len(clock.sleeps) != 0 {
		t.Fatalf("nothing must be sent: calls=%v sleeps=%v", sender.calls, clock.sleeps)
	}
}

func TestRunRateLimitRetrySucceeds(t *testing.T) {
	t.Parallel()
	d, sender, clock := newTestDispatcher([]int64{7, 8}, map[int64][]error{7: {rateLimited(5)}})

	out, err := d.Run(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out != (Outcome{Attempted: 2, Delivered: 2}) {
		t.Fatalf("Outcome = %+v", out)
	}
	if got := fmt.Sprint(sender.calls); got != "[7 7 8]" {
		t.Fatalf("calls = %s, want [7 7 8]", got)
	}
	// Первая пауза — ровно retry_after, до повтора (после одной отправки).
	if clock.sleeps[0] != 5*time.Second || clock.marks[0] != 1 {
		t.Fatalf("first sleep = %v after %d calls, want 5s after 1 call", clock.sleeps[0], clock.marks[0])
	}
}

func TestRunRateLimitRetryFailsOnce(t *testing.T) {
	t.Parallel()
	d, sender, clock := newTestDispatcher([]int64{7, 8}, map[int64][]error{
		7: {rateLimited(3), rateLimited(3)},
	})

	out, err := d.Run(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	want := Outcome{Attempted: 2, Delivered: 1, OtherFailures: 1}
	if out != want {
		t.Fatalf("Outcome = %+v, want %+v", out, want)
	}
	checkInvariant(t, out)
	// Ровно один повтор: 7 дважды, затем сразу 8.
	if got := fmt.Sprint(sender.calls); got != "[7 7 8]" {
		t.Fatalf("calls = %s, want [7 7 8]", got)
	}
	if clock.sleeps[0] != 3*time.Second {
		t.Fatalf("suspension = %v, want 3s", clock.sleeps[0])
	}
}

func TestRunRetryBlockedCountsAsOtherFailure(t *testing.T) {
	t.Parallel()
	d, _, _ := newTestDispatcher([]int64{1}, map[int64][]error{1: {rateLimited(1), blocked()}})

	out, err := d.Run(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out != (Outcome{Attempted: 1, OtherFailures: 1}) {
		t.Fatalf("Outcome = %+v", out)
	}
}

func TestRunOtherFailuresContinue(t *testing.T) {
	t.Parallel()
	d, sender, clock := newTestDispatcher([]int64{1, 2, 3, 4}, map[int64][]error{
		1: {errors.New("Bad Request: chat not found")},
		3: {errors.New("connection reset")},
	})

	out, err := d.Run(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if out != (Outcome{Attempted: 4, Delivered: 2, OtherFailures: 2}) {
		t.Fatalf("Outcome = %+v", out)
	}
	if len(sender.calls) != 4 {
		t.Fatalf("calls = %v, want one per recipient", sender.calls)
	}
	if len(clock.sleeps) != 2 {
		t.Fatalf("sleeps = %v, want 2", clock.sleeps)
	}
}

func TestRunInvariantMixed(t *testing.T) {
	t.Parallel()
	ids := make([]int64, 0, 50)
	script := map[int64][]error{}
	for i := int64(1); i <= 50; i++ {
		ids = append(ids, i)
		switch i % 5 {
		case 1:
			script[i] = []error{blocked()}
		case 2:
			script[i] = []error{rateLimited(1)}
		case 3:
			script[i] = []error{rateLimited(1), errors.New("boom")}
		case 4:
			script[i] = []error{errors.New("boom")}
		}
	}
	d, _, _ := newTestDispatcher(ids, script)

	out, err := d.Run(context.Background(), "x")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	checkInvariant(t, out)
	want := Outcome{Attempted: 50, Delivered: 20, Blocked: 10, OtherFailures: 20}
	if out != want {
		t.Fatalf("Outcome = %+v, want %+v", out, want)
	}
}

func TestRunMemberListError(t *testing.T) {
	t.Parallel()
	sender := &scriptedSender{script: map[int64][]error{}}
	d := NewDispatcher(sender, staticMembers{err: errors.New("db down")}, WithSleep(func(time.Duration) {}))

	if _, err := d.Run(context.Background(), "x"); err == nil {
		t.Fatal("expected error when member list is unavailable")
	}
	if len(sender.calls) != 0 {
		t.Fatal("nothing must be sent")
	}
}

func TestWithSendDelay(t *testing.T) {
	t.Parallel()
	sender := &scriptedSender{script: map[int64][]error{}}
	var sleeps []time.Duration
	d := NewDispatcher(sender, staticMembers{ids: []int64{1}},
		WithSendDelay(200*time.Millisecond),
		WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }),
	)
	if _, err := d.Run(context.Background(), "x"); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(sleeps) != 1 || sleeps[0] != 200*time.Millisecond {
		t.Fatalf("sleeps = %v, want [200ms]", sleeps)
	}
}

func TestOutcomeSummary(t *testing.T) {
	t.Parallel()
	s := Outcome{Attempted: 3, Delivered: 2, Blocked: 1}.Summary()
	for _, want := range []string{"Всего получателей: 3", "Доставлено: 2", "Заблокировали бота: 1", "Другие ошибки: 0"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary %q misses %q", s, want)
		}
	}
}
