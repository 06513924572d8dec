package bot

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"serotonyl.ru/gatekeeper-bot/internal/bot/filters"
	"serotonyl.ru/gatekeeper-bot/internal/config"
	"serotonyl.ru/gatekeeper-bot/internal/features/joinrequest"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()
	p := NewCommandParser()

	tests := []struct {
		text  string
		cmd   string
		args  []string
		isCmd bool
	}{
		{text: "/panel", cmd: "panel", isCmd: true},
		{text: "  /Panel@gatekeeper_bot  ", cmd: "panel", isCmd: true},
		{text: "/start ref42", cmd: "start", args: []string{"ref42"}, isCmd: true},
		{text: "hello", isCmd: false},
		{text: "/", isCmd: false},
		{text: "/@bot", isCmd: false},
	}
	for _, tt := range tests {
		cmd, args, isCmd := p.ParseCommand(tt.text)
		if cmd != tt.cmd || isCmd != tt.isCmd || !reflect.DeepEqual(args, tt.args) {
			t.Fatalf("ParseCommand(%q) = (%q, %v, %v), want (%q, %v, %v)",
				tt.text, cmd, args, isCmd, tt.cmd, tt.args, tt.isCmd)
		}
	}
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	t.Parallel()
	k := newKeyedMutex()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(7)
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxSeen)
	}
	if k.size() != 0 {
		t.Fatalf("entries left = %d, want 0", k.size())
	}
}

type fakeSource struct {
	ch      chan tgbotapi.Update
	stopped bool
}

func (s *fakeSource) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return s.ch }
func (s *fakeSource) StopReceivingUpdates()                                        { s.stopped = true }

type recorder struct {
	mu        sync.Mutex
	joins     []int64
	panels    int
	messages  []string
	callbacks []string
	texts     []string
}

func (r *recorder) HandleChatJoinRequest(_ context.Context, jr *tgbotapi.ChatJoinRequest) joinrequest.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins = append(r.joins, jr.From.ID)
	return joinrequest.Result{Approved: true}
}

func (r *recorder) HandlePanel(context.Context, *tgbotapi.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels++
}

func (r *recorder) HandleMessage(_ context.Context, m *tgbotapi.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m.Text)
	return true
}

func (r *recorder) HandleCallback(_ context.Context, cb *tgbotapi.CallbackQuery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, cb.Data)
}

func (r *recorder) SendText(_ context.Context, _ int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func private(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: userID, Type: "private"},
		From: &tgbotapi.User{ID: userID},
	}
}

func TestStartRoutesUpdates(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{BotMaxInflight: 4, BotUpdateTimeoutSeconds: 1, RateLimitRPS: 100, RateLimitBurst: 100}
	rec := &recorder{}
	src := &fakeSource{ch: make(chan tgbotapi.Update, 8)}
	b := New(src, cfg, filters.NewChatFilter([]int64{-100}), rec, rec, rec)

	src.ch <- tgbotapi.Update{UpdateID: 1, ChatJoinRequest: &tgbotapi.ChatJoinRequest{
		Chat: tgbotapi.Chat{ID: -100}, From: tgbotapi.User{ID: 11},
	}}
	src.ch <- tgbotapi.Update{UpdateID: 2, ChatJoinRequest: &tgbotapi.ChatJoinRequest{
		Chat: tgbotapi.Chat{ID: -999}, From: tgbotapi.User{ID: 12},
	}}
	src.ch <- tgbotapi.Update{UpdateID: 3, Message: private(5, "/panel")}
	src.ch <- tgbotapi.Update{UpdateID: 4, Message: private(6, "/start")}
	src.ch <- tgbotapi.Update{UpdateID: 5, Message: &tgbotapi.Message{
		Text: "/panel", Chat: &tgbotapi.Chat{ID: -5, Type: "group"}, From: &tgbotapi.User{ID: 7},
	}}
	src.ch <- tgbotapi.Update{UpdateID: 6, CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "q", Data: "stats", From: &tgbotapi.User{ID: 5}, Message: private(5, ""),
	}}
	src.ch <- tgbotapi.Update{UpdateID: 7, Message: private(8, "/broadcast text")}
	close(src.ch)

	done := make(chan struct{})
	go func() {
		b.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after updates channel closed")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !reflect.DeepEqual(rec.joins, []int64{11}) {
		t.Fatalf("joins = %v, want only allowlisted chat", rec.joins)
	}
	if rec.panels != 1 {
		t.Fatalf("panels = %d, want 1 (group message ignored)", rec.panels)
	}
	if len(rec.texts) != 1 || rec.texts[0] != helpText {
		t.Fatalf("help texts = %v", rec.texts)
	}
	if !reflect.DeepEqual(rec.callbacks, []string{"stats"}) {
		t.Fatalf("callbacks = %v", rec.callbacks)
	}
	if !reflect.DeepEqual(rec.messages, []string{"/broadcast text"}) {
		t.Fatalf("messages = %v", rec.messages)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{BotMaxInflight: 1, BotUpdateTimeoutSeconds: 1, RateLimitRPS: 1, RateLimitBurst: 1}
	rec := &recorder{}
	src := &fakeSource{ch: make(chan tgbotapi.Update)}
	b := New(src, cfg, filters.NewChatFilter(nil), rec, rec, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if !src.stopped {
		t.Fatal("StopReceivingUpdates not called")
	}
}
