package publish

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/jfoltran/uiregistry/internal/board"
	"github.com/jfoltran/uiregistry/internal/counter/countertest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeToken struct {
	mqtt.Token
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	Topic    string
	Retained bool
	Payload  string
}

type fakeClient struct {
	mu      sync.Mutex
	msgs    []message
	err     error
	timeout bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, message{Topic: topic, Retained: retained, Payload: string(payload.([]byte))})
	return &fakeToken{err: c.err, timeout: c.timeout}
}

func (c *fakeClient) messages() []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func newBoard(t *testing.T) *board.Board {
	t.Helper()
	b := board.New(zerolog.Nop(), board.Options{
		Clock:             countertest.NewClock(),
		Scheduler:         countertest.NewScheduler(),
		BroadcastInterval: time.Hour,
	})
	t.Cleanup(b.Close)
	return b
}

func TestPublisher_Publish(t *testing.T) {
	client := &fakeClient{}
	p := New(client, newBoard(t), Options{Topic: "site/board"}, zerolog.Nop())

	snap := board.Snapshot{Counters: []board.CounterState{
		{Name: "revenue", Display: "$12,500"},
		{Name: "uptime", Display: "98.5%"},
	}}
	if err := p.Publish(snap); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	msgs := client.messages()
	if len(msgs) != 3 {
		t.Fatalf("published %d messages, want 3", len(msgs))
	}
	var decoded board.Snapshot
	if err := json.Unmarshal([]byte(msgs[0].Payload), &decoded); err != nil {
		t.Fatalf("snapshot payload: %v", err)
	}
	if msgs[0].Topic != "site/board" || msgs[0].Retained || len(decoded.Counters) != 2 {
		t.Errorf("snapshot message = %+v", msgs[0])
	}
	want := []message{
		{Topic: "site/board/counters/revenue", Retained: true, Payload: "$12,500"},
		{Topic: "site/board/counters/uptime", Retained: true, Payload: "98.5%"},
	}
	if diff := cmp.Diff(want, msgs[1:]); diff != "" {
		t.Errorf("counter messages mismatch (-want +got):\n%s", diff)
	}

	// Unchanged displays are not re-sent.
	snap.Counters[1].Display = "99.0%"
	if err := p.Publish(snap); err != nil {
		t.Fatal(err)
	}
	msgs = client.messages()
	if len(msgs) != 5 || msgs[4].Topic != "site/board/counters/uptime" {
		t.Errorf("second publish sent %+v", msgs[3:])
	}
	if p.Sent() != 2 {
		t.Errorf("Sent() = %d, want 2", p.Sent())
	}
}

func TestPublisher_Errors(t *testing.T) {
	boom := errors.New("not authorized")
	p := New(&fakeClient{err: boom}, newBoard(t), Options{Topic: "t"}, zerolog.Nop())
	if err := p.Publish(board.Snapshot{}); !errors.Is(err, boom) {
		t.Errorf("Publish() = %v, want %v", err, boom)
	}

	p = New(&fakeClient{timeout: true}, newBoard(t), Options{Topic: "t"}, zerolog.Nop())
	if err := p.Publish(board.Snapshot{}); !errors.Is(err, ErrTimeout) {
		t.Errorf("Publish() = %v, want ErrTimeout", err)
	}
}

func TestPublisher_RunForwardsBoardChanges(t *testing.T) {
	b := newBoard(t)
	client := &fakeClient{}
	p := New(client, b, Options{Topic: "board", Interval: 5 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	if err := b.Add(board.CounterSpec{Name: "users", Target: 4280, UseLocale: true}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(client.messages()) == 0 && time.Now().Before(deadline) {
		// Run may not have subscribed yet, so keep marking the board dirty.
		b.RecordError(nil)
		b.Flush()
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	msgs := client.messages()
	if len(msgs) == 0 {
		t.Fatal("nothing published")
	}
	if msgs[0].Topic != "board" {
		t.Errorf("first topic = %q, want board", msgs[0].Topic)
	}
}
