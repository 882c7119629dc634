package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablestack/pokerserver/internal/engine"
)

type fakeReceiver struct {
	id  string
	mu  sync.Mutex
	got []any
}

func (f *fakeReceiver) PlayerID() string { return f.id }
func (f *fakeReceiver) SendMessage(msg any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, msg)
}
func (f *fakeReceiver) messages() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.got...)
}

type plainMsg struct{ Text string }

type personalizedMsg struct{}

func (personalizedMsg) For(viewerID string) any { return "for:" + viewerID }

func TestDispatchBroadcastsPlainMessageToAllReceivers(t *testing.T) {
	r1 := &fakeReceiver{id: "p1"}
	r2 := &fakeReceiver{id: "p2"}
	router := New(func(tableID string) []Receiver { return []Receiver{r1, r2} }, nil)

	router.dispatch(context.Background(), engine.Event{TableID: "t1", Message: plainMsg{Text: "hi"}})

	require.Len(t, r1.messages(), 1)
	require.Len(t, r2.messages(), 1)
	assert.Equal(t, plainMsg{Text: "hi"}, r1.messages()[0])
}

func TestDispatchPersonalizesMessageImplementingPersonalized(t *testing.T) {
	r1 := &fakeReceiver{id: "p1"}
	r2 := &fakeReceiver{id: "p2"}
	router := New(func(tableID string) []Receiver { return []Receiver{r1, r2} }, nil)

	router.dispatch(context.Background(), engine.Event{TableID: "t1", Message: personalizedMsg{}})

	assert.Equal(t, "for:p1", r1.messages()[0])
	assert.Equal(t, "for:p2", r2.messages()[0])
}

func TestDispatchSkipsTableWithNoReceivers(t *testing.T) {
	router := New(func(tableID string) []Receiver { return nil }, nil)
	router.dispatch(context.Background(), engine.Event{TableID: "ghost", Message: plainMsg{Text: "hi"}})
}

func TestRunDrainsUntilChannelClosesOrContextCanceled(t *testing.T) {
	g := engine.NewGame("t1", engine.Config{SmallBlind: 5, BigBlind: 10}, nil)
	r1 := &fakeReceiver{id: "p1"}
	router := New(func(tableID string) []Receiver { return []Receiver{r1} }, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		router.Run(ctx, g)
		close(done)
	}()

	g.Seat("p1", "P1", 1000)
	g.Seat("p2", "P2", 1000)
	g.MaybeStart()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.NotEmpty(t, r1.messages())
}
