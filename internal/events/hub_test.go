package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestHub_PublishFanOut(t *testing.T) {
	hub := NewHub(zap.NewNop())

	a, cancelA := hub.Subscribe(4)
	defer cancelA()
	b, cancelB := hub.Subscribe(4)
	defer cancelB()

	hub.Publish(Event{Kind: KindSessionCreated, SessionID: "s1"})

	for _, ch := range []<-chan Event{a, b} {
		e := receive(t, ch)
		assert.Equal(t, KindSessionCreated, e.Kind)
		assert.Equal(t, "s1", e.SessionID)
		assert.Equal(t, hub.Origin(), e.Origin)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.At.IsZero())
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	hub := NewHub(nil)

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Publish(Event{Kind: KindSessionCreated})
	hub.Publish(Event{Kind: KindSessionCanceled})

	assert.Equal(t, int64(1), hub.Dropped())
	assert.Equal(t, KindSessionCreated, receive(t, ch).Kind)
}

func TestHub_UnsubscribeAndClose(t *testing.T) {
	hub := NewHub(nil)

	ch, cancel := hub.Subscribe(1)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	other, _ := hub.Subscribe(1)
	hub.Close()
	_, ok = <-other
	assert.False(t, ok)

	hub.Publish(Event{Kind: KindSessionCreated})

	late, _ := hub.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
}

func TestEvent_Concerns(t *testing.T) {
	e := Event{Kind: KindSessionCreated, ProfessorID: 1, StudentIDs: []int64{11, 12}}

	tests := []struct {
		name   string
		event  Event
		userID int64
		want   bool
	}{
		{"professor", e, 1, true},
		{"invited student", e, 12, true},
		{"stranger", e, 99, false},
		{"responder", Event{Kind: KindStudentResponded, StudentID: 5}, 5, true},
		{"cleared", Event{Kind: KindSessionsCleared}, 99, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.Concerns(tt.userID))
		})
	}
}

func TestRedisBridge_ReceiveDropsEcho(t *testing.T) {
	hub := NewHub(nil)
	bridge := NewRedisBridge(nil, hub, "", zap.NewNop())
	assert.Equal(t, DefaultChannel, bridge.channel)

	ch, cancel := hub.Subscribe(4)
	defer cancel()

	own, err := json.Marshal(Event{ID: "e1", Kind: KindSessionCreated, Origin: hub.Origin()})
	require.NoError(t, err)
	bridge.receive(string(own))

	remote, err := json.Marshal(Event{ID: "e2", Kind: KindSessionCanceled, Origin: "other-instance"})
	require.NoError(t, err)
	bridge.receive(string(remote))

	bridge.receive("not json")

	e := receive(t, ch)
	assert.Equal(t, "e2", e.ID)
	assert.Equal(t, "other-instance", e.Origin)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected event %v", extra)
	default:
	}
}
