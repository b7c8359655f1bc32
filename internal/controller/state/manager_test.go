package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_StateAndData(t *testing.T) {
	sm := NewManager()

	assert.Equal(t, StateNone, sm.GetState(1))

	sm.SetState(1, StateCancelReason)
	sm.SetData(1, KeyCancelSessionID, "abc")
	assert.Equal(t, StateCancelReason, sm.GetState(1))

	v, ok := sm.GetData(1, KeyCancelSessionID)
	require.True(t, ok)
	assert.Equal(t, "abc", v)

	_, ok = sm.GetData(2, KeyCancelSessionID)
	assert.False(t, ok)

	sm.ClearState(1)
	assert.Equal(t, StateNone, sm.GetState(1))
	assert.Equal(t, 0, sm.Len())
}

func TestManager_StartBookingResetsDialog(t *testing.T) {
	sm := NewManager()
	sm.SetState(7, StateCancelReason)
	sm.SetData(7, KeyCancelSessionID, "abc")

	draft := sm.StartBooking(7)
	draft.StudioID = "barra"

	assert.Equal(t, StateNone, sm.GetState(7))
	_, ok := sm.GetData(7, KeyCancelSessionID)
	assert.False(t, ok)

	got, ok := sm.BookingDraft(7)
	require.True(t, ok)
	assert.Equal(t, "barra", got.StudioID)
}

func TestManager_Sweep(t *testing.T) {
	sm := NewManager()
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	sm.SetState(1, StateBookingStudentSearch)
	now = now.Add(40 * time.Minute)
	sm.SetState(2, StateCancelReason)

	assert.Equal(t, 1, sm.Sweep(30*time.Minute))
	assert.Equal(t, StateNone, sm.GetState(1))
	assert.Equal(t, StateCancelReason, sm.GetState(2))
}

func TestBookingDraft_Toggle(t *testing.T) {
	d := &BookingDraft{}
	d.Toggle(3)
	d.Toggle(5)
	assert.True(t, d.IsSelected(3))
	assert.Equal(t, []int64{3, 5}, d.StudentIDs)

	d.Toggle(3)
	assert.False(t, d.IsSelected(3))
	assert.Equal(t, []int64{5}, d.StudentIDs)

	assert.False(t, d.HasSlot())
	d.Date, d.Time = "2025-03-10", "14:00"
	assert.True(t, d.HasSlot())
	d.Time = "12:00"
	assert.False(t, d.HasSlot())
}

func TestManager_SweepKeepsDraftInUse(t *testing.T) {
	sm := NewManager()
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	draft := sm.StartBooking(1)
	draft.StudioID = "barra"
	sm.StartBooking(2)

	// user 1 keeps picking options, which only reads the draft
	for i := 0; i < 3; i++ {
		now = now.Add(20 * time.Minute)
		_, ok := sm.BookingDraft(1)
		require.True(t, ok)
	}

	assert.Equal(t, 1, sm.Sweep(30*time.Minute))
	got, ok := sm.BookingDraft(1)
	require.True(t, ok)
	assert.Equal(t, "barra", got.StudioID)
	_, ok = sm.BookingDraft(2)
	assert.False(t, ok)

	_, ok = sm.BookingDraft(3)
	assert.False(t, ok)
	assert.Equal(t, 1, sm.Len())
}
