package state

import (
	"sync"
	"time"
)

// Manager keeps per-user dialog state in memory, keyed by Telegram id.
type Manager struct {
	mu     sync.RWMutex
	states map[int64]*UserData
	now    func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		states: make(map[int64]*UserData),
		now:    time.Now,
	}
}

func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		return userData.State
	}
	return StateNone
}

// SetState moves the user to a dialog step. StateNone keeps collected data,
// use ClearState to drop everything.
func (sm *Manager) SetState(telegramID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.entry(telegramID).State = state
}

func (sm *Manager) GetData(telegramID int64, key string) (any, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		value, ok := userData.Data[key]
		return value, ok
	}
	return nil, false
}

func (sm *Manager) SetData(telegramID int64, key string, value any) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.entry(telegramID).Data[key] = value
}

func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}

// BookingDraft returns the user's draft, if a /book dialog is open. Every
// step of the dialog goes through here, so it keeps the dialog alive for Sweep.
func (sm *Manager) BookingDraft(telegramID int64) (*BookingDraft, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	userData, exists := sm.states[telegramID]
	if !exists {
		return nil, false
	}
	draft, ok := userData.Data[KeyBooking].(*BookingDraft)
	if ok {
		userData.UpdatedAt = sm.now()
	}
	return draft, ok
}

// StartBooking replaces any open dialog with a fresh draft.
func (sm *Manager) StartBooking(telegramID int64) *BookingDraft {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
	draft := &BookingDraft{}
	sm.entry(telegramID).Data[KeyBooking] = draft
	return draft
}

// Sweep drops dialogs untouched for longer than maxAge and returns how many were removed.
func (sm *Manager) Sweep(maxAge time.Duration) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	cutoff := sm.now().Add(-maxAge)
	removed := 0
	for id, userData := range sm.states {
		if userData.UpdatedAt.Before(cutoff) {
			delete(sm.states, id)
			removed++
		}
	}
	return removed
}

func (sm *Manager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.states)
}

// entry must be called with mu held.
func (sm *Manager) entry(telegramID int64) *UserData {
	userData, exists := sm.states[telegramID]
	if !exists {
		userData = &UserData{Data: make(map[string]any)}
		sm.states[telegramID] = userData
	}
	userData.UpdatedAt = sm.now()
	return userData
}
