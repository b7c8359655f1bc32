package callbacktypes

import (
	"testing"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRespond(t *testing.T) {
	id := "6f1c2b7e-3f1a-4c55-9a0e-2d3b4c5d6e7f"

	tests := []struct {
		name    string
		data    string
		id      string
		status  model.ResponseStatus
		wantErr bool
	}{
		{name: "confirmed", data: RespondData(id, model.ResponseConfirmed), id: id, status: model.ResponseConfirmed},
		{name: "declined", data: RespondData(id, model.ResponseDeclined), id: id, status: model.ResponseDeclined},
		{name: "pending is not an answer", data: RespondData(id, model.ResponsePending), wantErr: true},
		{name: "missing status", data: Respond + id, wantErr: true},
		{name: "missing id", data: Respond + ":confirmed", wantErr: true},
		{name: "other prefix", data: ViewSession + id, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, status, err := ParseRespond(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, gotID)
			assert.Equal(t, tt.status, status)
		})
	}

	assert.LessOrEqual(t, len(RespondData(id, model.ResponseConfirmed)), 64)
}

func TestParseSlot(t *testing.T) {
	date, slot, err := ParseSlot(SlotData("2025-03-10", "14:00"))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", date)
	assert.Equal(t, "14:00", slot)

	_, _, err = ParseSlot(SlotData("2025-03-10", "12:00"))
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, _, err = ParseSlot(BookSlot + "2025-03-10")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestSuffix(t *testing.T) {
	got, err := Suffix("book_studio:barra", BookStudio)
	require.NoError(t, err)
	assert.Equal(t, "barra", got)

	_, err = Suffix(BookStudio, BookStudio)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
