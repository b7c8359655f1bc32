package formatting

import "github.com/Freeeeeet/studio_scheduler/internal/model"

type StatusDisplay struct {
	Emoji string
	Text  string
}

func GetResponseStatusDisplay(status model.ResponseStatus) StatusDisplay {
	displays := map[model.ResponseStatus]StatusDisplay{
		model.ResponsePending:   {"⏳", "Pending"},
		model.ResponseConfirmed: {"✅", "Confirmed"},
		model.ResponseDeclined:  {"🚫", "Declined"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return StatusDisplay{"❓", "Unknown"}
}

func GetSessionStatusDisplay(status model.SessionStatus) StatusDisplay {
	displays := map[model.SessionStatus]StatusDisplay{
		model.SessionStatusActive:    {"🟢", "Active"},
		model.SessionStatusCanceled:  {"❌", "Canceled"},
		model.SessionStatusCompleted: {"✔️", "Completed"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return StatusDisplay{"❓", "Unknown"}
}
