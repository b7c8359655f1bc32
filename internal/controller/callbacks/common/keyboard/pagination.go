package keyboard

import (
	"fmt"

	"github.com/Freeeeeet/studio_scheduler/internal/controller/callbacks/callbacktypes"
	"github.com/go-telegram/bot/models"
)

// PaginationButtons builds ⬅️ n/m ➡️ for a 0-based page; nil for a single page.
func PaginationButtons(prefix string, currentPage, totalPages int) []models.InlineKeyboardButton {
	if totalPages <= 1 {
		return nil
	}

	var buttons []models.InlineKeyboardButton
	if currentPage > 0 {
		buttons = append(buttons, Button("⬅️", fmt.Sprintf("%s%d", prefix, currentPage-1)))
	}
	buttons = append(buttons, Button(fmt.Sprintf("📄 %d/%d", currentPage+1, totalPages), callbacktypes.Noop))
	if currentPage < totalPages-1 {
		buttons = append(buttons, Button("➡️", fmt.Sprintf("%s%d", prefix, currentPage+1)))
	}
	return buttons
}

// Paginate clamps page and returns the bounds of its items.
func Paginate(total, page, pageSize int) (start, end, clamped, pages int) {
	pages = (total + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	clamped = max(0, min(page, pages-1))
	start = clamped * pageSize
	end = min(start+pageSize, total)
	return start, end, clamped, pages
}
