package handler

import (
	"github.com/google/uuid"
	"github.com/kiranshivaraju/loghunter/internal/api/response"
)

// cursorMeta builds a CursorMeta from the last item in a page: its id is
// the cursor a client passes back for the next page, present only when
// the store reported more rows beyond this page.
func cursorMeta[T any](items []T, hasMore bool, idOf func(i int) uuid.UUID) response.CursorMeta {
	if !hasMore || len(items) == 0 {
		return response.CursorMeta{HasMore: false}
	}
	next := idOf(len(items) - 1).String()
	return response.CursorMeta{NextCursor: &next, HasMore: true}
}
