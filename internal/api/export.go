package api

import (
	"encoding/csv"
	"net/http"
	"time"

	"github.com/supportdesk/intake-engine/internal/store"
)

type ExportHandler struct {
	agent IntakeAgent
}

func NewExportHandler(agent IntakeAgent) *ExportHandler {
	return &ExportHandler{agent: agent}
}

// WorkItemsCSV streams the tenant's work items as CSV, paging through the
// store until it runs out of items.
func (h *ExportHandler) WorkItemsCSV(w http.ResponseWriter, r *http.Request) {
	// Probe the first page before committing to CSV headers so store
	// failures still surface as a JSON error.
	items, err := h.agent.List(r.Context(), tenantFrom(r), store.ListOptions{
		Limit: store.MaxListLimit,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to export work items")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="workitems.csv"`)

	cw := csv.NewWriter(w)
	cw.Write([]string{"id", "status", "priority", "category", "source", "sender", "subject", "owner_id", "due_at", "created_at", "updated_at"})

	offset := 0
	for {
		for _, item := range items {
			cw.Write([]string{
				item.ID,
				string(item.Status),
				string(item.Priority),
				csvCell(item.Category),
				string(item.Source),
				csvCell(item.Sender),
				csvCell(strDeref(item.Subject)),
				csvCell(strDeref(item.OwnerID)),
				timeCell(item.DueAt),
				item.CreatedAt.UTC().Format(time.RFC3339),
				item.UpdatedAt.UTC().Format(time.RFC3339),
			})
		}

		// A short page means the tenant has no more items.
		if len(items) < store.MaxListLimit {
			break
		}
		offset += len(items)

		items, err = h.agent.List(r.Context(), tenantFrom(r), store.ListOptions{
			Limit:  store.MaxListLimit,
			Offset: offset,
		})
		if err != nil {
			// Headers are already on the wire; stop the stream.
			break
		}
	}
	cw.Flush()
}

// csvCell defuses spreadsheet formula injection: a leading = + - or @
// would otherwise be executed by Excel and friends when the export is
// opened.
func csvCell(val string) string {
	if val == "" {
		return val
	}
	switch val[0] {
	case '=', '+', '-', '@':
		return "'" + val
	}
	return val
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
