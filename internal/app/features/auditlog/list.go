// internal/app/features/auditlog/list.go
package auditlog

import (
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/fundhub/internal/app/store/audit"
	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/normalize"
	"github.com/dalemusser/fundhub/internal/app/system/paging"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

const dateLayout = "2006-01-02"

// ServeList handles GET /admin/audit.
//
// Filters: category, event_type, actor (email), target, start_date and
// end_date (YYYY-MM-DD, UTC, end date inclusive). Paged with start/limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p := paging.Parse(r)

	filter, err := parseFilter(r)
	if err != nil {
		httpjson.Error(w, h.Log, "audit log list", err)
		return
	}
	filter.Limit = int64(p.Limit)
	filter.Offset = int64(p.Start - 1)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		httpjson.Error(w, h.Log, "audit log list", err)
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		httpjson.Error(w, h.Log, "audit log count", err)
		return
	}

	httpjson.OK(w, paging.Page[audit.Event]{
		Items: events,
		Range: paging.ComputeRange(p.Start, len(events), int(total), p.Limit),
	})
}

// ServeCategories handles GET /admin/audit/categories, the filter options.
func (h *Handler) ServeCategories(w http.ResponseWriter, r *http.Request) {
	httpjson.OK(w, map[string]any{"categories": allCategories()})
}

func parseFilter(r *http.Request) (audit.QueryFilter, error) {
	f := audit.QueryFilter{
		Category:  normalize.Category(query.Get(r, "category")),
		EventType: strings.TrimSpace(query.Get(r, "event_type")),
		Actor:     normalize.Email(query.Get(r, "actor")),
		Target:    strings.TrimSpace(query.Get(r, "target")),
	}

	if f.Category != "" && eventTypesForCategory(f.Category) == nil {
		return f, apperr.Validation("category", "Unknown category.")
	}

	if s := strings.TrimSpace(query.Get(r, "start_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, apperr.Validation("start_date", "Start date must be YYYY-MM-DD.")
		}
		f.StartTime = &t
	}
	if s := strings.TrimSpace(query.Get(r, "end_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, apperr.Validation("end_date", "End date must be YYYY-MM-DD.")
		}
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &endOfDay
	}
	return f, nil
}
