// internal/app/features/systemusers/list.go
package systemusers

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/paging"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/text"
)

// ServeList handles GET /admin/users?q=&start=&limit=.
//
// Users are ordered by most recent sign-in. q matches a prefix of the
// display name (accent and case folded) or of the email.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	all, err := h.Users.List(ctx)
	if err != nil {
		httpjson.Error(w, h.Log, "list users", err)
		return
	}

	if q := strings.TrimSpace(query.Get(r, "q")); q != "" {
		all = filter(all, q)
	}
	httpjson.OK(w, paging.Slice(all, paging.Parse(r)))
}

func filter(users []models.User, q string) []models.User {
	qFold := text.Fold(q)
	qLower := strings.ToLower(q)

	out := []models.User{}
	for _, u := range users {
		if strings.HasPrefix(text.Fold(u.DisplayName), qFold) || strings.HasPrefix(strings.ToLower(u.Email), qLower) {
			out = append(out, u)
		}
	}
	return out
}
