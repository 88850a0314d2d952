// internal/app/system/authz/authz.go
package authz

import (
	"strings"

	"github.com/dalemusser/fundhub/internal/app/system/normalize"
	"github.com/dalemusser/fundhub/internal/domain/models"
)

// DefaultAdminEmail is the administrator used when none are configured.
const DefaultAdminEmail = "admin@fundhub.local"

// Admins is the static administrator allow-list.
type Admins struct {
	emails map[string]struct{}
}

// NewAdmins builds the allow-list from configured emails. Blank entries are
// ignored; an empty list falls back to DefaultAdminEmail.
func NewAdmins(emails []string) *Admins {
	a := &Admins{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		if e = normalize.Email(e); e != "" {
			a.emails[e] = struct{}{}
		}
	}
	if len(a.emails) == 0 {
		a.emails[DefaultAdminEmail] = struct{}{}
	}
	return a
}

// ParseList splits a comma separated config value.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsAdmin reports whether email is on the allow-list.
func (a *Admins) IsAdmin(email string) bool {
	if a == nil {
		return false
	}
	_, ok := a.emails[normalize.Email(email)]
	return ok
}

// Len returns how many administrators are configured.
func (a *Admins) Len() int {
	if a == nil {
		return 0
	}
	return len(a.emails)
}

// CanManageCampaign reports whether the caller may act for a campaign's
// organizer: they signed in with the organizer email, or they are an admin.
func (a *Admins) CanManageCampaign(email string, c models.Campaign) bool {
	email = normalize.Email(email)
	if email == "" {
		return false
	}
	return email == normalize.Email(c.Organizer.Email) || a.IsAdmin(email)
}
