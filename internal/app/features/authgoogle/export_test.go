package authgoogle

import "context"

// Profile is the subset of the Google profile tests fake.
type Profile struct {
	ID    string
	Email string
	Name  string
}

// SetProfileFetcher replaces the code exchange with fn.
func (h *Handler) SetProfileFetcher(fn func(ctx context.Context, code string) (Profile, error)) {
	h.fetchProfile = func(ctx context.Context, code string) (googleUserInfo, error) {
		p, err := fn(ctx, code)
		return googleUserInfo{ID: p.ID, Email: p.Email, Name: p.Name, EmailVerified: true}, err
	}
}
