// internal/domain/models/user.go
package models

import "time"

// User mirrors the identity provider's profile. ID is the provider's
// subject id; the record is upserted on every sign-in.
type User struct {
	ID          string    `bson:"_id" json:"uid"`
	DisplayName string    `bson:"display_name" json:"display_name"`
	Email       string    `bson:"email" json:"email"`
	PhotoURL    string    `bson:"photo_url,omitempty" json:"photo_url,omitempty"`
	LastLogin   time.Time `bson:"last_login" json:"last_login"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
