package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Profile is an identity record. PasswordHash is a bcrypt digest and never
// leaves the service layer.
type Profile struct {
	bun.BaseModel `bun:"table:profiles"`

	ID           int64     `bun:",pk,autoincrement" json:"id"`
	Email        string    `bun:"email" json:"email"`
	PasswordHash string    `bun:"password_hash" json:"-"`
	Role         Role      `bun:"role" json:"role"`
	DisplayName  string    `bun:"display_name" json:"displayName"`
	Contact      string    `bun:"contact" json:"contact"`
	Address      string    `bun:"address" json:"address"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero" json:"updatedAt"`
}

// HasRole reports whether the profile's role is in the allowed set. An empty
// set allows any authenticated profile.
func (p *Profile) HasRole(allowed ...Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if p.Role == r {
			return true
		}
	}
	return false
}
