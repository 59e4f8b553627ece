package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents the central user entity for logic and database structure.
// ApproverID is a self-reference designating the user's default approver
// (typically their manager); it seeds the initial approval row on change
// request submission.
type User struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name               string     `gorm:"type:varchar(255);not null" json:"name"`
	Email              string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password           *string    `gorm:"type:varchar(255)" json:"-"` // Nullable: OAuth-only accounts carry no password
	EmailVerified      *time.Time `json:"email_verified,omitempty"`
	ApproverID         *uuid.UUID `gorm:"type:uuid" json:"approver_id"`
	Approver           *User      `gorm:"foreignKey:ApproverID;constraint:OnDelete:SET NULL" json:"approver,omitempty"`
	IsTwoFactorEnabled bool       `gorm:"not null;default:false" json:"is_two_factor_enabled"`
	Roles              []Role     `gorm:"many2many:user_roles;constraint:OnDelete:CASCADE" json:"roles,omitempty"`
	Groups             []Group    `gorm:"many2many:user_groups;constraint:OnDelete:CASCADE" json:"groups,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// HasRole reports whether the user holds a role with the given name.
// Checks are existence-based: a user may hold several roles at once.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// GroupIDs returns the ids of all groups the user belongs to.
func (u *User) GroupIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(u.Groups))
	for _, g := range u.Groups {
		ids = append(ids, g.ID)
	}
	return ids
}
