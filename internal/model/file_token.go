package model

import (
	"time"

	"github.com/google/uuid"
)

// FileToken is a time-limited capability for downloading a stored file.
// Anyone holding the token may download until Expires; expired tokens
// resolve as not-found and are removed by the periodic sweep.
type FileToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	FileID    string    `gorm:"type:varchar(255);not null;index" json:"file_id"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FileType  string    `gorm:"type:varchar(100)" json:"file_type"`
	Expires   time.Time `gorm:"not null;index" json:"expires"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the token is past its validity window.
func (t *FileToken) Expired(now time.Time) bool {
	return t.Expires.Before(now)
}
