package model

import (
	"time"

	"github.com/google/uuid"
)

// Request and approval status values
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Built-in request type names
const (
	RequestTypeChange = "IT Change Request"
	RequestTypeAsset  = "Asset Request"
)

// RequestType is a template/category of request owned by at most one group.
// Schema is an advisory JSON form description consumed by clients; the
// server validates known types through typed payloads instead.
type RequestType struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	GroupID     *uuid.UUID `gorm:"type:uuid;index" json:"group_id"`
	Group       *Group     `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Schema      string     `gorm:"type:jsonb;not null;default:'{}'" json:"schema"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Request is a submitted change or asset request. Status is mutated only
// by the approval aggregation rule: rejected as soon as any approval is
// rejected, approved once every approval is approved.
type Request struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title         string       `gorm:"type:varchar(255);not null" json:"title"`
	Description   string       `gorm:"type:text" json:"description"`
	UserID        uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	RequestTypeID uuid.UUID    `gorm:"type:uuid;not null;index" json:"request_type_id"`
	RequestType   *RequestType `gorm:"foreignKey:RequestTypeID" json:"request_type,omitempty"`
	Data          string       `gorm:"type:jsonb;not null;default:'{}'" json:"data"`
	Status        string       `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Approvals     []Approval   `gorm:"foreignKey:RequestID" json:"approvals,omitempty"`
	Attachments   []Attachment `gorm:"foreignKey:RequestID" json:"attachments,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Approval is a single approver's verdict on a request. ApproverID may be
// reassigned when a different authorized manager or admin claims a still
// pending approval.
type Approval struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID  uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	Request    *Request  `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"request,omitempty"`
	ApproverID uuid.UUID `gorm:"type:uuid;not null;index" json:"approver_id"`
	Approver   *User     `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	Status     string    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Notes      *string   `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Attachment references an uploaded file belonging to a request.
// Immutable after creation; removed together with its request.
type Attachment struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	Request   *Request  `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"-"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FileURL   string    `gorm:"type:text;not null" json:"file_url"`
	FileSize  string    `gorm:"type:varchar(50)" json:"file_size"`
	FileType  string    `gorm:"type:varchar(100)" json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
}

// AggregateStatus derives a request status from its approval rows:
// any rejection wins immediately, approval requires unanimity, and an
// empty set stays pending.
func AggregateStatus(approvals []Approval) string {
	if len(approvals) == 0 {
		return StatusPending
	}
	allApproved := true
	for _, a := range approvals {
		switch a.Status {
		case StatusRejected:
			return StatusRejected
		case StatusApproved:
		default:
			allApproved = false
		}
	}
	if allApproved {
		return StatusApproved
	}
	return StatusPending
}
