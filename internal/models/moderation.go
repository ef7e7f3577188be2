package models

import (
	"time"

	"gorm.io/gorm"
)

// ReportReason represents the reason for a report
type ReportReason string

const (
	ReportReasonSpam          ReportReason = "spam"
	ReportReasonHarassment    ReportReason = "harassment"
	ReportReasonCopyright     ReportReason = "copyright"
	ReportReasonInappropriate ReportReason = "inappropriate"
	ReportReasonViolence      ReportReason = "violence"
	ReportReasonOther         ReportReason = "other"
)

// ValidReportReason reports whether the reason is one of the accepted values
func ValidReportReason(r string) bool {
	switch ReportReason(r) {
	case ReportReasonSpam, ReportReasonHarassment, ReportReasonCopyright,
		ReportReasonInappropriate, ReportReasonViolence, ReportReasonOther:
		return true
	}
	return false
}

// ReportStatus represents the status of a report
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusReviewing ReportStatus = "reviewing"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// ReportTargetType represents what type of content is being reported
type ReportTargetType string

const (
	ReportTargetPost    ReportTargetType = "post"
	ReportTargetComment ReportTargetType = "comment"
	ReportTargetUser    ReportTargetType = "user"
)

// Report represents a user report for moderation
type Report struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReporterID string `gorm:"not null;index" json:"reporter_id"`
	Reporter   User   `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`

	// Target of the report
	TargetType   ReportTargetType `gorm:"not null" json:"target_type"`
	TargetID     string           `gorm:"not null;index" json:"target_id"`
	TargetUserID *string          `gorm:"index" json:"target_user_id"` // author of the reported content

	// Report details
	Reason      ReportReason `gorm:"not null" json:"reason"`
	Description string       `gorm:"type:text" json:"description"`
	Status      ReportStatus `gorm:"default:pending" json:"status"`

	// Moderation action
	ModeratorID *string `gorm:"index" json:"moderator_id"`
	Moderator   *User   `gorm:"foreignKey:ModeratorID" json:"moderator,omitempty"`
	ActionTaken string   `gorm:"type:text" json:"action_taken"` // "warned", "removed", "banned", etc.

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// UserBlock represents a user blocking another user
type UserBlock struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	BlockerID string `gorm:"not null;index" json:"blocker_id"`
	Blocker   User   `gorm:"foreignKey:BlockerID" json:"blocker,omitempty"`
	BlockedID string `gorm:"not null;index" json:"blocked_id"`
	Blocked   User   `gorm:"foreignKey:BlockedID" json:"blocked,omitempty"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Ensure unique constraint: one block per user pair
func (UserBlock) TableName() string {
	return "user_blocks"
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

func (b *UserBlock) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = generateUUID()
	}
	return nil
}
