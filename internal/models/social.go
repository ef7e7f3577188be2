package models

import (
	"time"

	"gorm.io/gorm"
)

// Follow represents one user following another
type Follow struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	FollowerID  string `gorm:"not null;index" json:"follower_id"`
	Follower    User   `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	FollowingID string `gorm:"not null;index" json:"following_id"`
	Following   User   `gorm:"foreignKey:FollowingID" json:"following,omitempty"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TagFollow represents a user following a tag
type TagFollow struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TagID  string `gorm:"not null;index" json:"tag_id"`
	Tag    Tag    `gorm:"foreignKey:TagID" json:"tag,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Like represents a user liking a post
type Like struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PostID string `gorm:"not null;index" json:"post_id"`
	Post   Post   `gorm:"foreignKey:PostID" json:"post,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// CommentLike represents a user liking a comment
type CommentLike struct {
	ID        string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string  `gorm:"not null;index" json:"user_id"`
	CommentID string  `gorm:"not null;index" json:"comment_id"`
	Comment   Comment `gorm:"foreignKey:CommentID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// NotificationType identifies what triggered a notification
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationReblog  NotificationType = "reblog"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
	NotificationMessage NotificationType = "message"
)

// Notification represents an activity notification for a user
type Notification struct {
	ID      string           `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID  string           `gorm:"not null;index" json:"user_id"`
	User    User             `gorm:"foreignKey:UserID" json:"-"`
	ActorID string           `gorm:"not null" json:"actor_id"`
	Actor   User             `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Type    NotificationType `gorm:"type:varchar(20);not null" json:"type"`

	// Optional references to the content that triggered the notification
	PostID    *string `gorm:"type:uuid" json:"post_id,omitempty"`
	CommentID *string `gorm:"type:uuid" json:"comment_id,omitempty"`

	IsRead bool `gorm:"default:false" json:"is_read"`
	IsSeen bool `gorm:"default:false" json:"is_seen"`

	CreatedAt time.Time `json:"created_at"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

func (tf *TagFollow) BeforeCreate(tx *gorm.DB) error {
	if tf.ID == "" {
		tf.ID = generateUUID()
	}
	return nil
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (cl *CommentLike) BeforeCreate(tx *gorm.DB) error {
	if cl.ID == "" {
		cl.ID = generateUUID()
	}
	return nil
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}
