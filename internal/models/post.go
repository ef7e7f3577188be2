package models

import (
	"time"

	"gorm.io/gorm"
)

// PostType identifies the content layout of a post
type PostType string

const (
	PostTypeText  PostType = "text"
	PostTypePhoto PostType = "photo"
	PostTypeQuote PostType = "quote"
	PostTypeLink  PostType = "link"
)

// PostStatus tracks the publication lifecycle of a post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusQueued    PostStatus = "queued"
	PostStatusPublished PostStatus = "published"
)

// Post represents a published or queued blog post
type Post struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Content
	PostType PostType `gorm:"type:varchar(20);not null;default:text" json:"post_type"`
	Title    string   `json:"title"`
	Content  string   `gorm:"type:text" json:"content"`

	// Type-specific fields
	MediaURL    string `json:"media_url,omitempty"`    // photo posts
	QuoteSource string `json:"quote_source,omitempty"` // quote posts
	LinkURL     string `json:"link_url,omitempty"`     // link posts

	// Flags
	IsSensitive bool `gorm:"default:false" json:"is_sensitive"`
	IsPinned    bool `gorm:"default:false" json:"is_pinned"`

	// Publication lifecycle
	Status      PostStatus `gorm:"type:varchar(20);not null;default:published;index" json:"status"`
	PublishedAt *time.Time `gorm:"index" json:"published_at,omitempty"`

	// Engagement metrics (cached counters, incremented on write paths)
	LikeCount    int `gorm:"default:0" json:"like_count"`
	CommentCount int `gorm:"default:0" json:"comment_count"`
	ReblogCount  int `gorm:"default:0" json:"reblog_count"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// EffectivePublishedAt returns the publication time, falling back to the
// creation time for rows that predate the queue feature.
func (p *Post) EffectivePublishedAt() time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

// Tag represents a content tag attached to posts
type Tag struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name       string    `gorm:"uniqueIndex;not null" json:"name"`
	PostCount  int       `gorm:"default:0" json:"post_count"`
	LastUsedAt time.Time `json:"last_used_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PostTag links posts to tags (many-to-many)
type PostTag struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PostID    string    `gorm:"not null;index" json:"post_id"`
	Post      Post      `gorm:"foreignKey:PostID" json:"post,omitempty"`
	TagID     string    `gorm:"not null;index" json:"tag_id"`
	Tag       Tag       `gorm:"foreignKey:TagID" json:"tag,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment represents a comment on a Post
type Comment struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PostID string `gorm:"not null;index" json:"post_id"`
	Post   Post   `gorm:"foreignKey:PostID" json:"-"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Content string `gorm:"type:text;not null" json:"content"`

	// Threading - parent_id is null for top-level comments
	ParentID *string    `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	Parent   *Comment   `gorm:"foreignKey:ParentID" json:"-"`
	Replies  []*Comment `gorm:"foreignKey:ParentID" json:"replies,omitempty"`

	LikeCount int `gorm:"default:0" json:"like_count"`

	// Edit tracking
	IsEdited bool       `gorm:"default:false" json:"is_edited"`
	EditedAt *time.Time `json:"edited_at,omitempty"`

	// Soft delete for "comment removed" placeholders
	IsDeleted bool `gorm:"default:false" json:"is_deleted"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Reblog represents a user resharing another user's post to their own blog
type Reblog struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID         string `gorm:"not null;index" json:"user_id"`
	User           User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OriginalPostID string `gorm:"not null;index" json:"original_post_id"`
	OriginalPost   Post   `gorm:"foreignKey:OriginalPostID" json:"original_post,omitempty"`

	// Optional commentary added on top of the reblogged post
	Comment string `gorm:"type:text" json:"comment,omitempty"`

	// GORM fields
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	if p.Status == PostStatusPublished && p.PublishedAt == nil {
		now := time.Now().UTC()
		p.PublishedAt = &now
	}
	return nil
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateUUID()
	}
	return nil
}

func (pt *PostTag) BeforeCreate(tx *gorm.DB) error {
	if pt.ID == "" {
		pt.ID = generateUUID()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (r *Reblog) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
