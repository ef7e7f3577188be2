package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/stats"
	"github.com/inkwell-social/inkwell/internal/util"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// PostView is the post shape returned by list and detail endpoints
type PostView struct {
	ID          string               `json:"id"`
	AuthorID    string               `json:"author_id"`
	Author      models.AuthorSummary `json:"author"`
	PostType    models.PostType      `json:"post_type"`
	Title       string               `json:"title,omitempty"`
	Content     string               `json:"content"`
	MediaURL    string               `json:"media_url,omitempty"`
	QuoteSource string               `json:"quote_source,omitempty"`
	LinkURL     string               `json:"link_url,omitempty"`
	IsSensitive bool                 `json:"is_sensitive"`
	IsPinned    bool                 `json:"is_pinned"`
	IsOwn       bool                 `json:"is_own"`
	Status      models.PostStatus    `json:"status"`
	CreatedAt   string               `json:"created_at"`
	PublishedAt string               `json:"published_at,omitempty"`

	LikeCount    int `json:"like_count"`
	CommentCount int `json:"comment_count"`
	ReblogCount  int `json:"reblog_count"`

	HasLiked     bool `json:"has_liked"`
	HasReblogged bool `json:"has_reblogged"`

	Tags []stats.TagRef `json:"tags"`
}

// shapePosts batches the engagement lookups for a page of posts and builds
// the response views. Posts must have User preloaded.
func (h *Handlers) shapePosts(c *gin.Context, posts []models.Post, viewerID string) ([]PostView, error) {
	if len(posts) == 0 {
		return []PostView{}, nil
	}

	postIDs := make([]string, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}
	snapshot, err := h.stats.PostStats(c.Request.Context(), postIDs, viewerID)
	if err != nil {
		return nil, err
	}

	views := make([]PostView, len(posts))
	for i, p := range posts {
		tags := snapshot.Tags[p.ID]
		if tags == nil {
			tags = []stats.TagRef{}
		}
		view := PostView{
			ID:           p.ID,
			AuthorID:     p.UserID,
			Author:       p.User.Summary(),
			PostType:     p.PostType,
			Title:        p.Title,
			Content:      p.Content,
			MediaURL:     p.MediaURL,
			QuoteSource:  p.QuoteSource,
			LinkURL:      p.LinkURL,
			IsSensitive:  p.IsSensitive,
			IsPinned:     p.IsPinned,
			IsOwn:        p.UserID == viewerID,
			Status:       p.Status,
			CreatedAt:    util.RelativeTime(p.CreatedAt),
			LikeCount:    snapshot.LikeCounts[p.ID],
			CommentCount: snapshot.CommentCounts[p.ID],
			ReblogCount:  snapshot.ReblogCounts[p.ID],
			HasLiked:     snapshot.ViewerLiked[p.ID],
			HasReblogged: snapshot.ViewerReblog[p.ID],
			Tags:         tags,
		}
		if p.PublishedAt != nil {
			view.PublishedAt = p.PublishedAt.UTC().Format(time.RFC3339)
		}
		views[i] = view
	}
	return views, nil
}

type createPostRequest struct {
	PostType    models.PostType `json:"post_type" binding:"required,oneof=text photo quote link"`
	Title       string          `json:"title" binding:"max=200"`
	Content     string          `json:"content" binding:"max=20000"`
	MediaURL    string          `json:"media_url" binding:"omitempty,url,max=2000"`
	QuoteSource string          `json:"quote_source" binding:"max=500"`
	LinkURL     string          `json:"link_url" binding:"omitempty,url,max=2000"`
	IsSensitive bool            `json:"is_sensitive"`
	Status      string          `json:"status" binding:"omitempty,oneof=draft queued published"`
	Tags        []string        `json:"tags" binding:"max=20"`
}

func validatePostContent(req *createPostRequest) (field, message string) {
	switch req.PostType {
	case models.PostTypeText:
		if req.Content == "" {
			return "content", "text posts require content"
		}
	case models.PostTypePhoto:
		if req.MediaURL == "" {
			return "media_url", "photo posts require a media URL"
		}
	case models.PostTypeQuote:
		if req.Content == "" {
			return "content", "quote posts require the quoted text"
		}
	case models.PostTypeLink:
		if req.LinkURL == "" {
			return "link_url", "link posts require a URL"
		}
	}
	return "", ""
}

// CreatePost creates a post, optionally as a draft or queued entry
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if field, msg := validatePostContent(&req); field != "" {
		util.RespondValidationError(c, field, msg)
		return
	}

	status := models.PostStatus(req.Status)
	if status == "" {
		status = models.PostStatusPublished
	}

	post := models.Post{
		UserID:      userID,
		PostType:    req.PostType,
		Title:       req.Title,
		Content:     req.Content,
		MediaURL:    req.MediaURL,
		QuoteSource: req.QuoteSource,
		LinkURL:     req.LinkURL,
		IsSensitive: req.IsSensitive,
		Status:      status,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		if err := attachTags(tx, post.ID, req.Tags); err != nil {
			return err
		}
		if status == models.PostStatusPublished {
			return tx.Model(&models.User{}).Where("id = ?", userID).
				UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error
		}
		return nil
	})
	if err != nil {
		logger.ErrorWithFields("Failed to create post", err)
		util.RespondInternalError(c, "Failed to create post")
		return
	}

	if status == models.PostStatusPublished {
		h.notifyMentions(post.Content, userID, &post.ID, nil)
	}

	if err := database.DB.Preload("User").First(&post, "id = ?", post.ID).Error; err != nil {
		logger.WarnWithFields("Failed to reload created post", err)
	}
	views, err := h.shapePosts(c, []models.Post{post}, userID)
	if err != nil {
		logger.ErrorWithFields("Failed to shape created post", err)
		util.RespondInternalError(c, "Failed to load post")
		return
	}

	c.JSON(http.StatusCreated, views[0])
}

// attachTags upserts tags by normalized name and links them to the post
func attachTags(tx *gorm.DB, postID string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := util.NormalizeTagName(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		var tag models.Tag
		err := tx.Where("name = ?", name).First(&tag).Error
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			tag = models.Tag{Name: name, LastUsedAt: time.Now()}
			if err := tx.Create(&tag).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&models.PostTag{PostID: postID, TagID: tag.ID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&tag).Updates(map[string]interface{}{
			"post_count":   gorm.Expr("post_count + 1"),
			"last_used_at": time.Now(),
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetPost returns one post with engagement state for the viewer
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.Preload("User").First(&post, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	// Drafts and queued posts are only visible to their author
	if post.Status != models.PostStatusPublished && post.UserID != userID {
		util.RespondNotFound(c, "post")
		return
	}

	views, err := h.shapePosts(c, []models.Post{post}, userID)
	if err != nil {
		logger.ErrorWithFields("Failed to shape post", err)
		util.RespondInternalError(c, "Failed to load post")
		return
	}

	c.JSON(http.StatusOK, views[0])
}

// UpdatePost edits a post's content fields. Publishing a draft or queued
// post sets its publication time.
// PUT /api/v1/posts/:id
func (h *Handlers) UpdatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}
	if post.UserID != userID {
		util.RespondForbidden(c, "you can only edit your own posts")
		return
	}

	var req struct {
		Title       *string `json:"title" binding:"omitempty,max=200"`
		Content     *string `json:"content" binding:"omitempty,max=20000"`
		IsSensitive *bool   `json:"is_sensitive"`
		Status      *string `json:"status" binding:"omitempty,oneof=draft queued published"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	bump := false
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.IsSensitive != nil {
		updates["is_sensitive"] = *req.IsSensitive
	}
	if req.Status != nil {
		newStatus := models.PostStatus(*req.Status)
		if post.Status == models.PostStatusPublished && newStatus != models.PostStatusPublished {
			util.RespondValidationError(c, "status", "published posts cannot be unpublished")
			return
		}
		updates["status"] = newStatus
		if newStatus == models.PostStatusPublished && post.PublishedAt == nil {
			updates["published_at"] = time.Now().UTC()
			bump = true
		}
	}
	if len(updates) == 0 {
		util.RespondBadRequest(c, "no fields to update")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&post).Updates(updates).Error; err != nil {
			return err
		}
		if bump {
			return tx.Model(&models.User{}).Where("id = ?", userID).
				UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error
		}
		return nil
	})
	if err != nil {
		logger.ErrorWithFields("Failed to update post", err)
		util.RespondInternalError(c, "Failed to update post")
		return
	}

	database.DB.Preload("User").First(&post, "id = ?", post.ID)
	views, err := h.shapePosts(c, []models.Post{post}, userID)
	if err != nil {
		logger.ErrorWithFields("Failed to shape updated post", err)
		util.RespondInternalError(c, "Failed to load post")
		return
	}

	c.JSON(http.StatusOK, views[0])
}

// DeletePost soft-deletes a post. Moderators may delete any post.
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}
	if post.UserID != user.ID && !user.IsModerator() {
		util.RespondForbidden(c, "you can only delete your own posts")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&post).Error; err != nil {
			return err
		}
		if post.Status == models.PostStatusPublished {
			return tx.Model(&models.User{}).
				Where("id = ? AND post_count > 0", post.UserID).
				UpdateColumn("post_count", gorm.Expr("post_count - 1")).Error
		}
		return nil
	})
	if err != nil {
		logger.ErrorWithFields("Failed to delete post", err)
		util.RespondInternalError(c, "Failed to delete post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "post_deleted"})
}

// PinPost pins a post to the top of its author's blog
// POST /api/v1/posts/:id/pin
func (h *Handlers) PinPost(c *gin.Context) {
	h.setPinned(c, true)
}

// UnpinPost removes the pin
// DELETE /api/v1/posts/:id/pin
func (h *Handlers) UnpinPost(c *gin.Context) {
	h.setPinned(c, false)
}

func (h *Handlers) setPinned(c *gin.Context, pinned bool) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}
	if post.UserID != userID {
		util.RespondForbidden(c, "you can only pin your own posts")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if pinned {
			// One pinned post per blog
			if err := tx.Model(&models.Post{}).
				Where("user_id = ? AND is_pinned = ?", userID, true).
				UpdateColumn("is_pinned", false).Error; err != nil {
				return err
			}
		}
		return tx.Model(&post).UpdateColumn("is_pinned", pinned).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to update pin state", err)
		util.RespondInternalError(c, "Failed to update pin state")
		return
	}

	message := "post_pinned"
	if !pinned {
		message = "post_unpinned"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}
