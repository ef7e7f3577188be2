package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/util"
	"gorm.io/gorm"
)

// CommentView is the comment shape returned by list endpoints
type CommentView struct {
	ID         string               `json:"id"`
	PostID     string               `json:"post_id"`
	Author     models.AuthorSummary `json:"author"`
	Content    string               `json:"content"`
	ParentID   *string              `json:"parent_id,omitempty"`
	LikeCount  int                  `json:"like_count"`
	ReplyCount int                  `json:"reply_count"`
	IsEdited   bool                 `json:"is_edited"`
	IsDeleted  bool                 `json:"is_deleted"`
	CreatedAt  string               `json:"created_at"`
}

func commentView(comment *models.Comment, replyCount int) CommentView {
	view := CommentView{
		ID:         comment.ID,
		PostID:     comment.PostID,
		ParentID:   comment.ParentID,
		LikeCount:  comment.LikeCount,
		ReplyCount: replyCount,
		IsEdited:   comment.IsEdited,
		IsDeleted:  comment.IsDeleted,
		CreatedAt:  util.RelativeTime(comment.CreatedAt),
	}
	// Removed comments keep their place in the thread as placeholders
	if comment.IsDeleted {
		view.Content = "[removed]"
	} else {
		view.Content = comment.Content
		view.Author = comment.User.Summary()
	}
	return view
}

// CreateComment comments on a post, optionally as a reply
// POST /api/v1/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	var req struct {
		Content  string  `json:"content" binding:"required,min=1,max=2000"`
		ParentID *string `json:"parent_id,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ? AND status = ?", postID, models.PostStatusPublished).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	// Replies only nest one level deep; replying to a reply attaches to
	// the top-level parent.
	if req.ParentID != nil && *req.ParentID != "" {
		var parent models.Comment
		if err := database.DB.First(&parent, "id = ? AND post_id = ?", *req.ParentID, postID).Error; err != nil {
			util.RespondValidationError(c, "parent_id", "Parent comment not found")
			return
		}
		if parent.ParentID != nil {
			req.ParentID = parent.ParentID
		}
	}

	comment := models.Comment{
		PostID:   postID,
		UserID:   userID,
		Content:  req.Content,
		ParentID: req.ParentID,
	}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&post).UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to create comment", err)
		util.RespondInternalError(c, "Failed to create comment")
		return
	}

	h.notify(post.UserID, userID, models.NotificationComment, &post.ID, &comment.ID)
	h.notifyMentions(req.Content, userID, &post.ID, &comment.ID)

	if err := database.DB.Preload("User").First(&comment, "id = ?", comment.ID).Error; err != nil {
		logger.WarnWithFields("Failed to reload created comment", err)
	}

	c.JSON(http.StatusCreated, commentView(&comment, 0))
}

// GetPostComments lists top-level comments for a post, oldest first
// GET /api/v1/posts/:id/comments
func (h *Handlers) GetPostComments(c *gin.Context) {
	postID := c.Param("id")
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)

	var post models.Post
	if err := database.DB.First(&post, "id = ?", postID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	var comments []models.Comment
	if err := database.DB.Preload("User").
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&comments).Error; err != nil {
		logger.ErrorWithFields("Failed to load comments", err)
		util.RespondInternalError(c, "Failed to load comments")
		return
	}

	replyCounts, err := h.replyCounts(comments)
	if err != nil {
		logger.ErrorWithFields("Failed to count replies", err)
		util.RespondInternalError(c, "Failed to load comments")
		return
	}

	views := make([]CommentView, len(comments))
	for i := range comments {
		views[i] = commentView(&comments[i], replyCounts[comments[i].ID])
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": views,
		"meta":     gin.H{"limit": limit, "offset": offset},
	})
}

func (h *Handlers) replyCounts(comments []models.Comment) (map[string]int, error) {
	counts := make(map[string]int)
	if len(comments) == 0 {
		return counts, nil
	}
	ids := make([]string, len(comments))
	for i, cm := range comments {
		ids[i] = cm.ID
	}
	var rows []struct {
		ParentID string
		Count    int
	}
	err := database.DB.Model(&models.Comment{}).
		Select("parent_id, COUNT(*) as count").
		Where("parent_id IN ?", ids).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ParentID] = r.Count
	}
	return counts, nil
}

// GetCommentReplies lists the replies under a comment, oldest first
// GET /api/v1/comments/:id/replies
func (h *Handlers) GetCommentReplies(c *gin.Context) {
	commentID := c.Param("id")
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)

	var parent models.Comment
	if err := database.DB.First(&parent, "id = ?", commentID).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	var replies []models.Comment
	if err := database.DB.Preload("User").
		Where("parent_id = ?", commentID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&replies).Error; err != nil {
		logger.ErrorWithFields("Failed to load replies", err)
		util.RespondInternalError(c, "Failed to load replies")
		return
	}

	views := make([]CommentView, len(replies))
	for i := range replies {
		views[i] = commentView(&replies[i], 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"replies": views,
		"meta":    gin.H{"limit": limit, "offset": offset},
	})
}

// UpdateComment edits the caller's comment
// PUT /api/v1/comments/:id
func (h *Handlers) UpdateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required,min=1,max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var comment models.Comment
	if err := database.DB.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}
	if comment.UserID != userID {
		util.RespondForbidden(c, "you can only edit your own comments")
		return
	}
	if comment.IsDeleted {
		util.RespondNotFound(c, "comment")
		return
	}

	now := time.Now()
	if err := database.DB.Model(&comment).Updates(map[string]interface{}{
		"content":   req.Content,
		"is_edited": true,
		"edited_at": now,
	}).Error; err != nil {
		logger.ErrorWithFields("Failed to update comment", err)
		util.RespondInternalError(c, "Failed to update comment")
		return
	}

	database.DB.Preload("User").First(&comment, "id = ?", comment.ID)
	c.JSON(http.StatusOK, commentView(&comment, 0))
}

// DeleteComment marks a comment removed, keeping the thread shape.
// Moderators and the post author may remove any comment on the post.
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var comment models.Comment
	if err := database.DB.First(&comment, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", comment.PostID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	if comment.UserID != user.ID && post.UserID != user.ID && !user.IsModerator() {
		util.RespondForbidden(c, "you cannot delete this comment")
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&comment).UpdateColumn("is_deleted", true).Error; err != nil {
			return err
		}
		return tx.Model(&post).
			Where("comment_count > 0").
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to delete comment", err)
		util.RespondInternalError(c, "Failed to delete comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment_deleted"})
}

// LikeComment likes a comment
// POST /api/v1/comments/:id/like
func (h *Handlers) LikeComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	commentID := c.Param("id")

	var comment models.Comment
	if err := database.DB.First(&comment, "id = ? AND is_deleted = ?", commentID, false).Error; err != nil {
		util.RespondNotFound(c, "comment")
		return
	}

	var existing models.CommentLike
	err := database.DB.Where("user_id = ? AND comment_id = ?", userID, commentID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "already_liked"})
		return
	}
	if err != gorm.ErrRecordNotFound {
		logger.ErrorWithFields("Failed to check existing comment like", err)
		util.RespondInternalError(c, "Failed to like comment")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.CommentLike{UserID: userID, CommentID: commentID}).Error; err != nil {
			return err
		}
		return tx.Model(&comment).UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to like comment", err)
		util.RespondInternalError(c, "Failed to like comment")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "comment_liked"})
}

// UnlikeComment removes a comment like
// DELETE /api/v1/comments/:id/like
func (h *Handlers) UnlikeComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	commentID := c.Param("id")

	result := database.DB.Where("user_id = ? AND comment_id = ?", userID, commentID).Delete(&models.CommentLike{})
	if result.Error != nil {
		logger.ErrorWithFields("Failed to unlike comment", result.Error)
		util.RespondInternalError(c, "Failed to unlike comment")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "like")
		return
	}

	if err := database.DB.Model(&models.Comment{}).
		Where("id = ? AND like_count > 0", commentID).
		UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
		logger.WarnWithFields("Failed to decrement comment like count", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment_unliked"})
}
