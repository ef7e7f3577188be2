package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/util"
	"gorm.io/gorm"
)

// LikePost likes a post. Liking an already-liked post is a no-op.
// POST /api/v1/posts/:id/like
func (h *Handlers) LikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	var post models.Post
	if err := database.DB.First(&post, "id = ? AND status = ?", postID, models.PostStatusPublished).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	var existing models.Like
	err := database.DB.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "already_liked"})
		return
	}
	if err != gorm.ErrRecordNotFound {
		logger.ErrorWithFields("Failed to check existing like", err)
		util.RespondInternalError(c, "Failed to like post")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Like{UserID: userID, PostID: postID}).Error; err != nil {
			return err
		}
		return tx.Model(&post).UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to like post", err)
		util.RespondInternalError(c, "Failed to like post")
		return
	}

	h.notify(post.UserID, userID, models.NotificationLike, &post.ID, nil)

	c.JSON(http.StatusCreated, gin.H{"message": "post_liked"})
}

// UnlikePost removes a like
// DELETE /api/v1/posts/:id/like
func (h *Handlers) UnlikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	result := database.DB.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
	if result.Error != nil {
		logger.ErrorWithFields("Failed to unlike post", result.Error)
		util.RespondInternalError(c, "Failed to unlike post")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "like")
		return
	}

	if err := database.DB.Model(&models.Post{}).
		Where("id = ? AND like_count > 0", postID).
		UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error; err != nil {
		logger.WarnWithFields("Failed to decrement like count for post "+postID, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "post_unliked"})
}

// ReblogPost reshares a post to the caller's blog, optionally with
// commentary. One reblog per user per post.
// POST /api/v1/posts/:id/reblog
func (h *Handlers) ReblogPost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	var req struct {
		Comment string `json:"comment" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ? AND status = ?", postID, models.PostStatusPublished).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}

	var existing models.Reblog
	err := database.DB.Where("user_id = ? AND original_post_id = ?", userID, postID).First(&existing).Error
	if err == nil {
		util.RespondConflict(c, "reblog")
		return
	}
	if err != gorm.ErrRecordNotFound {
		logger.ErrorWithFields("Failed to check existing reblog", err)
		util.RespondInternalError(c, "Failed to reblog post")
		return
	}

	reblog := models.Reblog{UserID: userID, OriginalPostID: postID, Comment: req.Comment}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reblog).Error; err != nil {
			return err
		}
		return tx.Model(&post).UpdateColumn("reblog_count", gorm.Expr("reblog_count + 1")).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to reblog post", err)
		util.RespondInternalError(c, "Failed to reblog post")
		return
	}

	h.notify(post.UserID, userID, models.NotificationReblog, &post.ID, nil)

	c.JSON(http.StatusCreated, reblog)
}

// UnreblogPost removes the caller's reblog of a post
// DELETE /api/v1/posts/:id/reblog
func (h *Handlers) UnreblogPost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	result := database.DB.Where("user_id = ? AND original_post_id = ?", userID, postID).Delete(&models.Reblog{})
	if result.Error != nil {
		logger.ErrorWithFields("Failed to remove reblog", result.Error)
		util.RespondInternalError(c, "Failed to remove reblog")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "reblog")
		return
	}

	if err := database.DB.Model(&models.Post{}).
		Where("id = ? AND reblog_count > 0", postID).
		UpdateColumn("reblog_count", gorm.Expr("reblog_count - 1")).Error; err != nil {
		logger.WarnWithFields("Failed to decrement reblog count for post "+postID, err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "reblog_removed"})
}

// FollowUser follows another user
// POST /api/v1/users/:id/follow
func (h *Handlers) FollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	targetID := c.Param("id")

	if targetID == userID {
		util.RespondValidationError(c, "id", "you cannot follow yourself")
		return
	}

	var target models.User
	if err := database.DB.First(&target, "id = ?", targetID).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	// A blocked pair cannot follow in either direction
	var blockCount int64
	database.DB.Model(&models.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			userID, targetID, targetID, userID).
		Count(&blockCount)
	if blockCount > 0 {
		util.RespondForbidden(c, "cannot follow this user")
		return
	}

	var existing models.Follow
	err := database.DB.Where("follower_id = ? AND following_id = ?", userID, targetID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "already_following"})
		return
	}
	if err != gorm.ErrRecordNotFound {
		logger.ErrorWithFields("Failed to check existing follow", err)
		util.RespondInternalError(c, "Failed to follow user")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.Follow{FollowerID: userID, FollowingID: targetID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", targetID).
			UpdateColumn("follower_count", gorm.Expr("follower_count + 1")).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("following_count", gorm.Expr("following_count + 1")).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to follow user", err)
		util.RespondInternalError(c, "Failed to follow user")
		return
	}

	h.notify(targetID, userID, models.NotificationFollow, nil, nil)

	c.JSON(http.StatusCreated, gin.H{"message": "user_followed"})
}

// UnfollowUser removes a follow
// DELETE /api/v1/users/:id/follow
func (h *Handlers) UnfollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	targetID := c.Param("id")

	result := database.DB.Where("follower_id = ? AND following_id = ?", userID, targetID).Delete(&models.Follow{})
	if result.Error != nil {
		logger.ErrorWithFields("Failed to unfollow user", result.Error)
		util.RespondInternalError(c, "Failed to unfollow user")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "follow")
		return
	}

	if err := database.DB.Model(&models.User{}).
		Where("id = ? AND follower_count > 0", targetID).
		UpdateColumn("follower_count", gorm.Expr("follower_count - 1")).Error; err != nil {
		logger.WarnWithFields("Failed to decrement follower count", err)
	}
	if err := database.DB.Model(&models.User{}).
		Where("id = ? AND following_count > 0", userID).
		UpdateColumn("following_count", gorm.Expr("following_count - 1")).Error; err != nil {
		logger.WarnWithFields("Failed to decrement following count", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "user_unfollowed"})
}

// GetFollowers lists a user's followers
// GET /api/v1/users/:id/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)

	var follows []models.Follow
	if err := database.DB.Preload("Follower").
		Where("following_id = ?", c.Param("id")).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&follows).Error; err != nil {
		logger.ErrorWithFields("Failed to load followers", err)
		util.RespondInternalError(c, "Failed to load followers")
		return
	}

	users := make([]models.AuthorSummary, len(follows))
	for i, f := range follows {
		users[i] = f.Follower.Summary()
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"meta":  gin.H{"limit": limit, "offset": offset},
	})
}

// GetFollowing lists the users someone follows
// GET /api/v1/users/:id/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)

	var follows []models.Follow
	if err := database.DB.Preload("Following").
		Where("follower_id = ?", c.Param("id")).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&follows).Error; err != nil {
		logger.ErrorWithFields("Failed to load following", err)
		util.RespondInternalError(c, "Failed to load following")
		return
	}

	users := make([]models.AuthorSummary, len(follows))
	for i, f := range follows {
		users[i] = f.Following.Summary()
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"meta":  gin.H{"limit": limit, "offset": offset},
	})
}

// BlockUser blocks another user and severs the follow edges both ways
// POST /api/v1/users/:id/block
func (h *Handlers) BlockUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	targetID := c.Param("id")

	if targetID == userID {
		util.RespondValidationError(c, "id", "you cannot block yourself")
		return
	}

	var target models.User
	if err := database.DB.First(&target, "id = ?", targetID).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	var existing models.UserBlock
	err := database.DB.Where("blocker_id = ? AND blocked_id = ?", userID, targetID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "already_blocked"})
		return
	}
	if err != gorm.ErrRecordNotFound {
		logger.ErrorWithFields("Failed to check existing block", err)
		util.RespondInternalError(c, "Failed to block user")
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.UserBlock{BlockerID: userID, BlockedID: targetID}).Error; err != nil {
			return err
		}
		return tx.Where("(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)",
			userID, targetID, targetID, userID).
			Delete(&models.Follow{}).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to block user", err)
		util.RespondInternalError(c, "Failed to block user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user_blocked"})
}

// UnblockUser removes a block
// DELETE /api/v1/users/:id/block
func (h *Handlers) UnblockUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result := database.DB.Where("blocker_id = ? AND blocked_id = ?", userID, c.Param("id")).Delete(&models.UserBlock{})
	if result.Error != nil {
		logger.ErrorWithFields("Failed to unblock user", result.Error)
		util.RespondInternalError(c, "Failed to unblock user")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "block")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user_unblocked"})
}
