package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/util"
)

// UpdateMyProfile updates profile fields on the authenticated user
// PUT /api/v1/users/me
func (h *Handlers) UpdateMyProfile(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		DisplayName        *string `json:"display_name" binding:"omitempty,min=1,max=50"`
		Bio                *string `json:"bio" binding:"omitempty,max=500"`
		AvatarURL          *string `json:"avatar_url" binding:"omitempty,url,max=2000"`
		ShowSensitivePosts *bool   `json:"show_sensitive_posts"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if req.ShowSensitivePosts != nil {
		updates["show_sensitive_posts"] = *req.ShowSensitivePosts
	}
	if len(updates) == 0 {
		util.RespondBadRequest(c, "no fields to update")
		return
	}

	if err := database.DB.Model(user).Updates(updates).Error; err != nil {
		logger.ErrorWithFields("Failed to update profile", err)
		util.RespondInternalError(c, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "profile_updated", "user": user})
}

// GetUserProfile returns a user's public profile
// GET /api/v1/users/:id/profile
func (h *Handlers) GetUserProfile(c *gin.Context) {
	viewerID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	var isFollowing bool
	if viewerID != user.ID {
		var count int64
		database.DB.Model(&models.Follow{}).
			Where("follower_id = ? AND following_id = ?", viewerID, user.ID).
			Count(&count)
		isFollowing = count > 0
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              user.ID,
		"username":        user.Username,
		"display_name":    user.DisplayName,
		"bio":             user.Bio,
		"avatar_url":      user.AvatarURL,
		"role":            user.Role,
		"follower_count":  user.FollowerCount,
		"following_count": user.FollowingCount,
		"post_count":      user.PostCount,
		"is_following":    isFollowing,
		"joined_at":       user.CreatedAt,
	})
}

// GetUserPosts lists a user's published posts, pinned post first
// GET /api/v1/users/:id/posts
func (h *Handlers) GetUserPosts(c *gin.Context) {
	viewerID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	targetID := c.Param("id")
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)

	var user models.User
	if err := database.DB.First(&user, "id = ?", targetID).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	query := database.DB.Preload("User").Where("user_id = ?", targetID)
	if targetID == viewerID {
		// Owners see drafts and queued posts in their own blog view
		query = query.Order("is_pinned DESC, created_at DESC")
	} else {
		query = query.Where("status = ?", models.PostStatusPublished).
			Order("is_pinned DESC, published_at DESC")
	}

	var posts []models.Post
	if err := query.Limit(limit + 1).Offset(offset).Find(&posts).Error; err != nil {
		logger.ErrorWithFields("Failed to load user posts", err)
		util.RespondInternalError(c, "Failed to load posts")
		return
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	views, err := h.shapePosts(c, posts, viewerID)
	if err != nil {
		logger.ErrorWithFields("Failed to shape user posts", err)
		util.RespondInternalError(c, "Failed to load posts")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":    views,
		"has_more": hasMore,
		"meta":     gin.H{"limit": limit, "offset": offset},
	})
}
