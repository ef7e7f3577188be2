package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-social/inkwell/internal/cache"
	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/middleware"
	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/util"
	"gorm.io/gorm"
)

const (
	trendingCacheKey = "tags:trending"
	trendingCacheTTL = 5 * time.Minute
	trendingWindow   = 7 * 24 * time.Hour
	trendingLimit    = 20
)

// TrendingTag is a tag with its recent usage count
type TrendingTag struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PostCount   int    `json:"post_count"`
	RecentCount int    `json:"recent_count"`
}

// GetTrendingTags returns the most used tags of the past week, cached in
// Redis for a few minutes.
// GET /api/v1/tags/trending
func (h *Handlers) GetTrendingTags(c *gin.Context) {
	if h.cache != nil {
		var cached []TrendingTag
		if err := h.cache.GetJSON(c.Request.Context(), trendingCacheKey, &cached); err == nil {
			middleware.RecordCacheHit("trending_tags")
			c.JSON(http.StatusOK, gin.H{"tags": cached, "cached": true})
			return
		} else if !cache.IsNil(err) {
			logger.WarnWithFields("Trending tag cache read failed", err)
		}
		middleware.RecordCacheMiss("trending_tags")
	}

	cutoff := time.Now().Add(-trendingWindow)
	var tags []TrendingTag
	err := database.DB.Model(&models.PostTag{}).
		Select("tags.id, tags.name, tags.post_count, COUNT(*) as recent_count").
		Joins("JOIN tags ON tags.id = post_tags.tag_id").
		Where("post_tags.created_at > ?", cutoff).
		Group("tags.id, tags.name, tags.post_count").
		Order("recent_count DESC").
		Limit(trendingLimit).
		Scan(&tags).Error
	if err != nil {
		logger.ErrorWithFields("Failed to load trending tags", err)
		util.RespondInternalError(c, "Failed to load trending tags")
		return
	}
	if tags == nil {
		tags = []TrendingTag{}
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(c.Request.Context(), trendingCacheKey, tags, trendingCacheTTL); err != nil {
			logger.WarnWithFields("Trending tag cache write failed", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags, "cached": false})
}

// FollowTag subscribes the caller to a tag, creating it if needed
// POST /api/v1/tags/:name/follow
func (h *Handlers) FollowTag(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	name := util.NormalizeTagName(c.Param("name"))
	if name == "" {
		util.RespondValidationError(c, "name", "tag name is required")
		return
	}

	var tag models.Tag
	err := database.DB.Where("name = ?", name).First(&tag).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.ErrorWithFields("Failed to look up tag", err)
			util.RespondInternalError(c, "Failed to follow tag")
			return
		}
		tag = models.Tag{Name: name, LastUsedAt: time.Now()}
		if err := database.DB.Create(&tag).Error; err != nil {
			logger.ErrorWithFields("Failed to create tag", err)
			util.RespondInternalError(c, "Failed to follow tag")
			return
		}
	}

	var existing models.TagFollow
	err = database.DB.Where("user_id = ? AND tag_id = ?", userID, tag.ID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"message": "already_following"})
		return
	}
	if err != gorm.ErrRecordNotFound {
		logger.ErrorWithFields("Failed to check existing tag follow", err)
		util.RespondInternalError(c, "Failed to follow tag")
		return
	}

	if err := database.DB.Create(&models.TagFollow{UserID: userID, TagID: tag.ID}).Error; err != nil {
		logger.ErrorWithFields("Failed to follow tag", err)
		util.RespondInternalError(c, "Failed to follow tag")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "tag_followed", "tag": gin.H{"id": tag.ID, "name": tag.Name}})
}

// UnfollowTag removes a tag subscription
// DELETE /api/v1/tags/:name/follow
func (h *Handlers) UnfollowTag(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	name := util.NormalizeTagName(c.Param("name"))

	var tag models.Tag
	if err := database.DB.Where("name = ?", name).First(&tag).Error; err != nil {
		util.RespondNotFound(c, "tag")
		return
	}

	result := database.DB.Where("user_id = ? AND tag_id = ?", userID, tag.ID).Delete(&models.TagFollow{})
	if result.Error != nil {
		logger.ErrorWithFields("Failed to unfollow tag", result.Error)
		util.RespondInternalError(c, "Failed to unfollow tag")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "tag follow")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "tag_unfollowed"})
}

// GetFollowedTags lists the caller's followed tags
// GET /api/v1/tags/followed
func (h *Handlers) GetFollowedTags(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var follows []models.TagFollow
	if err := database.DB.Preload("Tag").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&follows).Error; err != nil {
		logger.ErrorWithFields("Failed to load followed tags", err)
		util.RespondInternalError(c, "Failed to load followed tags")
		return
	}

	tags := make([]gin.H, len(follows))
	for i, f := range follows {
		tags[i] = gin.H{
			"id":          f.Tag.ID,
			"name":        f.Tag.Name,
			"post_count":  f.Tag.PostCount,
			"followed_at": f.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"tags": tags})
}
