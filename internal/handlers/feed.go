package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/feed"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/metrics"
	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/util"
)

// GetPersonalizedFeed returns the ranked recommendation feed
// GET /api/v1/feed/personalized
func (h *Handlers) GetPersonalizedFeed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), feed.DefaultLimit, maxPageSize)

	start := time.Now()
	result, err := h.feed.Rank(c.Request.Context(), userID, feed.RankOptions{Limit: limit, Offset: offset})
	if err != nil {
		metrics.Get().FeedGenerationTime.WithLabelValues("error").Observe(time.Since(start).Seconds())
		logger.ErrorWithFields("Feed ranking failed", err)
		util.RespondInternalError(c, "Failed to generate feed")
		return
	}
	metrics.Get().FeedGenerationTime.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	metrics.Get().FeedCandidatesTotal.WithLabelValues("tagged").Add(float64(result.Meta.TaggedCount))
	metrics.Get().FeedCandidatesTotal.WithLabelValues("followed").Add(float64(result.Meta.FollowedCount))
	metrics.Get().FeedCandidatesTotal.WithLabelValues("popular").Add(float64(result.Meta.PopularCount))

	c.JSON(http.StatusOK, gin.H{
		"posts":    result.Posts,
		"has_more": result.HasMore,
		"meta":     gin.H{"limit": limit, "offset": offset},
	})
}

// GetFollowingFeed returns posts from followed users in reverse
// chronological order.
// GET /api/v1/feed/following
func (h *Handlers) GetFollowingFeed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)

	var followedIDs []string
	if err := database.DB.Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("following_id", &followedIDs).Error; err != nil {
		logger.ErrorWithFields("Failed to load followed users", err)
		util.RespondInternalError(c, "Failed to load feed")
		return
	}
	if len(followedIDs) == 0 {
		c.JSON(http.StatusOK, gin.H{"posts": []PostView{}, "has_more": false})
		return
	}

	var posts []models.Post
	if err := database.DB.Preload("User").
		Where("user_id IN ? AND status = ?", followedIDs, models.PostStatusPublished).
		Order("published_at DESC").
		Limit(limit + 1).Offset(offset).
		Find(&posts).Error; err != nil {
		logger.ErrorWithFields("Failed to load following feed", err)
		util.RespondInternalError(c, "Failed to load feed")
		return
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	views, err := h.shapePosts(c, posts, userID)
	if err != nil {
		logger.ErrorWithFields("Failed to shape following feed", err)
		util.RespondInternalError(c, "Failed to load feed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":    views,
		"has_more": hasMore,
		"meta":     gin.H{"limit": limit, "offset": offset},
	})
}

// GetTagFeed returns published posts carrying a tag, newest first
// GET /api/v1/feed/tag/:name
func (h *Handlers) GetTagFeed(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)
	name := util.NormalizeTagName(c.Param("name"))

	var tag models.Tag
	if err := database.DB.Where("name = ?", name).First(&tag).Error; err != nil {
		util.RespondNotFound(c, "tag")
		return
	}

	var posts []models.Post
	if err := database.DB.Preload("User").
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Where("post_tags.tag_id = ? AND posts.status = ?", tag.ID, models.PostStatusPublished).
		Order("posts.published_at DESC").
		Limit(limit + 1).Offset(offset).
		Find(&posts).Error; err != nil {
		logger.ErrorWithFields("Failed to load tag feed", err)
		util.RespondInternalError(c, "Failed to load feed")
		return
	}

	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	views, err := h.shapePosts(c, posts, userID)
	if err != nil {
		logger.ErrorWithFields("Failed to shape tag feed", err)
		util.RespondInternalError(c, "Failed to load feed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tag":      gin.H{"id": tag.ID, "name": tag.Name, "post_count": tag.PostCount},
		"posts":    views,
		"has_more": hasMore,
		"meta":     gin.H{"limit": limit, "offset": offset},
	})
}
