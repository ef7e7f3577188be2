package handlers

import (
	"github.com/inkwell-social/inkwell/internal/auth"
	"github.com/inkwell-social/inkwell/internal/cache"
	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/feed"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/stats"
	"github.com/inkwell-social/inkwell/internal/util"
)

// Handlers holds the services the HTTP layer depends on
type Handlers struct {
	auth  auth.ServiceInterface
	feed  *feed.Service
	stats *stats.Aggregator
	cache *cache.RedisClient
}

// NewHandlers creates the handler set. cache may be nil when Redis is
// unavailable; cached endpoints fall through to the database.
func NewHandlers(authService auth.ServiceInterface, feedService *feed.Service, aggregator *stats.Aggregator, redisClient *cache.RedisClient) *Handlers {
	return &Handlers{
		auth:  authService,
		feed:  feedService,
		stats: aggregator,
		cache: redisClient,
	}
}

// notify records an activity notification. Self-notifications are dropped
// and failures are logged but never surfaced to the request.
func (h *Handlers) notify(userID, actorID string, notifType models.NotificationType, postID, commentID *string) {
	if userID == actorID {
		return
	}
	n := models.Notification{
		UserID:    userID,
		ActorID:   actorID,
		Type:      notifType,
		PostID:    postID,
		CommentID: commentID,
	}
	if err := database.DB.Create(&n).Error; err != nil {
		logger.WarnWithFields("Failed to create notification", err)
	}
}

// notifyMentions creates mention notifications for every @username in
// content that resolves to a real user.
func (h *Handlers) notifyMentions(content, actorID string, postID, commentID *string) {
	usernames := util.ExtractMentions(content)
	if len(usernames) == 0 {
		return
	}
	var mentioned []models.User
	if err := database.DB.Where("username IN ?", usernames).Find(&mentioned).Error; err != nil {
		logger.WarnWithFields("Failed to resolve mentions", err)
		return
	}
	for _, user := range mentioned {
		h.notify(user.ID, actorID, models.NotificationMention, postID, commentID)
	}
}
