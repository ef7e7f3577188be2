package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/models"
	"github.com/inkwell-social/inkwell/internal/util"
)

// GetNotifications lists the caller's notifications, newest first
// GET /api/v1/notifications
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)

	query := database.DB.Preload("Actor").Where("user_id = ?", userID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notifications).Error; err != nil {
		logger.ErrorWithFields("Failed to load notifications", err)
		util.RespondInternalError(c, "Failed to load notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"meta":          gin.H{"limit": limit, "offset": offset},
	})
}

// GetNotificationCounts returns unread and unseen counts for badges
// GET /api/v1/notifications/counts
func (h *Handlers) GetNotificationCounts(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var unread, unseen int64
	if err := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread).Error; err != nil {
		logger.ErrorWithFields("Failed to count unread notifications", err)
		util.RespondInternalError(c, "Failed to load notification counts")
		return
	}
	if err := database.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_seen = ?", userID, false).
		Count(&unseen).Error; err != nil {
		logger.ErrorWithFields("Failed to count unseen notifications", err)
		util.RespondInternalError(c, "Failed to load notification counts")
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": unread, "unseen": unseen})
}

// MarkNotificationsRead marks specific notifications (or all) as read
// POST /api/v1/notifications/read
func (h *Handlers) MarkNotificationsRead(c *gin.Context) {
	h.markNotifications(c, "is_read")
}

// MarkNotificationsSeen marks specific notifications (or all) as seen
// POST /api/v1/notifications/seen
func (h *Handlers) MarkNotificationsSeen(c *gin.Context) {
	h.markNotifications(c, "is_seen")
}

func (h *Handlers) markNotifications(c *gin.Context, column string) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		util.RespondBadRequest(c, err.Error())
		return
	}

	query := database.DB.Model(&models.Notification{}).Where("user_id = ?", userID)
	if len(req.IDs) > 0 {
		query = query.Where("id IN ?", req.IDs)
	}

	result := query.UpdateColumn(column, true)
	if result.Error != nil {
		logger.ErrorWithFields("Failed to mark notifications", result.Error)
		util.RespondInternalError(c, "Failed to update notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": result.RowsAffected})
}
