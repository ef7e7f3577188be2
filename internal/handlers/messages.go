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

// ConversationView is the conversation shape for the list endpoint
type ConversationView struct {
	ID            string               `json:"id"`
	Partner       models.AuthorSummary `json:"partner"`
	LastMessage   string               `json:"last_message,omitempty"`
	LastMessageAt *time.Time           `json:"last_message_at,omitempty"`
	UnreadCount   int                  `json:"unread_count"`
}

// GetConversations lists the caller's conversations, most recent first
// GET /api/v1/messages/conversations
func (h *Handlers) GetConversations(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)

	var memberships []models.ConversationParticipant
	if err := database.DB.
		Joins("JOIN conversations ON conversations.id = conversation_participants.conversation_id").
		Where("conversation_participants.user_id = ?", userID).
		Order("conversations.last_message_at DESC").
		Limit(limit).Offset(offset).
		Find(&memberships).Error; err != nil {
		logger.ErrorWithFields("Failed to load conversations", err)
		util.RespondInternalError(c, "Failed to load conversations")
		return
	}

	views := make([]ConversationView, 0, len(memberships))
	for _, m := range memberships {
		view, err := h.conversationView(&m, userID)
		if err != nil {
			logger.ErrorWithFields("Failed to shape conversation", err)
			util.RespondInternalError(c, "Failed to load conversations")
			return
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": views,
		"meta":          gin.H{"limit": limit, "offset": offset},
	})
}

func (h *Handlers) conversationView(m *models.ConversationParticipant, userID string) (ConversationView, error) {
	view := ConversationView{ID: m.ConversationID}

	var partner models.ConversationParticipant
	err := database.DB.Preload("User").
		Where("conversation_id = ? AND user_id != ?", m.ConversationID, userID).
		First(&partner).Error
	if err == nil {
		view.Partner = partner.User.Summary()
	} else if err != gorm.ErrRecordNotFound {
		return view, err
	}

	var last models.Message
	err = database.DB.Where("conversation_id = ?", m.ConversationID).
		Order("created_at DESC").First(&last).Error
	if err == nil {
		view.LastMessage = last.Content
		view.LastMessageAt = &last.CreatedAt
	} else if err != gorm.ErrRecordNotFound {
		return view, err
	}

	unread := database.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id != ?", m.ConversationID, userID)
	if m.LastReadAt != nil {
		unread = unread.Where("created_at > ?", *m.LastReadAt)
	}
	var count int64
	if err := unread.Count(&count).Error; err != nil {
		return view, err
	}
	view.UnreadCount = int(count)

	return view, nil
}

// CreateConversation starts (or returns) the direct thread with a user
// POST /api/v1/messages/conversations
func (h *Handlers) CreateConversation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required,uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if req.UserID == userID {
		util.RespondValidationError(c, "user_id", "you cannot message yourself")
		return
	}

	var target models.User
	if err := database.DB.First(&target, "id = ?", req.UserID).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	// Blocks close the channel in both directions
	var blockCount int64
	database.DB.Model(&models.UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			userID, req.UserID, req.UserID, userID).
		Count(&blockCount)
	if blockCount > 0 {
		util.RespondForbidden(c, "cannot message this user")
		return
	}

	// Reuse the existing thread between the pair if there is one
	var existingID string
	err := database.DB.Model(&models.ConversationParticipant{}).
		Select("a.conversation_id").
		Table("conversation_participants as a").
		Joins("JOIN conversation_participants as b ON a.conversation_id = b.conversation_id").
		Where("a.user_id = ? AND b.user_id = ?", userID, req.UserID).
		Limit(1).
		Scan(&existingID).Error
	if err != nil {
		logger.ErrorWithFields("Failed to look up conversation", err)
		util.RespondInternalError(c, "Failed to create conversation")
		return
	}
	if existingID != "" {
		c.JSON(http.StatusOK, gin.H{"conversation_id": existingID, "created": false})
		return
	}

	conversation := models.Conversation{}
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conversation).Error; err != nil {
			return err
		}
		participants := []models.ConversationParticipant{
			{ConversationID: conversation.ID, UserID: userID},
			{ConversationID: conversation.ID, UserID: req.UserID},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to create conversation", err)
		util.RespondInternalError(c, "Failed to create conversation")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"conversation_id": conversation.ID, "created": true})
}

// requireParticipant loads the caller's membership row for a conversation
func (h *Handlers) requireParticipant(c *gin.Context, conversationID, userID string) (*models.ConversationParticipant, bool) {
	var membership models.ConversationParticipant
	err := database.DB.Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&membership).Error
	if err != nil {
		util.RespondNotFound(c, "conversation")
		return nil, false
	}
	return &membership, true
}

// GetMessages lists a conversation's messages, newest first
// GET /api/v1/messages/conversations/:id
func (h *Handlers) GetMessages(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)

	if _, ok := h.requireParticipant(c, conversationID, userID); !ok {
		return
	}

	var messages []models.Message
	if err := database.DB.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&messages).Error; err != nil {
		logger.ErrorWithFields("Failed to load messages", err)
		util.RespondInternalError(c, "Failed to load messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"meta":     gin.H{"limit": limit, "offset": offset},
	})
}

// SendMessage appends a message to a conversation
// POST /api/v1/messages/conversations/:id
func (h *Handlers) SendMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")

	var req struct {
		Content string `json:"content" binding:"required,min=1,max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if _, ok := h.requireParticipant(c, conversationID, userID); !ok {
		return
	}

	message := models.Message{
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        req.Content,
	}
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conversationID).
			UpdateColumn("last_message_at", time.Now()).Error
	})
	if err != nil {
		logger.ErrorWithFields("Failed to send message", err)
		util.RespondInternalError(c, "Failed to send message")
		return
	}

	var partner models.ConversationParticipant
	if err := database.DB.Where("conversation_id = ? AND user_id != ?", conversationID, userID).
		First(&partner).Error; err == nil {
		h.notify(partner.UserID, userID, models.NotificationMessage, nil, nil)
	}

	c.JSON(http.StatusCreated, message)
}

// MarkConversationRead advances the caller's read marker
// POST /api/v1/messages/conversations/:id/read
func (h *Handlers) MarkConversationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	conversationID := c.Param("id")

	membership, ok := h.requireParticipant(c, conversationID, userID)
	if !ok {
		return
	}

	if err := database.DB.Model(membership).
		UpdateColumn("last_read_at", time.Now()).Error; err != nil {
		logger.ErrorWithFields("Failed to mark conversation read", err)
		util.RespondInternalError(c, "Failed to mark conversation read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "conversation_read"})
}
