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

// CreateReport files a report against a post, comment, or user
// POST /api/v1/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req struct {
		TargetType  string `json:"target_type" binding:"required,oneof=post comment user"`
		TargetID    string `json:"target_id" binding:"required,uuid"`
		Reason      string `json:"reason" binding:"required"`
		Description string `json:"description" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if !models.ValidReportReason(req.Reason) {
		util.RespondValidationError(c, "reason", "invalid report reason")
		return
	}

	// Resolve the author of the reported content
	var targetUserID *string
	switch models.ReportTargetType(req.TargetType) {
	case models.ReportTargetPost:
		var post models.Post
		if err := database.DB.First(&post, "id = ?", req.TargetID).Error; err != nil {
			util.RespondNotFound(c, "post")
			return
		}
		targetUserID = &post.UserID
	case models.ReportTargetComment:
		var comment models.Comment
		if err := database.DB.First(&comment, "id = ?", req.TargetID).Error; err != nil {
			util.RespondNotFound(c, "comment")
			return
		}
		targetUserID = &comment.UserID
	case models.ReportTargetUser:
		var user models.User
		if err := database.DB.First(&user, "id = ?", req.TargetID).Error; err != nil {
			util.RespondNotFound(c, "user")
			return
		}
		targetUserID = &user.ID
	}

	// One open report per reporter per target
	var existing models.Report
	err := database.DB.Where(
		"reporter_id = ? AND target_type = ? AND target_id = ? AND status IN ?",
		userID, req.TargetType, req.TargetID,
		[]models.ReportStatus{models.ReportStatusPending, models.ReportStatusReviewing},
	).First(&existing).Error
	if err == nil {
		util.RespondConflict(c, "report")
		return
	}
	if err != gorm.ErrRecordNotFound {
		logger.ErrorWithFields("Failed to check existing report", err)
		util.RespondInternalError(c, "Failed to file report")
		return
	}

	report := models.Report{
		ReporterID:   userID,
		TargetType:   models.ReportTargetType(req.TargetType),
		TargetID:     req.TargetID,
		TargetUserID: targetUserID,
		Reason:       models.ReportReason(req.Reason),
		Description:  req.Description,
		Status:       models.ReportStatusPending,
	}
	if err := database.DB.Create(&report).Error; err != nil {
		logger.ErrorWithFields("Failed to create report", err)
		util.RespondInternalError(c, "Failed to file report")
		return
	}

	c.JSON(http.StatusCreated, report)
}

// GetReports lists reports for the moderation queue, oldest open first
// GET /api/v1/moderation/reports
func (h *Handlers) GetReports(c *gin.Context) {
	limit, offset := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)

	query := database.DB.Preload("Reporter")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	} else {
		query = query.Where("status IN ?", []models.ReportStatus{
			models.ReportStatusPending, models.ReportStatusReviewing,
		})
	}

	var reports []models.Report
	if err := query.Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&reports).Error; err != nil {
		logger.ErrorWithFields("Failed to load reports", err)
		util.RespondInternalError(c, "Failed to load reports")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"meta":    gin.H{"limit": limit, "offset": offset},
	})
}

// ResolveReport closes a report with an action taken
// POST /api/v1/moderation/reports/:id/resolve
func (h *Handlers) ResolveReport(c *gin.Context) {
	h.closeReport(c, models.ReportStatusResolved)
}

// DismissReport closes a report without action
// POST /api/v1/moderation/reports/:id/dismiss
func (h *Handlers) DismissReport(c *gin.Context) {
	h.closeReport(c, models.ReportStatusDismissed)
}

func (h *Handlers) closeReport(c *gin.Context, status models.ReportStatus) {
	moderator, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		ActionTaken string `json:"action_taken" binding:"max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var report models.Report
	if err := database.DB.First(&report, "id = ?", c.Param("id")).Error; err != nil {
		util.RespondNotFound(c, "report")
		return
	}
	if report.Status == models.ReportStatusResolved || report.Status == models.ReportStatusDismissed {
		util.RespondConflict(c, "report")
		return
	}

	if err := database.DB.Model(&report).Updates(map[string]interface{}{
		"status":       status,
		"moderator_id": moderator.ID,
		"action_taken": req.ActionTaken,
	}).Error; err != nil {
		logger.ErrorWithFields("Failed to close report", err)
		util.RespondInternalError(c, "Failed to update report")
		return
	}

	c.JSON(http.StatusOK, report)
}
