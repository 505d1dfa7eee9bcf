// audit.go exposes the read side of the audit trail to administrators:
// filtered listing, per-record history, and per-actor history.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrocore/agrocore/internal/db/repositories"
)

// AuditHandlers serves audit trail queries.
type AuditHandlers struct {
	Repo     *repositories.AuditRepository
	PageSize int
}

// List handles GET /v1/audit-logs?tableName=&action=&userId=&recordId=
func (h *AuditHandlers) List(c *gin.Context) {
	filters := repositories.AuditFilters{}

	if v := c.Query("tableName"); v != "" {
		filters.TableName = &v
	}
	if v := c.Query("action"); v != "" {
		filters.Action = &v
	}
	if v := c.Query("userId"); v != "" {
		filters.ActorID = &v
	}
	if v := c.Query("recordId"); v != "" {
		filters.RecordID = &v
	}

	records, err := h.Repo.ListAuditLogs(c.Request.Context(), filters, h.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query audit logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"audit_logs": records, "count": len(records)})
}

// History handles GET /v1/audit-logs/history?tableName=&recordId=
func (h *AuditHandlers) History(c *gin.Context) {
	tableName := c.Query("tableName")
	recordID := c.Query("recordId")
	if tableName == "" || recordID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tableName and recordId are required"})
		return
	}

	records, err := h.Repo.History(c.Request.Context(), tableName, recordID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query record history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"audit_logs": records, "count": len(records)})
}

// HistoryByActor handles GET /v1/audit-logs/actor/:id
func (h *AuditHandlers) HistoryByActor(c *gin.Context) {
	records, err := h.Repo.HistoryByActor(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query actor history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"audit_logs": records, "count": len(records)})
}
