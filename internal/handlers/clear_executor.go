package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pairlink-server/internal/clearing"
	"pairlink-server/internal/middleware"
	"pairlink-server/internal/models"
	"pairlink-server/internal/ws"
)

// ClearExecutorHandler is the privileged deletion endpoint. It is the only
// code path allowed to bulk-delete messages, so it re-validates everything
// itself: the request row is re-fetched here, the caller's identity comes
// from the authenticated context, and the payload's userId/partnerId are
// treated as the subject of the operation, never as authorization proof.
type ClearExecutorHandler struct {
	DB  *gorm.DB
	Hub *ws.Hub
}

// NewClearExecutorHandler creates a new ClearExecutorHandler.
func NewClearExecutorHandler(db *gorm.DB, hub *ws.Hub) *ClearExecutorHandler {
	return &ClearExecutorHandler{DB: db, Hub: hub}
}

// ClearMessagesRequest is the wire payload of the privileged executor.
type ClearMessagesRequest struct {
	ClearRequestID string `json:"clearRequestId"`
	UserID         string `json:"userId"`
	PartnerID      string `json:"partnerId"`
}

// ClearMessagesResponse is the wire result of the privileged executor.
type ClearMessagesResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount *int64 `json:"deletedCount,omitempty"`
}

// ClearMessages executes the bulk deletion authorized by an accepted clear
// request. Both directional partitions are deleted inside one transaction so
// a failure aborts the whole operation; the self-messaging case deletes the
// single sender==receiver partition instead. The status bump to completed is
// best-effort: once the messages are gone the result is success even if the
// bookkeeping update fails.
func (h *ClearExecutorHandler) ClearMessages(c *gin.Context) {
	setExecutorCORSHeaders(c)

	var req ClearMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, "Missing required parameters.")
		return
	}
	if req.ClearRequestID == "" || req.UserID == "" || req.PartnerID == "" {
		h.fail(c, http.StatusBadRequest, "Missing required parameters.")
		return
	}

	callerID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		h.fail(c, http.StatusForbidden, "Caller identity not established.")
		return
	}
	if callerID != req.UserID {
		h.fail(c, http.StatusForbidden, "Unauthorized to clear messages for this request.")
		return
	}

	// Re-fetch the request row; the client's view of its status is never
	// trusted.
	var clearRequest models.ClearRequest
	if err := h.DB.First(&clearRequest, "id = ?", req.ClearRequestID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			h.fail(c, http.StatusNotFound, "Clear request not found.")
		} else {
			h.fail(c, http.StatusInternalServerError, "Error fetching clear request: "+err.Error())
		}
		return
	}

	if clearRequest.Status != models.ClearRequestStatusAccepted {
		h.fail(c, http.StatusForbidden, "Clear request not accepted by partner.")
		return
	}

	if clearRequest.SenderID != callerID {
		h.fail(c, http.StatusForbidden, "Unauthorized to clear messages for this request.")
		return
	}

	if clearRequest.ReceiverID != req.PartnerID {
		h.fail(c, http.StatusBadRequest, "Partner does not match the clear request.")
		return
	}

	var totalDeleted int64
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if req.UserID == req.PartnerID {
			// Self-messaging: one partition, counted once
			res := tx.Where("sender_id = ? AND receiver_id = ?", req.UserID, req.UserID).
				Delete(&models.Message{})
			if res.Error != nil {
				return res.Error
			}
			totalDeleted += res.RowsAffected
			return nil
		}

		res := tx.Where("sender_id = ? AND receiver_id = ?", req.UserID, req.PartnerID).
			Delete(&models.Message{})
		if res.Error != nil {
			return res.Error
		}
		totalDeleted += res.RowsAffected

		res = tx.Where("sender_id = ? AND receiver_id = ?", req.PartnerID, req.UserID).
			Delete(&models.Message{})
		if res.Error != nil {
			return res.Error
		}
		totalDeleted += res.RowsAffected
		return nil
	})
	if err != nil {
		log.Printf("clear-messages: deletion failed for request %s: %v", clearRequest.ID, err)
		h.fail(c, http.StatusInternalServerError, "Failed to delete messages.")
		return
	}

	// Bookkeeping after the point of no return: the messages are gone, so a
	// failure here is logged without changing the outcome for the caller.
	if err := h.DB.Model(&clearRequest).
		Update("status", models.ClearRequestStatusCompleted).Error; err != nil {
		log.Printf("clear-messages: request %s deleted %d messages but status update failed: %v",
			clearRequest.ID, totalDeleted, err)
	} else {
		clearRequest.Status = models.ClearRequestStatusCompleted
		h.broadcastCompleted(clearRequest)
	}

	c.JSON(http.StatusOK, ClearMessagesResponse{
		Success:      true,
		Message:      fmt.Sprintf("Messages cleared successfully. Total deleted: %d", totalDeleted),
		DeletedCount: &totalDeleted,
	})
}

// HandlePreflight answers the CORS pre-flight for the executor endpoint.
func (h *ClearExecutorHandler) HandlePreflight(c *gin.Context) {
	setExecutorCORSHeaders(c)
	c.Status(http.StatusNoContent)
}

func (h *ClearExecutorHandler) fail(c *gin.Context, status int, message string) {
	c.JSON(status, ClearMessagesResponse{Success: false, Message: message})
}

func (h *ClearExecutorHandler) broadcastCompleted(request models.ClearRequest) {
	if h.Hub == nil {
		return
	}
	h.Hub.BroadcastToUsers(
		[]string{request.SenderID, request.ReceiverID},
		ws.Event{
			Type: ws.EventTypeClearRequest,
			Data: clearing.FeedEvent{Action: clearing.FeedUpdate, Request: request},
		},
	)
}

// setExecutorCORSHeaders echoes the permissive headers the executor contract
// requires on every response, including errors.
func setExecutorCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}
