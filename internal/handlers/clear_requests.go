package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pairlink-server/internal/clearing"
	"pairlink-server/internal/middleware"
	"pairlink-server/internal/models"
	"pairlink-server/internal/utils"
	"pairlink-server/internal/ws"
)

// ClearRequestHandler handles the consent half of the message-clearing
// protocol: creating a request, the counterparty's accept/deny response, and
// the reconciling fetch clients run after (re)connecting to the feed.
type ClearRequestHandler struct {
	DB  *gorm.DB
	Hub *ws.Hub
}

// NewClearRequestHandler creates a new ClearRequestHandler.
func NewClearRequestHandler(db *gorm.DB, hub *ws.Hub) *ClearRequestHandler {
	return &ClearRequestHandler{DB: db, Hub: hub}
}

// CreateClearRequest represents the request body for opening a clear request.
type CreateClearRequest struct {
	SenderMessage string `json:"senderMessage"`
}

// CreateRequest opens a new clear request from the caller to their resolved
// partner. Prior pending requests between the pair are not a precondition;
// clients always act on the latest row.
func (h *ClearRequestHandler) CreateRequest(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateClearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	caller, partner, ok := resolvePartner(c, h.DB, userID)
	if !ok {
		return
	}

	clearRequest := models.ClearRequest{
		SenderID:      caller.ID,
		ReceiverID:    partner.ID,
		Status:        models.ClearRequestStatusPending,
		SenderMessage: req.SenderMessage,
	}

	if err := h.DB.Create(&clearRequest).Error; err != nil {
		utils.InternalServerError(c, "Failed to create clear request: "+err.Error())
		return
	}

	h.broadcast(clearing.FeedInsert, clearRequest)

	utils.Created(c, "Clear request sent to your partner", clearRequest)
}

// RespondRequest represents the counterparty's accept/deny response body.
type RespondRequest struct {
	Action          string `json:"action" binding:"required,oneof=accepted denied"`
	ResponseMessage string `json:"responseMessage"`
}

// Respond records the counterparty's decision on a pending clear request.
// Only the designated receiver may respond, and only while the request is
// still pending.
func (h *ClearRequestHandler) Respond(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req RespondRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	requestID := c.Param("requestId")

	var clearRequest models.ClearRequest
	if err := h.DB.First(&clearRequest, "id = ?", requestID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Clear request not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if clearRequest.ReceiverID != userID {
		utils.Forbidden(c, "You are not the receiver of this clear request.")
		return
	}

	targetStatus, valid := clearing.ResponseStatus(req.Action)
	if !valid {
		utils.BadRequest(c, "Invalid response action")
		return
	}

	if !clearing.CanTransition(clearRequest.Status, targetStatus) {
		utils.Forbidden(c, "Clear request is no longer pending.")
		return
	}

	updates := map[string]interface{}{
		"status":                    targetStatus,
		"receiver_response_message": req.ResponseMessage,
	}
	if err := h.DB.Model(&clearRequest).Updates(updates).Error; err != nil {
		utils.InternalServerError(c, "Failed to update clear request: "+err.Error())
		return
	}

	clearRequest.Status = targetStatus
	clearRequest.ReceiverResponseMessage = req.ResponseMessage
	clearRequest.UpdatedAt = time.Now()

	h.broadcast(clearing.FeedUpdate, clearRequest)

	utils.Success(c, "Response recorded", clearRequest)
}

// ActiveClearRequests is the payload of the reconciling fetch: the latest
// pending request addressed to the caller and the latest responded request
// the caller sent.
type ActiveClearRequests struct {
	Incoming *models.ClearRequest `json:"incoming"`
	Outgoing *models.ClearRequest `json:"outgoing"`
}

// GetActive returns the rows a reconnecting client needs to rebuild its
// coordinator state. The feed is best-effort, so clients must call this
// after every (re)connect to catch transitions delivered while they were
// away.
func (h *ClearRequestHandler) GetActive(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var active ActiveClearRequests

	var incoming models.ClearRequest
	err := h.DB.Where("receiver_id = ? AND status = ?", userID, models.ClearRequestStatusPending).
		Order("created_at desc").
		First(&incoming).Error
	if err == nil {
		active.Incoming = &incoming
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Failed to fetch incoming clear requests: "+err.Error())
		return
	}

	var outgoing models.ClearRequest
	err = h.DB.Where("sender_id = ? AND status IN ?", userID,
		[]models.ClearRequestStatus{models.ClearRequestStatusAccepted, models.ClearRequestStatusDenied}).
		Order("updated_at desc").
		First(&outgoing).Error
	if err == nil {
		active.Outgoing = &outgoing
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Failed to fetch outgoing clear requests: "+err.Error())
		return
	}

	utils.Success(c, "Active clear requests fetched successfully", active)
}

// broadcast pushes a feed event to both parties of a request. The hub
// de-duplicates the self-pairing case where both ids are the same user.
func (h *ClearRequestHandler) broadcast(action clearing.FeedAction, request models.ClearRequest) {
	if h.Hub == nil {
		return
	}
	h.Hub.BroadcastToUsers(
		[]string{request.SenderID, request.ReceiverID},
		ws.Event{
			Type: ws.EventTypeClearRequest,
			Data: clearing.FeedEvent{Action: action, Request: request},
		},
	)
}
