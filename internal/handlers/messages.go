package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pairlink-server/internal/middleware"
	"pairlink-server/internal/models"
	"pairlink-server/internal/utils"
)

// MessageHandler handles messaging related requests.
type MessageHandler struct {
	DB *gorm.DB
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(db *gorm.DB) *MessageHandler {
	return &MessageHandler{DB: db}
}

// SendMessageRequest represents the request body for composing a message.
// The recipient is not part of the payload: it is always the caller's
// resolved partner.
type SendMessageRequest struct {
	Content     string `json:"content" binding:"required"`
	Subject     string `json:"subject"`
	MessageType string `json:"messageType" binding:"required,oneof='Grievance' 'Compliment' 'Good Memory' 'How I Feel'"`
	Priority    string `json:"priority" binding:"required,oneof=Low Medium High Urgent"`
	Mood        string `json:"mood" binding:"required,oneof=Happy Sad Angry Neutral Anxious Grateful"`
}

// SendMessage handles composing a new message to the caller's partner.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	caller, partner, ok := resolvePartner(c, h.DB, userID)
	if !ok {
		return
	}

	subject := req.Subject
	if subject == "" {
		// The portal titles messages by their category when no subject is given
		subject = req.MessageType
	}

	message := models.Message{
		SenderID:    caller.ID,
		ReceiverID:  partner.ID,
		Subject:     subject,
		Content:     req.Content,
		MessageType: models.MessageType(req.MessageType),
		Priority:    models.MessagePriority(req.Priority),
		Mood:        models.MessageMood(req.Mood),
		IsRead:      false,
	}

	if err := h.DB.Create(&message).Error; err != nil {
		utils.InternalServerError(c, "Failed to send message: "+err.Error())
		return
	}

	utils.Created(c, "Message sent successfully", message)
}

// GetMessagesForUser handles fetching all messages the caller sent or
// received, newest first. The client splits them into inbox and sent views.
func (h *MessageHandler) GetMessagesForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var messages []models.Message
	if err := h.DB.Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at desc").
		Find(&messages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch messages: "+err.Error())
		return
	}

	utils.Success(c, "Messages fetched successfully", messages)
}

// GetMessageByID handles fetching a single message. Only the sender or the
// receiver may read it.
func (h *MessageHandler) GetMessageByID(c *gin.Context) {
	messageID := c.Param("messageId")

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var message models.Message
	if err := h.DB.First(&message, "id = ?", messageID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Message not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if message.SenderID != userID && message.ReceiverID != userID {
		utils.Forbidden(c, "You are not authorized to view this message.")
		return
	}

	utils.Success(c, "Message fetched successfully", message)
}

// MarkMessageAsRead handles marking a specific message as read.
func (h *MessageHandler) MarkMessageAsRead(c *gin.Context) {
	messageID := c.Param("messageId")

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var message models.Message
	if err := h.DB.First(&message, "id = ?", messageID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Message not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	// Only the recipient can mark a message as read
	if message.ReceiverID != userID {
		utils.Forbidden(c, "You are not authorized to mark this message as read.")
		return
	}

	if message.IsRead {
		utils.Success(c, "Message already marked as read", message)
		return
	}

	message.IsRead = true
	if err := h.DB.Save(&message).Error; err != nil {
		utils.InternalServerError(c, "Failed to update message status: "+err.Error())
		return
	}

	utils.Success(c, "Message marked as read successfully", message)
}
