package models

// ClearRequestStatus represents where a clear request is in its lifecycle
type ClearRequestStatus string

const (
	ClearRequestStatusPending   ClearRequestStatus = "pending"
	ClearRequestStatusAccepted  ClearRequestStatus = "accepted"
	ClearRequestStatusDenied    ClearRequestStatus = "denied"
	ClearRequestStatusCompleted ClearRequestStatus = "completed"
)

// ClearRequest is the mutual-consent record governing one bulk-message-
// deletion attempt between the paired accounts. SenderID is the requester;
// ReceiverID is the counterparty who accepts or denies. The two may be equal
// when a user is paired with themselves.
type ClearRequest struct {
	BaseModel
	SenderID                string             `gorm:"size:36;index" json:"senderId"`
	ReceiverID              string             `gorm:"size:36;index" json:"receiverId"`
	Status                  ClearRequestStatus `gorm:"size:20;default:'pending'" json:"status"`
	SenderMessage           string             `gorm:"type:text" json:"senderMessage"`
	ReceiverResponseMessage string             `gorm:"type:text" json:"receiverResponseMessage"`

	// Relations
	Sender   User `gorm:"foreignKey:SenderID" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"-"`
}
