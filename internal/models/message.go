package models

// MessageType categorizes what a message is about
type MessageType string

const (
	MessageTypeGrievance  MessageType = "Grievance"
	MessageTypeCompliment MessageType = "Compliment"
	MessageTypeGoodMemory MessageType = "Good Memory"
	MessageTypeHowIFeel   MessageType = "How I Feel"
)

// MessagePriority represents how urgent the sender considers the message
type MessagePriority string

const (
	MessagePriorityLow    MessagePriority = "Low"
	MessagePriorityMedium MessagePriority = "Medium"
	MessagePriorityHigh   MessagePriority = "High"
	MessagePriorityUrgent MessagePriority = "Urgent"
)

// MessageMood represents the sender's mood at compose time
type MessageMood string

const (
	MessageMoodHappy    MessageMood = "Happy"
	MessageMoodSad      MessageMood = "Sad"
	MessageMoodAngry    MessageMood = "Angry"
	MessageMoodNeutral  MessageMood = "Neutral"
	MessageMoodAnxious  MessageMood = "Anxious"
	MessageMoodGrateful MessageMood = "Grateful"
)

// Message represents a message between the paired accounts. Messages are
// created via compose, mutated only to flip IsRead, and bulk-deleted only
// through the privileged clear-messages executor.
type Message struct {
	BaseModel
	SenderID    string          `gorm:"size:36;index" json:"senderId"`
	ReceiverID  string          `gorm:"size:36;index" json:"receiverId"`
	Subject     string          `gorm:"type:text" json:"subject"`
	Content     string          `gorm:"type:text" json:"content"`
	MessageType MessageType     `gorm:"size:20" json:"messageType"`
	Priority    MessagePriority `gorm:"size:10;default:'Medium'" json:"priority"`
	Mood        MessageMood     `gorm:"size:10;default:'Neutral'" json:"mood"`
	IsRead      bool            `gorm:"default:false" json:"isRead"`

	// Relations
	Sender   User `gorm:"foreignKey:SenderID" json:"sender"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"receiver"`
}
