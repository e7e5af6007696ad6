package models

import "time"

type MessageType string

const (
	MessageApplication  MessageType = "application"
	MessageConfirmation MessageType = "confirmation"
	MessageDirect       MessageType = "message"
	MessageNotification MessageType = "notification"
	MessageFollowup     MessageType = "followup"
	MessageReschedule   MessageType = "reschedule"
)

// Message is a directed notification from sender to receiver.
type Message struct {
	ID            string      `json:"id" bson:"_id"`
	JobID         string      `json:"jobId,omitempty" bson:"jobId,omitempty"`
	ApplicationID string      `json:"applicationId,omitempty" bson:"applicationId,omitempty"`
	SenderID      string      `json:"senderId" bson:"senderId"`
	ReceiverID    string      `json:"receiverId" bson:"receiverId"`
	Title         string      `json:"title" bson:"title"`
	Content       string      `json:"content" bson:"content"`
	IsRead        bool        `json:"isRead" bson:"isRead"`
	Type          MessageType `json:"type" bson:"type"`
	CreatedAt     time.Time   `json:"createdAt" bson:"createdAt"`
}

// MessageView is a message with sender/receiver/job populated for listing.
type MessageView struct {
	Message
	Sender            *UserSummary      `json:"sender,omitempty"`
	Receiver          *UserSummary      `json:"receiver,omitempty"`
	Job               *JobSummary       `json:"job,omitempty"`
	ApplicationStatus ApplicationStatus `json:"applicationStatus,omitempty"`
}
