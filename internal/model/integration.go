package model

import "time"

type MessageDirection string

const (
	MessageIncoming MessageDirection = "incoming"
	MessageOutgoing MessageDirection = "outgoing"
)

// MessageBuffer holds raw WhatsApp messages. MessageID comes from the
// messaging provider and is unique.
type MessageBuffer struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	Phone     string           `json:"phone" gorm:"size:20;not null;index"`
	MessageID string           `json:"message_id" gorm:"size:255;not null;uniqueIndex"`
	Content   string           `json:"content" gorm:"type:text;not null"`
	Type      MessageDirection `json:"type" gorm:"size:10;not null"`
	Timestamp time.Time        `json:"timestamp" gorm:"not null"`
	Processed bool             `json:"processed" gorm:"default:false"`
	CreatedAt time.Time        `json:"created_at"`
}

func (MessageBuffer) TableName() string {
	return "message_buffer"
}

type AIRole string

const (
	AIRoleUser      AIRole = "user"
	AIRoleAssistant AIRole = "assistant"
	AIRoleSystem    AIRole = "system"
)

// AIContext is one turn of the automation engine's conversation transcript.
type AIContext struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SessionID string    `json:"session_id" gorm:"size:255;not null;index"`
	Phone     string    `json:"phone" gorm:"size:20;not null;index"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Role      AIRole    `json:"role" gorm:"size:10;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (AIContext) TableName() string {
	return "ai_context_status"
}

type ClientInterest struct {
	ID                     uint            `json:"id" gorm:"primaryKey"`
	ClientID               uint            `json:"client_id" gorm:"index;not null"`
	PropertyType           string          `json:"property_type" gorm:"size:50"`
	InterestType           TransactionType `json:"interest_type" gorm:"size:20"`
	BudgetMin              *int64          `json:"budget_min"`
	BudgetMax              *int64          `json:"budget_max"`
	PreferredNeighborhoods string          `json:"preferred_neighborhoods" gorm:"type:text"`
	Notes                  string          `json:"notes" gorm:"type:text"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

type WebhookStatus string

const (
	WebhookSuccess WebhookStatus = "success"
	WebhookError   WebhookStatus = "error"
	WebhookPending WebhookStatus = "pending"
)

// WebhookLog is the append-only audit trail of integration calls.
type WebhookLog struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	Source       string        `json:"source" gorm:"size:50;not null"`
	Event        string        `json:"event" gorm:"size:100;not null;index"`
	Payload      string        `json:"payload" gorm:"type:text"`
	Response     string        `json:"response" gorm:"type:text"`
	Status       WebhookStatus `json:"status" gorm:"size:10;not null;index"`
	ErrorMessage string        `json:"error_message" gorm:"type:text"`
	CreatedAt    time.Time     `json:"created_at" gorm:"index"`
}
