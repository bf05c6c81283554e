package model

import (
	"time"

	"gorm.io/datatypes"
)

type InteractionType string

const (
	InteractionLigacao      InteractionType = "ligacao"
	InteractionWhatsApp     InteractionType = "whatsapp"
	InteractionEmail        InteractionType = "email"
	InteractionVisita       InteractionType = "visita"
	InteractionReuniao      InteractionType = "reuniao"
	InteractionProposta     InteractionType = "proposta"
	InteractionNota         InteractionType = "nota"
	InteractionStatusChange InteractionType = "status_change"
)

// Interaction is an immutable record of contact with a lead. There is no
// update or delete path for it.
type Interaction struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	LeadID      uint            `json:"lead_id" gorm:"index;not null"`
	UserID      *uint           `json:"user_id" gorm:"index"`
	Type        InteractionType `json:"type" gorm:"size:20;not null"`
	Subject     string          `json:"subject" gorm:"size:255"`
	Description string          `json:"description" gorm:"type:text"`
	Metadata    datatypes.JSON  `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`

	Lead Lead `json:"-" gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE"`
}

func (t InteractionType) Valid() bool {
	switch t {
	case InteractionLigacao, InteractionWhatsApp, InteractionEmail, InteractionVisita,
		InteractionReuniao, InteractionProposta, InteractionNota, InteractionStatusChange:
		return true
	}
	return false
}
