package model

import (
	"time"

	"gorm.io/gorm"
)

type FinancialType string

const (
	FinancialRevenue FinancialType = "revenue"
	FinancialExpense FinancialType = "expense"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

// FinancialTransaction is a bookkeeping entry. Amount is in centavos.
type FinancialTransaction struct {
	gorm.Model
	Type          FinancialType `json:"type" gorm:"size:10;not null;index"`
	Category      string        `json:"category" gorm:"size:100"`
	Amount        int64         `json:"amount" gorm:"not null"`
	Currency      string        `json:"currency" gorm:"size:3;not null"`
	Description   string        `json:"description" gorm:"type:text;not null"`
	PropertyID    *uint         `json:"property_id"`
	LeadID        *uint         `json:"lead_id"`
	OwnerID       *uint         `json:"owner_id"`
	Status        PaymentStatus `json:"status" gorm:"size:10;not null;index"`
	PaymentMethod string        `json:"payment_method" gorm:"size:50"`
	PaymentDate   *time.Time    `json:"payment_date"`
	DueDate       *time.Time    `json:"due_date"`
	Notes         string        `json:"notes" gorm:"type:text"`
}

func (FinancialTransaction) TableName() string {
	return "transactions"
}

// Commission on a closed deal. RateBasisPoints is the rate in 1/100 of a
// percent, so 600 means 6%.
type Commission struct {
	gorm.Model
	PropertyID            uint          `json:"property_id" gorm:"index;not null"`
	LeadID                uint          `json:"lead_id" gorm:"index;not null"`
	OwnerID               *uint         `json:"owner_id"`
	SalePrice             int64         `json:"sale_price" gorm:"not null"`
	RateBasisPoints       int           `json:"rate_basis_points" gorm:"not null"`
	CommissionAmount      int64         `json:"commission_amount" gorm:"not null"`
	SplitWithAgent        bool          `json:"split_with_agent"`
	AgentName             string        `json:"agent_name" gorm:"size:255"`
	AgentCommissionAmount int64         `json:"agent_commission_amount"`
	Status                PaymentStatus `json:"status" gorm:"size:10;not null;index"`
	PaymentDate           *time.Time    `json:"payment_date"`
	Notes                 string        `json:"notes" gorm:"type:text"`
}
