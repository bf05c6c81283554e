package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/apperror"
	"corretor_backend/pkg/database"
)

type TransactionInput struct {
	Type          model.FinancialType `json:"type" validate:"required,oneof=revenue expense"`
	Category      string              `json:"category" validate:"max=100"`
	Amount        int64               `json:"amount" validate:"required,gt=0"`
	Currency      string              `json:"currency" validate:"omitempty,len=3"`
	Description   string              `json:"description" validate:"required"`
	PropertyID    *uint               `json:"property_id"`
	LeadID        *uint               `json:"lead_id"`
	OwnerID       *uint               `json:"owner_id"`
	Status        model.PaymentStatus `json:"status" validate:"omitempty,oneof=pending paid cancelled"`
	PaymentMethod string              `json:"payment_method" validate:"max=50"`
	PaymentDate   *time.Time          `json:"payment_date"`
	DueDate       *time.Time          `json:"due_date"`
	Notes         string              `json:"notes"`
}

type CommissionInput struct {
	PropertyID            uint                `json:"property_id" validate:"required"`
	LeadID                uint                `json:"lead_id" validate:"required"`
	OwnerID               *uint               `json:"owner_id"`
	SalePrice             int64               `json:"sale_price" validate:"required,gt=0"`
	RateBasisPoints       int                 `json:"rate_basis_points" validate:"required,gt=0,max=10000"`
	SplitWithAgent        bool                `json:"split_with_agent"`
	AgentName             string              `json:"agent_name" validate:"max=255"`
	AgentCommissionAmount int64               `json:"agent_commission_amount" validate:"min=0"`
	Status                model.PaymentStatus `json:"status" validate:"omitempty,oneof=pending paid cancelled"`
	PaymentDate           *time.Time          `json:"payment_date"`
	Notes                 string              `json:"notes"`
}

// FinancialSummary sums paid entries. All values are in centavos.
type FinancialSummary struct {
	TotalRevenue       int64 `json:"total_revenue"`
	TotalExpenses      int64 `json:"total_expenses"`
	PaidCommissions    int64 `json:"paid_commissions"`
	PendingCommissions int64 `json:"pending_commissions"`
	NetProfit          int64 `json:"net_profit"`
}

func ListTransactions(c *fiber.Ctx) error {
	query := database.GetDB().Model(&model.FinancialTransaction{})
	if t := c.Query("type"); t != "" {
		query = query.Where("type = ?", t)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	transactions := []model.FinancialTransaction{}
	if err := query.Order("created_at desc").Find(&transactions).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch transactions", err))
	}
	return c.JSON(transactions)
}

func CreateTransaction(c *fiber.Ctx) error {
	input := new(TransactionInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	transaction := model.FinancialTransaction{
		Type:          input.Type,
		Category:      input.Category,
		Amount:        input.Amount,
		Currency:      input.Currency,
		Description:   input.Description,
		PropertyID:    input.PropertyID,
		LeadID:        input.LeadID,
		OwnerID:       input.OwnerID,
		Status:        input.Status,
		PaymentMethod: input.PaymentMethod,
		PaymentDate:   input.PaymentDate,
		DueDate:       input.DueDate,
		Notes:         input.Notes,
	}
	if transaction.Currency == "" {
		transaction.Currency = "BRL"
	}
	if transaction.Status == "" {
		transaction.Status = model.PaymentPending
	}

	if err := database.GetDB().Create(&transaction).Error; err != nil {
		return respondError(c, apperror.Internal("Could not create transaction", err))
	}
	return c.Status(fiber.StatusCreated).JSON(transaction)
}

func ListCommissions(c *fiber.Ctx) error {
	query := database.GetDB().Model(&model.Commission{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	commissions := []model.Commission{}
	if err := query.Order("created_at desc").Find(&commissions).Error; err != nil {
		return respondError(c, apperror.Internal("Could not fetch commissions", err))
	}
	return c.JSON(commissions)
}

// CreateCommission derives commission_amount from the sale price and the
// rate in basis points.
func CreateCommission(c *fiber.Ctx) error {
	input := new(CommissionInput)
	if handled, err := parseAndValidate(c, input); handled {
		return err
	}

	amount := input.SalePrice * int64(input.RateBasisPoints) / 10000
	if input.AgentCommissionAmount > amount {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Comissão do corretor parceiro maior que a comissão total",
		})
	}

	commission := model.Commission{
		PropertyID:            input.PropertyID,
		LeadID:                input.LeadID,
		OwnerID:               input.OwnerID,
		SalePrice:             input.SalePrice,
		RateBasisPoints:       input.RateBasisPoints,
		CommissionAmount:      amount,
		SplitWithAgent:        input.SplitWithAgent,
		AgentName:             input.AgentName,
		AgentCommissionAmount: input.AgentCommissionAmount,
		Status:                input.Status,
		PaymentDate:           input.PaymentDate,
		Notes:                 input.Notes,
	}
	if !commission.SplitWithAgent {
		commission.AgentName = ""
		commission.AgentCommissionAmount = 0
	}
	if commission.Status == "" {
		commission.Status = model.PaymentPending
	}

	if err := database.GetDB().Create(&commission).Error; err != nil {
		return respondError(c, apperror.Internal("Could not create commission", err))
	}
	return c.Status(fiber.StatusCreated).JSON(commission)
}

func GetFinancialSummary(c *fiber.Ctx) error {
	db := database.GetDB()
	var summary FinancialSummary

	sum := func(table interface{}, column, where string, args ...interface{}) (int64, error) {
		var total int64
		err := db.Model(table).Select("COALESCE(SUM(" + column + "), 0)").Where(where, args...).Scan(&total).Error
		return total, err
	}

	var err error
	if summary.TotalRevenue, err = sum(&model.FinancialTransaction{}, "amount", "type = ? AND status = ?", model.FinancialRevenue, model.PaymentPaid); err != nil {
		return respondError(c, apperror.Internal("Could not build summary", err))
	}
	if summary.TotalExpenses, err = sum(&model.FinancialTransaction{}, "amount", "type = ? AND status = ?", model.FinancialExpense, model.PaymentPaid); err != nil {
		return respondError(c, apperror.Internal("Could not build summary", err))
	}
	if summary.PaidCommissions, err = sum(&model.Commission{}, "commission_amount", "status = ?", model.PaymentPaid); err != nil {
		return respondError(c, apperror.Internal("Could not build summary", err))
	}
	if summary.PendingCommissions, err = sum(&model.Commission{}, "commission_amount", "status = ?", model.PaymentPending); err != nil {
		return respondError(c, apperror.Internal("Could not build summary", err))
	}

	summary.NetProfit = summary.TotalRevenue + summary.PaidCommissions - summary.TotalExpenses
	return c.JSON(summary)
}
