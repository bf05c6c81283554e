package model

import "gorm.io/gorm"

// Owner is the landlord or seller behind one or more listings.
type Owner struct {
	gorm.Model
	Name        string `json:"name" gorm:"not null"`
	CPFCNPJ     string `json:"cpf_cnpj" gorm:"column:cpf_cnpj;size:18;index"`
	Email       string `json:"email" gorm:"size:320"`
	Phone       string `json:"phone" gorm:"size:20"`
	WhatsApp    string `json:"whatsapp" gorm:"column:whatsapp;size:20"`
	Address     string `json:"address" gorm:"type:text"`
	City        string `json:"city" gorm:"size:100"`
	State       string `json:"state" gorm:"size:2"`
	ZipCode     string `json:"zip_code" gorm:"size:10"`
	BankName    string `json:"bank_name" gorm:"size:100"`
	BankAgency  string `json:"bank_agency" gorm:"size:20"`
	BankAccount string `json:"bank_account" gorm:"size:30"`
	PixKey      string `json:"pix_key" gorm:"size:255"`
	Notes       string `json:"notes" gorm:"type:text"`
	Active      bool   `json:"active"`
}
