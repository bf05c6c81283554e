package model

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Property Types
type PropertyType string

const (
	PropertyTypeCasa        PropertyType = "casa"
	PropertyTypeApartamento PropertyType = "apartamento"
	PropertyTypeCobertura   PropertyType = "cobertura"
	PropertyTypeTerreno     PropertyType = "terreno"
	PropertyTypeComercial   PropertyType = "comercial"
	PropertyTypeRural       PropertyType = "rural"
	PropertyTypeLancamento  PropertyType = "lancamento"
)

// Transaction Types
type TransactionType string

const (
	TransactionVenda   TransactionType = "venda"
	TransactionLocacao TransactionType = "locacao"
	TransactionAmbos   TransactionType = "ambos"
)

// Property Status
type PropertyStatus string

const (
	PropertyStatusDisponivel PropertyStatus = "disponivel"
	PropertyStatusReservado  PropertyStatus = "reservado"
	PropertyStatusVendido    PropertyStatus = "vendido"
	PropertyStatusAlugado    PropertyStatus = "alugado"
	PropertyStatusInativo    PropertyStatus = "inativo"
)

// Property is a listing. Money fields are integer centavos.
type Property struct {
	gorm.Model
	Title         string  `json:"title" gorm:"not null"`
	Description   string  `json:"description" gorm:"type:text"`
	ReferenceCode *string `json:"reference_code" gorm:"uniqueIndex;size:50"`
	Slug          string  `json:"slug" gorm:"uniqueIndex;size:255;not null"`

	PropertyType    PropertyType    `json:"property_type" gorm:"size:20;not null;index"`
	TransactionType TransactionType `json:"transaction_type" gorm:"size:20;not null;index"`
	Status          PropertyStatus  `json:"status" gorm:"size:20;not null;default:disponivel;index"`

	// Location fields
	Address      string `json:"address"`
	Neighborhood string `json:"neighborhood" gorm:"size:100;index"`
	City         string `json:"city" gorm:"size:100"`
	State        string `json:"state" gorm:"size:2"`
	ZipCode      string `json:"zip_code" gorm:"size:10"`
	Latitude     string `json:"latitude" gorm:"size:20"`
	Longitude    string `json:"longitude" gorm:"size:20"`

	// Prices
	SalePrice *int64 `json:"sale_price"`
	RentPrice *int64 `json:"rent_price"`
	CondoFee  *int64 `json:"condo_fee"`
	IPTU      *int64 `json:"iptu" gorm:"column:iptu"`

	// Features fields
	Bedrooms      int    `json:"bedrooms" gorm:"default:0"`
	Bathrooms     int    `json:"bathrooms" gorm:"default:0"`
	Suites        int    `json:"suites" gorm:"default:0"`
	ParkingSpaces int    `json:"parking_spaces" gorm:"default:0"`
	TotalArea     int    `json:"total_area" gorm:"default:0"` // m²
	BuiltArea     int    `json:"built_area" gorm:"default:0"`
	Features      string `json:"features" gorm:"type:text"`
	MainImage     string `json:"main_image"`

	Featured        bool   `json:"featured" gorm:"default:false;index"`
	Published       bool   `json:"published"`
	MetaTitle       string `json:"meta_title" gorm:"size:255"`
	MetaDescription string `json:"meta_description" gorm:"type:text"`

	CreatedBy *uint `json:"created_by"`

	Images []PropertyImage `json:"images,omitempty" gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
}

type PropertyImage struct {
	gorm.Model
	PropertyID   uint   `json:"property_id" gorm:"index;not null"`
	ImageURL     string `json:"image_url" gorm:"not null"`
	ImageKey     string `json:"image_key" gorm:"not null"`
	IsPrimary    bool   `json:"is_primary" gorm:"default:false"`
	DisplayOrder int    `json:"display_order" gorm:"default:0"`
	Caption      string `json:"caption" gorm:"size:255"`
}

// BeforeCreate fills the slug from the title when none was given.
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = slug.Make(p.Title)
	}
	if p.Slug == "" {
		p.Slug = "imovel"
	}

	var count int64
	tx.Session(&gorm.Session{NewDB: true}).Model(&Property{}).Unscoped().Where("slug = ?", p.Slug).Count(&count)
	if count > 0 {
		p.Slug = fmt.Sprintf("%s-%d", p.Slug, time.Now().UnixNano()%1_000_000)
	}
	if p.Status == "" {
		p.Status = PropertyStatusDisponivel
	}
	return nil
}

func (t PropertyType) Valid() bool {
	switch t {
	case PropertyTypeCasa, PropertyTypeApartamento, PropertyTypeCobertura, PropertyTypeTerreno,
		PropertyTypeComercial, PropertyTypeRural, PropertyTypeLancamento:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionVenda, TransactionLocacao, TransactionAmbos:
		return true
	}
	return false
}

func (s PropertyStatus) Valid() bool {
	switch s {
	case PropertyStatusDisponivel, PropertyStatusReservado, PropertyStatusVendido,
		PropertyStatusAlugado, PropertyStatusInativo:
		return true
	}
	return false
}
