package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/apperror"
)

const (
	DefaultMatchLimit = 5
	MaxMatchLimit     = 50
)

// Criteria are explicit search parameters. Set fields win over the values
// stored on the lead.
type Criteria struct {
	TransactionType model.TransactionType
	PropertyType    string
	Neighborhood    string
	MinPrice        *int64
	MaxPrice        *int64
	Limit           int
}

// Filter is the resolved search a Matcher runs.
type Filter struct {
	TransactionType model.TransactionType
	PropertyTypes   []string
	Neighborhoods   []string
	MinPrice        *int64
	MaxPrice        *int64
	Limit           int
}

// PropertySummary is the slim listing handed to the automation engine.
type PropertySummary struct {
	ID              uint                  `json:"id"`
	ReferenceCode   *string               `json:"referenceCode"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	PropertyType    model.PropertyType    `json:"propertyType"`
	TransactionType model.TransactionType `json:"transactionType"`
	SalePrice       *int64                `json:"salePrice"`
	RentPrice       *int64                `json:"rentPrice"`
	Address         string                `json:"address"`
	Neighborhood    string                `json:"neighborhood"`
	City            string                `json:"city"`
	State           string                `json:"state"`
	Bedrooms        int                   `json:"bedrooms"`
	Bathrooms       int                   `json:"bathrooms"`
	ParkingSpaces   int                   `json:"parkingSpaces"`
	TotalArea       int                   `json:"totalArea"`
	MainImage       string                `json:"mainImage"`
	URL             string                `json:"url"`
}

type Matcher struct {
	db      *gorm.DB
	siteURL string
}

func NewMatcher(db *gorm.DB, siteURL string) *Matcher {
	return &Matcher{db: db, siteURL: strings.TrimRight(siteURL, "/")}
}

// Resolve merges explicit criteria with the preferences stored on lead.
// lead may be nil.
func Resolve(lead *model.Lead, c Criteria) Filter {
	f := Filter{
		TransactionType: c.TransactionType,
		MinPrice:        positive(c.MinPrice),
		MaxPrice:        positive(c.MaxPrice),
		Limit:           c.Limit,
	}

	if c.PropertyType != "" {
		f.PropertyTypes = []string{c.PropertyType}
	}
	if c.Neighborhood != "" {
		f.Neighborhoods = []string{c.Neighborhood}
	}

	if lead != nil {
		if f.TransactionType == "" {
			f.TransactionType = lead.TransactionInterest
		}
		if f.MinPrice == nil {
			f.MinPrice = positive(lead.BudgetMin)
		}
		if f.MaxPrice == nil {
			f.MaxPrice = positive(lead.BudgetMax)
		}
		if f.PropertyTypes == nil {
			f.PropertyTypes = nonEmpty(lead.PreferredPropertyTypes)
		}
		if f.Neighborhoods == nil {
			f.Neighborhoods = nonEmpty(lead.PreferredNeighborhoods)
		}
	}

	if f.Limit <= 0 {
		f.Limit = DefaultMatchLimit
	}
	if f.Limit > MaxMatchLimit {
		f.Limit = MaxMatchLimit
	}
	return f
}

// Match returns available properties satisfying f, newest first.
func (m *Matcher) Match(ctx context.Context, f Filter) ([]model.Property, error) {
	db := m.db.WithContext(ctx)
	q := db.Model(&model.Property{}).
		Where("status = ?", model.PropertyStatusDisponivel)

	switch f.TransactionType {
	case model.TransactionVenda, model.TransactionLocacao:
		q = q.Where("transaction_type IN ?", []model.TransactionType{f.TransactionType, model.TransactionAmbos})
	}

	if len(f.PropertyTypes) > 0 {
		q = q.Where("property_type IN ?", f.PropertyTypes)
	}

	if len(f.Neighborhoods) > 0 {
		group := db.Where("LOWER(neighborhood) LIKE ?", likePattern(f.Neighborhoods[0]))
		for _, n := range f.Neighborhoods[1:] {
			group = group.Or("LOWER(neighborhood) LIKE ?", likePattern(n))
		}
		q = q.Where(group)
	}

	priceColumn := "sale_price"
	if f.TransactionType == model.TransactionLocacao {
		priceColumn = "rent_price"
	}
	if f.MinPrice != nil {
		q = q.Where(priceColumn+" >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where(priceColumn+" <= ?", *f.MaxPrice)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultMatchLimit
	}

	var properties []model.Property
	err := q.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Where("is_primary = ?", true)
	}).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&properties).Error
	if err != nil {
		return nil, apperror.Internal("Could not search properties", err)
	}
	return properties, nil
}

// MatchForLead loads the lead and runs its resolved search.
func (m *Matcher) MatchForLead(ctx context.Context, leadID uint, c Criteria) (*model.Lead, []model.Property, error) {
	var lead model.Lead
	if err := m.db.WithContext(ctx).First(&lead, leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperror.NotFound("Lead não encontrado")
		}
		return nil, nil, apperror.Internal("Could not load lead", err)
	}

	properties, err := m.Match(ctx, Resolve(&lead, c))
	if err != nil {
		return nil, nil, err
	}
	return &lead, properties, nil
}

// Summarize projects properties to the slim listing, preserving order.
func (m *Matcher) Summarize(properties []model.Property) []PropertySummary {
	out := make([]PropertySummary, 0, len(properties))
	for _, p := range properties {
		image := p.MainImage
		if image == "" {
			for _, img := range p.Images {
				if img.IsPrimary {
					image = img.ImageURL
					break
				}
			}
		}
		out = append(out, PropertySummary{
			ID:              p.ID,
			ReferenceCode:   p.ReferenceCode,
			Title:           p.Title,
			Description:     p.Description,
			PropertyType:    p.PropertyType,
			TransactionType: p.TransactionType,
			SalePrice:       p.SalePrice,
			RentPrice:       p.RentPrice,
			Address:         p.Address,
			Neighborhood:    p.Neighborhood,
			City:            p.City,
			State:           p.State,
			Bedrooms:        p.Bedrooms,
			Bathrooms:       p.Bathrooms,
			ParkingSpaces:   p.ParkingSpaces,
			TotalArea:       p.TotalArea,
			MainImage:       image,
			URL:             fmt.Sprintf("%s/imovel/%d", m.siteURL, p.ID),
		})
	}
	return out
}

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

func positive(v *int64) *int64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
