package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"corretor_backend/internal/model"
)

func int64Ptr(v int64) *int64 { return &v }

func createLead(t *testing.T, db *gorm.DB, lead model.Lead) model.Lead {
	t.Helper()
	if lead.Name == "" {
		lead.Name = "Maria Souza"
	}
	require.NoError(t, db.Create(&lead).Error)
	return lead
}

func createProperty(t *testing.T, db *gorm.DB, p model.Property) model.Property {
	t.Helper()
	if p.Title == "" {
		p.Title = "Casa no Lago Sul"
	}
	if p.PropertyType == "" {
		p.PropertyType = model.PropertyTypeCasa
	}
	if p.TransactionType == "" {
		p.TransactionType = model.TransactionVenda
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
