package service

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"corretor_backend/internal/model"
)

const countryCode = "55"

// NormalizePhone keeps only the digits of a phone number.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CanonicalPhone is the national form of a Brazilian number: digits only,
// without the 55 country code. Area code and subscriber number stay intact,
// so 5511999998888 and 5561999998888 never compare equal.
func CanonicalPhone(phone string) string {
	digits := NormalizePhone(phone)
	if (len(digits) == 12 || len(digits) == 13) && strings.HasPrefix(digits, countryCode) {
		return digits[len(countryCode):]
	}
	return digits
}

// phoneVariants lists the stored spellings of the same number: the national
// form and the one with the country code.
func phoneVariants(phone string) []string {
	national := CanonicalPhone(phone)
	if national == "" {
		return nil
	}
	if len(national) == 10 || len(national) == 11 {
		return []string{national, countryCode + national}
	}
	return []string{national}
}

// wherePhone matches any stored spelling of phone exactly.
func wherePhone(db *gorm.DB, phone string) *gorm.DB {
	return db.Where("phone IN ?", phoneVariants(phone))
}

// findLeadByPhone prefers a lead stored with exactly these digits over one
// stored in the other spelling. found is false when neither exists.
func findLeadByPhone(tx *gorm.DB, phone string, lock bool) (lead model.Lead, found bool, err error) {
	query := func() *gorm.DB {
		if lock {
			return tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		return tx.Model(&model.Lead{})
	}

	res := query().Where("phone = ?", phone).Order("id ASC").Limit(1).Find(&lead)
	if res.Error != nil || res.RowsAffected > 0 {
		return lead, res.RowsAffected > 0, res.Error
	}

	res = wherePhone(query(), phone).Order("id ASC").Limit(1).Find(&lead)
	return lead, res.RowsAffected > 0, res.Error
}
