package seed

import (
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"corretor_backend/internal/model"
	"corretor_backend/pkg/config"
)

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

// SeedAdmin creates the configured admin account when it does not exist yet.
// An existing account is promoted to admin but its password is left alone.
func SeedAdmin(db *gorm.DB, cfg config.SeedConfig) {
	address := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if address == "" || cfg.AdminPassword == "" {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing admin password: %v", err)
		return
	}

	admin := model.User{
		Email:    address,
		Password: string(hashed),
		Name:     cfg.AdminName,
		Role:     model.RoleAdmin,
	}
	result := db.Where(model.User{Email: address}).Attrs(admin).FirstOrCreate(&admin)
	if result.Error != nil {
		log.Printf("Error creating admin %s: %v", address, result.Error)
		return
	}
	if admin.Role != model.RoleAdmin {
		db.Model(&admin).Update("role", model.RoleAdmin)
	}

	log.Printf("Admin user %s ready", address)
}

// SeedDemoProperties inserts a few listings keyed by reference code so
// repeated runs do not duplicate them.
func SeedDemoProperties(db *gorm.DB) {
	properties := []model.Property{
		{
			Title:           "Mansão com vista para o lago",
			Description:     "Casa de alto padrão com piscina, área gourmet e acesso ao lago.",
			ReferenceCode:   strPtr("CM-0001"),
			PropertyType:    model.PropertyTypeCasa,
			TransactionType: model.TransactionVenda,
			Neighborhood:    "Lago Sul",
			City:            "Brasília",
			State:           "DF",
			SalePrice:       int64Ptr(1_250_000_000),
			Bedrooms:        5,
			Bathrooms:       7,
			Suites:          5,
			ParkingSpaces:   6,
			TotalArea:       1800,
			BuiltArea:       950,
			Featured:        true,
			Published:       true,
		},
		{
			Title:           "Cobertura duplex no Sudoeste",
			Description:     "Cobertura com terraço, churrasqueira e vista livre.",
			ReferenceCode:   strPtr("CM-0002"),
			PropertyType:    model.PropertyTypeCobertura,
			TransactionType: model.TransactionAmbos,
			Neighborhood:    "Sudoeste",
			City:            "Brasília",
			State:           "DF",
			SalePrice:       int64Ptr(420_000_000),
			RentPrice:       int64Ptr(1_800_000),
			CondoFee:        int64Ptr(250_000),
			Bedrooms:        4,
			Bathrooms:       4,
			Suites:          2,
			ParkingSpaces:   3,
			TotalArea:       320,
			BuiltArea:       320,
			Featured:        true,
			Published:       true,
		},
		{
			Title:           "Apartamento mobiliado na Asa Norte",
			Description:     "Apartamento reformado perto do metrô.",
			ReferenceCode:   strPtr("CM-0003"),
			PropertyType:    model.PropertyTypeApartamento,
			TransactionType: model.TransactionLocacao,
			Neighborhood:    "Asa Norte",
			City:            "Brasília",
			State:           "DF",
			RentPrice:       int64Ptr(450_000),
			CondoFee:        int64Ptr(90_000),
			Bedrooms:        2,
			Bathrooms:       2,
			ParkingSpaces:   1,
			TotalArea:       78,
			BuiltArea:       78,
			Published:       true,
		},
	}

	for _, property := range properties {
		result := db.Where(model.Property{ReferenceCode: property.ReferenceCode}).FirstOrCreate(&property)
		if result.Error != nil {
			log.Printf("Error creating property %s: %v", *property.ReferenceCode, result.Error)
		}
	}

	log.Println("Demo properties seeded successfully!")
}
