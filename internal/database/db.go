package database

import (
	"log"

	"backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Group{},
		&model.RequestType{},
		&model.Request{},
		&model.Approval{},
		&model.Attachment{},
		&model.FileToken{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Seed ensures the built-in roles, groups and request types exist.
// Idempotent: rerunning on startup never duplicates rows.
func Seed(db *gorm.DB) error {
	roles := []model.Role{
		{Name: model.RoleAdmin, Description: "Full access to all requests, users and settings"},
		{Name: model.RoleManager, Description: "Approves requests for owned groups"},
		{Name: model.RoleUser, Description: "Submits requests"},
	}
	for i := range roles {
		if err := db.Where(model.Role{Name: roles[i].Name}).
			FirstOrCreate(&roles[i]).Error; err != nil {
			return err
		}
	}

	groups := []model.Group{
		{Name: "IT", Description: "Information technology department"},
		{Name: "Corporate", Description: "Corporate services"},
	}
	for i := range groups {
		if err := db.Where(model.Group{Name: groups[i].Name}).
			FirstOrCreate(&groups[i]).Error; err != nil {
			return err
		}
	}

	changeSchema := `{"fields":["change_type","priority","implementation_date","impact","rollback_plan"]}`
	assetSchema := `{"fields":["asset_name","quantity","estimated_cost","justification"]}`
	types := []model.RequestType{
		{
			Name:        model.RequestTypeChange,
			Description: "Planned changes to IT systems and infrastructure",
			GroupID:     &groups[0].ID,
			Schema:      changeSchema,
		},
		{
			Name:        model.RequestTypeAsset,
			Description: "Procurement of hardware, software and equipment",
			GroupID:     &groups[1].ID,
			Schema:      assetSchema,
		},
	}
	for i := range types {
		if err := db.Where(model.RequestType{Name: types[i].Name}).
			FirstOrCreate(&types[i]).Error; err != nil {
			return err
		}
	}

	return nil
}
