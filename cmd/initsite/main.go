package main

import (
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/opuslog/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// permissionSeeds is the complete permission catalogue. The rows are
// referenced by code name from the per-route permission tables, so running
// this before the first deploy is mandatory.
var permissionSeeds = []models.Permission{
	{Name: "Receive notification", CodeName: models.PermReceiveNotification, HelpText: "Receive the publication's notifications", PermissionFor: models.PermissionForBoth},
	{Name: "Read threads", CodeName: models.PermReadThreads, HelpText: "Read the publication's threads", PermissionFor: models.PermissionForPublication},
	{Name: "Create threads", CodeName: models.PermCreateThreads, HelpText: "Open threads in the publication's name", PermissionFor: models.PermissionForPublication},
	{Name: "Update threads", CodeName: models.PermUpdateThreads, HelpText: "Rename the publication's threads", PermissionFor: models.PermissionForPublication},
	{Name: "Create thread member", CodeName: models.PermCreateThreadMember, HelpText: "Invite members to the publication's threads", PermissionFor: models.PermissionForPublication},
	{Name: "Delete thread member", CodeName: models.PermDeleteThreadMember, HelpText: "Remove members from the publication's threads", PermissionFor: models.PermissionForPublication},
	{Name: "Read messages", CodeName: models.PermReadMessages, HelpText: "Read messages on the publication's threads", PermissionFor: models.PermissionForPublication},
	{Name: "Create messages", CodeName: models.PermCreateMessages, HelpText: "Send messages in the publication's name", PermissionFor: models.PermissionForPublication},
	{Name: "Comment", CodeName: models.PermComment, HelpText: "Comment in the publication's name", PermissionFor: models.PermissionForBoth},
	{Name: "Vote", CodeName: models.PermVote, HelpText: "Vote in the publication's name", PermissionFor: models.PermissionForBoth},
	{Name: "Subscribe", CodeName: models.PermSubscribe, HelpText: "Subscribe in the publication's name", PermissionFor: models.PermissionForPublication},
	{Name: "Can edit", CodeName: models.PermCanEdit, HelpText: "Edit write-ups and the contributor roster", PermissionFor: models.PermissionForBoth},
}

var primaryTagSeeds = []string{
	"fiction",
	"non-fiction",
	"poetry",
	"essay",
	"short-story",
	"science",
	"technology",
	"history",
	"philosophy",
	"travel",
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	connStr := os.Getenv("POSTGRES_CONN_STR")
	if connStr == "" {
		log.Fatal("POSTGRES_CONN_STR environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	if err := db.AutoMigrate(&models.Permission{}, &models.Tag{}); err != nil {
		log.Fatalf("Failed to auto migrate seed models: %v", err)
	}

	// All-or-nothing: a partially seeded site is worse than an unseeded one.
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, seed := range permissionSeeds {
			if err := getOrCreatePermission(tx, seed); err != nil {
				return err
			}
		}
		for _, name := range primaryTagSeeds {
			if err := getOrCreateTag(tx, name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Site initialization failed, rolled back: %v", err)
	}

	log.Printf("Site initialized: %d permissions, %d primary tags.", len(permissionSeeds), len(primaryTagSeeds))
}

func getOrCreatePermission(tx *gorm.DB, seed models.Permission) error {
	var existing models.Permission
	err := tx.Where("code_name = ?", seed.CodeName).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(&seed).Error
}

func getOrCreateTag(tx *gorm.DB, name string) error {
	var existing models.Tag
	err := tx.Where("name = ? AND tag_type = ?", name, models.TagPrimary).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(&models.Tag{Name: name, TagType: models.TagPrimary}).Error
}
