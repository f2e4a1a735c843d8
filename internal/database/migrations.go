package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/comunitree/internal/models"
)

// LocationSeed describes a developer-managed LOCATION community.
type LocationSeed struct {
	Name        string
	Slug        string
	Description string
}

// DefaultLocations are the locations created on a fresh install.
var DefaultLocations = []LocationSeed{
	{Name: "Austin", Slug: "austin", Description: "Austin metropolitan area"},
	{Name: "San Francisco", Slug: "san-francisco", Description: "San Francisco Bay Area"},
	{Name: "New York", Slug: "new-york", Description: "New York City metropolitan area"},
}

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Community{},
		&models.CommunityParent{},
		&models.Membership{},
		&models.Invite{},
		&models.Friendship{},
		&models.Event{},
		&models.RSVP{},
		&models.Rating{},
		&models.AuditLog{},
	)
}

// SeedLocations inserts the given LOCATION communities, skipping slugs that already exist. A slug
// held by a non-LOCATION community is an error.
func SeedLocations(db *gorm.DB, locations []LocationSeed) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	for _, loc := range locations {
		var existing models.Community
		err := db.Where("slug = ?", loc.Slug).Take(&existing).Error
		switch {
		case err == nil:
			if existing.Type != models.CommunityTypeLocation {
				return fmt.Errorf("slug %q is taken by a %s community", loc.Slug, existing.Type)
			}
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("lookup %q: %w", loc.Slug, err)
		}

		community := models.Community{
			Name:        loc.Name,
			Slug:        loc.Slug,
			Type:        models.CommunityTypeLocation,
			Description: loc.Description,
			IsActive:    true,
		}
		if err := db.Create(&community).Error; err != nil {
			return fmt.Errorf("create %q: %w", loc.Slug, err)
		}
	}
	return nil
}
