package database

import (
	"log"

	"team/models"

	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Preference{},
		&models.Post{},
		&models.Tag{},
		&models.Tagging{},
		&models.PostComment{},
		&models.Gist{},
		&models.GistComment{},
		&models.Tweet{},
		&models.TweetComment{},
		&models.Notification{},
		&models.Stock{},
		&models.Pin{},
	)

	if err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Migrations completed successfully")
	return nil
}
