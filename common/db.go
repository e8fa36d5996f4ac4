package common

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ConnectDb opens the application database. Returns nil on failure.
func ConnectDb(databaseURL string) *gorm.DB {
	if databaseURL == "" {
		log.Println("TEAM_DATABASE_URL not set")
		return nil
	}

	db, err := gorm.Open(sqlite.Open(databaseURL), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		log.Println("Error opening database: " + err.Error())
		return nil
	}
	log.Println("opened database at:", databaseURL)
	return db
}
