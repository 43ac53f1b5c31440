package models

import (
	"log"

	"bitbucket.org/mmdatafocus/quotes_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Category{}, &Template{}, &Product{},
		&Quote{}, &QuoteEventRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
