// Package main repairs a dirty migration state in the goal tracker database.
// golang-migrate marks a version dirty when a migration starts and clears the
// flag when it finishes, so a crash in between blocks every later startup with
// "Dirty database version". This tool reads the connection settings from the
// usual config file and GTR_ variables, then forces the recorded version so
// the runner can retry cleanly.
//
// Usage: fix-migration [version]
//
// Without an argument the current version is kept and only the dirty flag is
// cleared. Pass the last version that fully applied to roll the record back.
package main

import (
	"log"
	"os"
	"strconv"

	"github.com/goaltracker/goaltracker/internal/config"
	"github.com/goaltracker/goaltracker/internal/db"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database.GetDSN(), 1, 1)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		log.Fatalf("Failed to check migration state: %v", err)
	}
	log.Printf("Current migration state: version=%d, dirty=%v", version, dirty)

	target := int(version)
	if len(os.Args) > 1 {
		target, err = strconv.Atoi(os.Args[1])
		if err != nil || target < 0 {
			log.Fatalf("Invalid version %q", os.Args[1])
		}
	} else if !dirty {
		log.Println("Migration state is already clean")
		return
	}

	if err := db.ForceVersion(database, target); err != nil {
		log.Fatalf("Failed to fix migration state: %v", err)
	}

	version, dirty, err = db.GetMigrationVersion(database)
	if err != nil {
		log.Fatalf("Failed to check final migration state: %v", err)
	}
	log.Printf("Final migration state: version=%d, dirty=%v", version, dirty)
}
