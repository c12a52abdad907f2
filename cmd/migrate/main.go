// Package main applies or rolls back the PostgreSQL battle report schema.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	direction := flag.String("direction", "up", "migration direction: up, down or version")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	// Only the database section matters here, so the rest of the file is not
	// validated.
	v := config.NewViper()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("reading config: %v", err)
	}
	var dbCfg config.DatabaseConfig
	if err := v.UnmarshalKey("database", &dbCfg); err != nil {
		log.Fatalf("parsing database config: %v", err)
	}

	m, err := postgres.NewMigrator(dbCfg)
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	switch {
	case *direction == "version":
	case *direction == "up" && *steps > 0:
		err = m.Steps(*steps)
	case *direction == "up":
		err = m.Up()
	case *direction == "down" && *steps > 0:
		err = m.Steps(-*steps)
	case *direction == "down":
		err = m.Down()
	default:
		log.Fatalf("invalid direction %q: must be up, down or version", *direction)
	}
	noChange := errors.Is(err, migrate.ErrNoChange)
	if err != nil && !noChange {
		log.Fatalf("migration failed: %v", err)
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		log.Fatalf("reading schema version: %v", verr)
	}
	elapsed := time.Since(start)
	switch {
	case *direction == "version":
		fmt.Fprintf(os.Stdout, "version=%d dirty=%v [%s]\n", version, dirty, elapsed)
	case noChange:
		fmt.Fprintf(os.Stdout, "no changes (version=%d dirty=%v) [%s]\n", version, dirty, elapsed)
	default:
		fmt.Fprintf(os.Stdout, "migrated %s to version=%d dirty=%v [%s]\n", *direction, version, dirty, elapsed)
	}
}
