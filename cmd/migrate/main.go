package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/pkg/config"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		logrus.Fatal("Usage: migrate [up|down|seed|staff <email>|unstaff <email>]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command := os.Args[1]; command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := models.SeedTeams(db); err != nil {
			logrus.Fatalf("Failed to seed teams: %v", err)
		}
		logrus.Infof("Seeded %d teams", len(models.NHLTeams()))

	case "staff", "unstaff":
		if len(os.Args) < 3 {
			logrus.Fatalf("Usage: migrate %s <email>", command)
		}
		user, err := models.SetStaff(db, os.Args[2], command == "staff")
		if err != nil {
			logrus.Fatalf("Failed to update %s: %v", os.Args[2], err)
		}
		logrus.Infof("%s is_staff=%t", user.Email, user.IsStaff)

	default:
		logrus.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Team-filtered dashboard scans and performance reports
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_data_lake_team_ts ON data_lake(team, ts)",
		"CREATE INDEX IF NOT EXISTS idx_data_lake_result_goal_ts ON data_lake(result_goal, ts)",
	}
	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func dropTables(db *database.DB) error {
	all := models.All()
	// reverse migration order
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop %T: %w", all[i], err)
		}
	}
	return nil
}
