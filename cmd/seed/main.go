package main

import (
	"fmt"
	"log"
	"os"

	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/seed"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	command := "dev"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "dev":
		runSeed("development", func(s *seed.Seeder) error { return s.SeedDev() })
	case "test":
		runSeed("test", func(s *seed.Seeder) error { return s.SeedTest() })
	case "clean":
		runSeed("clean", func(s *seed.Seeder) error { return s.Clean() })
	default:
		fmt.Println("Usage: seed [dev|test|clean]")
		fmt.Println("  dev   - Seed development database with realistic data")
		fmt.Println("  test  - Seed test database with minimal data")
		fmt.Println("  clean - Remove all seed data (use with caution)")
		os.Exit(1)
	}
}

func runSeed(name string, fn func(*seed.Seeder) error) {
	log.Printf("Seeding (%s)...", name)

	if err := database.Initialize(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	seeder := seed.NewSeeder(database.DB)
	if err := fn(seeder); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done (%s)", name)
}
