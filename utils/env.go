package utils

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// DefaultEnvLocations are tried in order by LoadEnvWithFallback
var DefaultEnvLocations = []string{
	".env",        // Current directory
	".env.local",  // Local override
	"config/.env", // Config directory
}

// LoadEnv loads environment variables from a .env file.
// Variables already present in the process environment are kept.
func LoadEnv(filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", filename, os.ErrNotExist)
	}

	if err := godotenv.Load(filename); err != nil {
		return fmt.Errorf("error loading %s: %w", filename, err)
	}

	log.Printf("Loaded environment variables from %s", filename)
	return nil
}

// LoadEnvWithFallback loads the first .env file found in locations.
// A missing file everywhere is not an error.
func LoadEnvWithFallback(locations ...string) error {
	if len(locations) == 0 {
		locations = DefaultEnvLocations
	}

	for _, location := range locations {
		err := LoadEnv(location)
		if err == nil {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return err
	}

	log.Printf("No .env files found in standard locations, using system environment only")
	return nil
}
