package utils

import (
	"log"
	"sync"

	"github.com/joho/godotenv"
)

var envOnce sync.Once

// LoadEnv loads .env into the process environment once. Variables already set
// in the environment win.
func LoadEnv() {
	envOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("ℹ️  No .env file found, continuing...")
		}
	})
}
