package config

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory into the process
// environment. A missing file is not an error; env vars can be set by
// other means.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
	log.Println("Environment variables loaded (if .env present)")
}
