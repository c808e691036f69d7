// Package config loads client configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// PlaceholderPhone is the sample number shipped in .env templates. The
// checkout handoff refuses to use it.
const PlaceholderPhone = "1234567890"

// Config holds the environment-supplied client settings.
type Config struct {
	// APIBaseURL is the remote API base, e.g. http://localhost:8000.
	APIBaseURL string
	// StatePath is the local durable-state file.
	StatePath string
	// WhatsAppPhone is the handoff number, digits only, no leading +.
	WhatsAppPhone string
	// ContactEmail is printed on the checkout receipt.
	ContactEmail string
	// StripeKey enables card tokenization when set.
	StripeKey string
}

// Load reads configuration, preferring real environment variables over .env.
func Load() *Config {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:    getenv("GALERIJA_API_URL", "http://localhost:8000"),
		StatePath:     getenv("GALERIJA_STATE", "galerija.sqlite3"),
		WhatsAppPhone: os.Getenv("GALERIJA_WHATSAPP_PHONE"),
		ContactEmail:  getenv("GALERIJA_CONTACT_EMAIL", "info@artgallery.com"),
		StripeKey:     os.Getenv("GALERIJA_STRIPE_KEY"),
	}
}

// HandoffPhone validates and returns the WhatsApp handoff number. It rejects
// an unset number, the known placeholder default, and anything that is not
// plain digits.
func (c *Config) HandoffPhone() (string, error) {
	phone := strings.TrimSpace(c.WhatsAppPhone)
	if phone == "" {
		return "", errors.New("GALERIJA_WHATSAPP_PHONE is not set")
	}
	if phone == PlaceholderPhone {
		return "", errors.New("GALERIJA_WHATSAPP_PHONE is still the placeholder default")
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("GALERIJA_WHATSAPP_PHONE must be digits only, got %q", phone)
		}
	}
	return phone, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
