package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GALERIJA_API_URL", "")
	t.Setenv("GALERIJA_STATE", "")
	t.Setenv("GALERIJA_CONTACT_EMAIL", "")

	cfg := Load()
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, "galerija.sqlite3", cfg.StatePath)
	assert.Equal(t, "info@artgallery.com", cfg.ContactEmail)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GALERIJA_API_URL", "https://api.example.com")
	t.Setenv("GALERIJA_WHATSAPP_PHONE", "38640123456")

	cfg := Load()
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "38640123456", cfg.WhatsAppPhone)
}

func TestHandoffPhone(t *testing.T) {
	phone, err := (&Config{WhatsAppPhone: "38640123456"}).HandoffPhone()
	require.NoError(t, err)
	assert.Equal(t, "38640123456", phone)

	_, err = (&Config{}).HandoffPhone()
	assert.Error(t, err, "unset number")

	_, err = (&Config{WhatsAppPhone: PlaceholderPhone}).HandoffPhone()
	assert.Error(t, err, "placeholder default")

	_, err = (&Config{WhatsAppPhone: "+386 40 123 456"}).HandoffPhone()
	assert.Error(t, err, "formatted number")
}
