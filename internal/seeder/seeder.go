package seeder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"

	"github.com/tribeapp/ai-engine/internal/auth"
)

const (
	TestAPIKey   = "test-api-key-12345"
	TestClientID = "00000000-0000-0000-0000-000000000001"
)

// SeedTestAPIKey inserts a development API key so local clients can call
// the engine without provisioning credentials by hand.
func SeedTestAPIKey(ctx context.Context, store auth.Store) {
	h := sha256.New()
	h.Write([]byte(TestAPIKey))
	keyHash := hex.EncodeToString(h.Sum(nil))

	apiKey := &auth.APIKey{
		ClientID:  TestClientID,
		KeyHash:   keyHash,
		RateLimit: 1000000,
		Active:    true,
	}

	err := store.Create(ctx, apiKey)
	if err != nil {
		log.Printf("[Seeder] API key may already exist, skipping: %v", err)
		return
	}
	log.Printf("[Seeder] Test API key created successfully")
	log.Printf("[Seeder] Key: %s", TestAPIKey)
	log.Printf("[Seeder] ClientID: %s", TestClientID)
}
