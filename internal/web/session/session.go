package session

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// ErrStoreNotInitialized is returned when reading or writing before Init.
var ErrStoreNotInitialized = errors.New("session store is not initialized")

// ErrSessionNotFound is returned when the session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// Store is the global session store instance.
var Store *session.Store

// Data represents the session data structure.
// The identity provider owning the login writes it, this service only reads the user id.
type Data struct {
	UserID string `json:"user_id"`
}

// Write writes the session data for the given session ID with an expiration duration.
func (s *Data) Write(sessionID string, exp time.Duration) error {
	if Store == nil {
		return ErrStoreNotInitialized
	}

	out, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return Store.Storage.Set(sessionID, out, exp)
}

// Read reads the session data for the given session ID.
func (s *Data) Read(sessionID string) error {
	if Store == nil {
		return ErrStoreNotInitialized
	}

	byteData, err := Store.Storage.Get(sessionID)
	if err != nil {
		return err
	}

	if len(byteData) == 0 {
		return ErrSessionNotFound
	}

	return json.Unmarshal(byteData, s)
}

// Init initializes the session store with the provided storage backend.
func Init(storage fiber.Storage) {
	if storage == nil {
		panic("storage is nil")
	}

	Store = session.New(session.Config{
		Storage: storage,
	})
}

// GenerateSessionID generates a new secure random session ID.
func GenerateSessionID() (string, error) {
	// 32 bytes = 256 bits
	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
