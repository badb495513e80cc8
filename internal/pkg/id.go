package pkg

import "github.com/google/uuid"

const shortIDLength = 8

// GenerateGameID returns a short game identifier, the first 8 characters of
// a random UUID.
func GenerateGameID() string {
	return uuid.NewString()[:shortIDLength]
}

// GeneratePlayerID returns a stable client identity token.
func GeneratePlayerID() string {
	return uuid.NewString()[:shortIDLength]
}
