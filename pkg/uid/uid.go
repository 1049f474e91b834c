package uid

import "github.com/google/uuid"

// New generates a random request identifier.
func New() string {
	return uuid.NewString()
}

// Normalize returns id in canonical form when it is a UUID, or a fresh
// identifier when it is not, so untrusted inbound IDs never reach the logs.
func Normalize(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return New()
	}
	return parsed.String()
}
