package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	switch environment {
	case "development", "staging":
		prefix = "staging"
	case "local", "test":
		prefix = environment
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyFriendship is the cached LINE friendship status of a user.
func (kb *KeyBuilder) KeyFriendship(userID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyFriendship, userID))
}

// KeySurveyRateLimit is the submission counter of one hashed client IP.
func (kb *KeyBuilder) KeySurveyRateLimit(ipHash string) string {
	return kb.BuildKey(fmt.Sprintf(KeySurveyRateLimit, ipHash))
}
