package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKeyBuilder(t *testing.T) {
	tests := []struct {
		name           string
		environment    string
		expectedPrefix string
	}{
		{name: "Production environment", environment: "production", expectedPrefix: "prod"},
		{name: "Development environment", environment: "development", expectedPrefix: "staging"},
		{name: "Staging environment", environment: "staging", expectedPrefix: "staging"},
		{name: "Local environment", environment: "local", expectedPrefix: "local"},
		{name: "Test environment", environment: "test", expectedPrefix: "test"},
		{name: "Unknown environment defaults to prod", environment: "qa", expectedPrefix: "prod"},
		{name: "Empty environment defaults to prod", environment: "", expectedPrefix: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			assert.Equal(t, tt.expectedPrefix, kb.GetPrefix())
		})
	}
}

func TestKeyBuilder_Keys(t *testing.T) {
	kb := NewKeyBuilder("production")

	assert.Equal(t, "prod:line:friendship:U1234", kb.KeyFriendship("U1234"))
	assert.Equal(t, "prod:ratelimit:survey:abcd", kb.KeySurveyRateLimit("abcd"))
	assert.Equal(t, "prod:custom", kb.BuildKey("custom"))
}

func TestKeyBuilder_EnvironmentIsolation(t *testing.T) {
	prod := NewKeyBuilder("production")
	staging := NewKeyBuilder("staging")

	assert.NotEqual(t, prod.KeyFriendship("U1"), staging.KeyFriendship("U1"))
	assert.Equal(t, "staging:line:friendship:U1", staging.KeyFriendship("U1"))
}
