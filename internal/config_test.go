package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		LogLevel:                "INFO",
		GrpcPort:                8080,
		HttpPort:                8090,
		DebugPort:               8081,
		BadgerFilepath:          "/tmp/badger",
		BlugeFilepath:           "/tmp/bluge",
		JwtSecret:               "0123456789abcdef0123456789abcdef",
		BufferSize:              128,
		ConnectionBufferSize:    256,
		InboundBufferSize:       16,
		MaxContentLength:        2000,
		CharReplacement:         "*",
		NotificationConcurrency: 8,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("should accept a complete configuration", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("should refuse a short secret", func(t *testing.T) {
		config := validConfig()
		config.JwtSecret = "short"
		require.Error(t, config.Validate())
	})

	t.Run("should refuse a malformed webhook url", func(t *testing.T) {
		config := validConfig()
		config.PushWebhookURL = "not a url"
		require.Error(t, config.Validate())
	})

	t.Run("should refuse a multi character replacement", func(t *testing.T) {
		config := validConfig()
		config.CharReplacement = "**"
		require.Error(t, config.Validate())
	})
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("€")
	req.NoError(err)
	req.Equal('€', r)

	_, err = CharacterRune("")
	req.Error(err)
}
