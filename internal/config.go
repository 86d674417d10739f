// Package internal holds the server configuration shared by the binaries.
package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	LogLevel       string `env:"LOG_LEVEL,required=true" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Host           string `env:"HOST,default=0.0.0.0"`
	GrpcPort       int    `env:"GRPC_PORT,default=8080" validate:"min=1,max=65535"`
	HttpPort       int    `env:"HTTP_PORT,default=8090" validate:"min=1,max=65535"`
	DebugPort      int    `env:"DEBUG_PORT,default=8081" validate:"min=1,max=65535"`
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true" validate:"required"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true" validate:"required"`

	JwtSecret   string `env:"JWT_SECRET,required=true" validate:"min=32"`
	TokenIssuer string `env:"TOKEN_ISSUER,default=challenge-chat"`

	BufferSize           int    `env:"BUFFER_SIZE,required=true" validate:"min=1"`
	ConnectionBufferSize int    `env:"CONNECTION_BUFFER_SIZE,default=256" validate:"min=1"`
	InboundBufferSize    int    `env:"INBOUND_BUFFER_SIZE,default=16" validate:"min=1"`
	MaxContentLength     int    `env:"MAX_CONTENT_LENGTH,default=2000" validate:"min=1"`
	CharReplacement      string `env:"CHARACTER_REPLACEMENT,default=*"`

	SinkTimeout             time.Duration `env:"SINK_TIMEOUT,default=5s"`
	NotificationTimeout     time.Duration `env:"NOTIFICATION_TIMEOUT,default=3s"`
	NotificationConcurrency int           `env:"NOTIFICATION_CONCURRENCY,default=8" validate:"min=1"`
	PushWebhookURL          string        `env:"PUSH_WEBHOOK_URL" validate:"omitempty,url"`
	PushWebhookToken        string        `env:"PUSH_WEBHOOK_TOKEN"`
	MetricInterval          time.Duration `env:"METRIC_INTERVAL,default=30s"`
}

// Validate checks the decoded values the env tags cannot express.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := CharacterRune(c.CharReplacement); err != nil {
		return err
	}
	return nil
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
