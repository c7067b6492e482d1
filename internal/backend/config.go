package backend

import (
	"fmt"

	"wealthtrack/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		AMQPURL:       appConfig.AMQPURL,
		AMQPExchange:  appConfig.AMQPExchange,
		AMQPQueue:     appConfig.AMQPQueue,
		DataDirectory: appConfig.DataDirectory,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	// AMQP is optional; the memory backend falls back to the "data" directory.
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{MemoryBackend.String(), SQLiteBackend.String()}
}
