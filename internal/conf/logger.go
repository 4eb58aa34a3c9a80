package conf

import "github.com/vitalarbor/vitalarbor-go/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so it picks up the
// central logger once the CLI has installed it.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
