package observability

import "github.com/vitalarbor/vitalarbor-go/internal/logger"

func getLogger() logger.Logger {
	return logger.Global().Module("metrics")
}
