package notification

import (
	"sync"

	"github.com/microtrax/microtrax/internal/logger"
)

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// getLogger returns the package logger, resolved from the central logger on
// first use so tests and early init paths have a working sink.
func getLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("notifications")
	})
	return serviceLogger
}
