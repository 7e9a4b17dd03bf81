package conf

import (
	"sync"

	"github.com/microtrax/microtrax/internal/logger"
)

var (
	confLogger     logger.Logger
	confLoggerOnce sync.Once
)

func getLogger() logger.Logger {
	confLoggerOnce.Do(func() {
		confLogger = logger.Global().Module("config")
	})
	return confLogger
}
