package datastore

import (
	"sync"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/microtrax/microtrax/internal/logger"
)

// slowQueryThreshold marks queries logged at WARN.
const slowQueryThreshold = 200 * time.Millisecond

var (
	datastoreLogger logger.Logger
	loggerOnce      sync.Once
)

func getLogger() logger.Logger {
	loggerOnce.Do(func() {
		datastoreLogger = logger.Global().Module("datastore")
	})
	return datastoreLogger
}

func createGormLogger() gormlogger.Interface {
	return logger.NewGormLoggerAdapter(getLogger(), slowQueryThreshold)
}
