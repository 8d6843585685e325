// Package logging installs the process-wide zerolog logger, following the
// teacher's internal/logging.Init: one file-backed, levelled, timestamped
// logger, set once at startup.
package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init opens logFile for append and installs it as the global logger at
// the given level.
func Init(level zerolog.Level, logFile string) error {
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	multi := zerolog.MultiLevelWriter(f, os.Stdout)
	logger := zerolog.New(multi).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	if level == zerolog.DebugLevel {
		log.Debug().Msg("log level set to debug")
	}
	return nil
}
