package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentLogger derives a logger for one component from the global logger.
// Call it after logging is configured.
func ComponentLogger(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
