package startup

import (
	"time"

	"github.com/rs/zerolog"

	"genai-gallery/internal/logging"
)

// Shutdown logs an ordered shutdown. Each step is timed and a failed step
// does not stop the ones after it.
type Shutdown struct {
	start  time.Time
	log    zerolog.Logger
	failed int
}

// BeginShutdown logs the signal that started the shutdown.
func BeginShutdown(signal string) *Shutdown {
	s := &Shutdown{start: time.Now(), log: logging.Component("shutdown")}
	s.log.Info().Str("signal", signal).Msg("shutting down")
	return s
}

// Step runs fn and logs its outcome.
func (s *Shutdown) Step(name string, fn func() error) {
	start := time.Now()
	if err := fn(); err != nil {
		s.failed++
		s.log.Warn().Err(err).Str("step", name).Dur("duration", time.Since(start)).Msg("shutdown step failed")
		return
	}
	s.log.Info().Str("step", name).Dur("duration", time.Since(start)).Msg("stopped")
}

// Done logs the total shutdown time and returns the number of failed steps.
func (s *Shutdown) Done() int {
	s.log.Info().Int("failed_steps", s.failed).Dur("duration", time.Since(s.start)).Msg("shutdown complete")
	return s.failed
}
