package cmdlog

import (
	"time"

	"ambitious/internal/logging"
	"ambitious/internal/metrics"
)

// Run executes f under the command's metrics and a start/finish log line.
func Run(cmd string, f func() error) error {
	metrics.IncCommandRun(cmd)
	start := time.Now()
	err := f()
	metrics.ObserveCommandDuration(cmd, start)
	if err != nil {
		metrics.IncCommandError(cmd)
		logging.Error(cmd+"_error", map[string]any{"error": err.Error(), "elapsed_ms": time.Since(start).Milliseconds()})
	} else {
		logging.Info(cmd+"_ok", map[string]any{"elapsed_ms": time.Since(start).Milliseconds()})
	}
	return err
}
