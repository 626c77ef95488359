// Package liveness terminates the worker when the host process that spawned it
// is gone.
package liveness

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/process"
)

const DefaultInterval = 30 * time.Second

// Monitor polls for the parent process. Exists and Exit default to gopsutil and
// os.Exit; tests replace them.
type Monitor struct {
	PID      int32
	Interval time.Duration
	Exists   func(ctx context.Context, pid int32) (bool, error)
	Exit     func(code int)
	Logger   zerolog.Logger
}

func NewMonitor(pid int32, interval time.Duration, logger zerolog.Logger) *Monitor {
	return &Monitor{
		PID:      pid,
		Interval: interval,
		Logger:   logger,
	}
}

// Run blocks until ctx is done. When the parent disappears, or its existence
// cannot be determined, Run logs and calls Exit(1) without waiting for
// in-flight work.
func (m *Monitor) Run(ctx context.Context) error {
	if m.PID <= 0 {
		<-ctx.Done()
		return nil
	}
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	exists := m.Exists
	if exists == nil {
		exists = process.PidExistsWithContext
	}
	exit := m.Exit
	if exit == nil {
		exit = os.Exit
	}

	m.Logger.Debug().Int32("parent_pid", m.PID).Dur("interval", interval).Msg("liveness monitor started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		alive, err := exists(ctx, m.PID)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			m.Logger.Error().Err(err).Int32("parent_pid", m.PID).Msg("parent process check failed; exiting")
			exit(1)
			return err
		}
		if !alive {
			m.Logger.Warn().Int32("parent_pid", m.PID).Msg("parent process exited; exiting")
			exit(1)
			return nil
		}
	}
}
