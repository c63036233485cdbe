package pipeline

import (
	"log/slog"
	"time"

	"github.com/weishiuchang/mnc/internal/mncerr"
	"github.com/weishiuchang/mnc/internal/multicast"
)

// SupervisorConfig carries everything needed to build and run the three
// stages. BufferSize is the data/stats channel capacity.
type SupervisorConfig struct {
	Logger       *slog.Logger
	State        *SharedState
	BufferSize   int
	Input        string
	Output       string
	RecvEndpoint *multicast.Endpoint
	SendEndpoint *multicast.Endpoint
	MaxCount     uint64
	Rate         int
	EnableStats  bool
}

// pollInterval is the supervisor's poll cadence (spec §4.H step 4).
const pollInterval = 100 * time.Millisecond

// graceTimeout bounds how long the supervisor waits for stages to exit
// after should_exit is observed, before declaring shutdown a failure.
const graceTimeout = 1 * time.Second

// Run builds the channels, spawns the reader, writer, and (conditionally)
// statistics stages, and waits for all of them to finish, enforcing a
// 1-second grace period once shutdown begins. It returns the first
// terminal error reported by any stage.
func Run(cfg SupervisorConfig) error {
	dataCh := make(chan PacketBatch, cfg.BufferSize)

	var statsCh chan PacketBatch
	if cfg.EnableStats {
		statsCh = make(chan PacketBatch, cfg.BufferSize)
	}

	type stageResult struct {
		name string
		err  error
	}
	results := make(chan stageResult, 3)

	inputGiven := cfg.Input != ""

	go func() {
		var statsSendCh chan<- PacketBatch
		if statsCh != nil {
			statsSendCh = statsCh
		}
		err := RunReader(ReaderConfig{
			Logger:   cfg.Logger,
			State:    cfg.State,
			Input:    cfg.Input,
			Endpoint: cfg.RecvEndpoint,
			MaxCount: cfg.MaxCount,
			DataCh:   dataCh,
			StatsCh:  statsSendCh,
		})
		results <- stageResult{"reader", err}
	}()

	go func() {
		err := RunWriter(WriterConfig{
			Logger:     cfg.Logger,
			State:      cfg.State,
			Output:     cfg.Output,
			InputGiven: inputGiven,
			Endpoint:   cfg.SendEndpoint,
			Rate:       cfg.Rate,
			DataCh:     dataCh,
		})
		results <- stageResult{"writer", err}
	}()

	expected := 2
	if cfg.EnableStats {
		expected = 3
		go func() {
			err := RunStatistics(StatisticsConfig{
				Logger: cfg.Logger,
				State:  cfg.State,
				DataCh: statsCh,
			})
			results <- stageResult{"statistics", err}
		}()
	}

	var graceDeadline <-chan time.Time
	var firstErr error
	done := 0
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for done < expected {
		select {
		case r := <-results:
			done++
			if r.err != nil {
				cfg.Logger.Debug("stage exited with error", "stage", r.name, "error", r.err)
				if firstErr == nil {
					firstErr = r.err
				}
			} else {
				cfg.Logger.Debug("stage exited", "stage", r.name)
			}
			// Any stage finishing — reader EOF, writer done, or an
			// error — means the others should wind down too.
			cfg.State.SignalExit()
			if graceDeadline == nil {
				graceDeadline = time.After(graceTimeout)
			}
		case <-ticker.C:
			if cfg.State.ShouldExit() && graceDeadline == nil {
				graceDeadline = time.After(graceTimeout)
			}
		case <-graceDeadlineOrNil(graceDeadline):
			return mncerr.Critical("shutdown grace period expired with stages still running")
		}
	}

	return firstErr
}

// graceDeadlineOrNil returns ch, or a channel that never fires if ch is
// nil, so the select above can treat "no grace timer started yet" as
// inert rather than special-casing it.
func graceDeadlineOrNil(ch <-chan time.Time) <-chan time.Time {
	if ch == nil {
		return nil
	}
	return ch
}
