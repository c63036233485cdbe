package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/weishiuchang/mnc/internal/hexdump"
	"github.com/weishiuchang/mnc/internal/sdds"
	"github.com/weishiuchang/mnc/internal/vita49"
)

// reportWindow is how often the statistics stage logs a report line and
// resets its per-window accumulator.
const reportWindow = 2 * time.Second

// protocolAccumulator is the per-packet-type accumulator S from spec
// §4.F: Observe updates it with one packet, Reset clears it for the
// next window, FormatReport renders the whole report line (packet count,
// rate, and any protocol-specific suffix).
type protocolAccumulator interface {
	Observe(packet []byte)
	Reset()
	FormatReport(count uint64, rate float64) string
}

// plainAccumulator is used for Text and Binary packet types, which have
// no protocol-specific gap accounting.
type plainAccumulator struct{}

func (plainAccumulator) Observe([]byte) {}
func (plainAccumulator) Reset()         {}
func (plainAccumulator) FormatReport(count uint64, rate float64) string {
	return fmt.Sprintf("packets: %d  rate: %.2f pkt/s", count, rate)
}

// StatisticsConfig configures the statistics stage.
type StatisticsConfig struct {
	Logger *slog.Logger
	State  *SharedState
	DataCh <-chan PacketBatch
}

// newAccumulator picks the accumulator for the configured packet type.
func newAccumulator(t PacketType) protocolAccumulator {
	switch t {
	case Sdds:
		return sdds.NewGapTracker()
	case Vita49:
		return vita49.NewGapTracker()
	default:
		return plainAccumulator{}
	}
}

// RunStatistics consumes batches on the side channel, tracking rate and
// per-protocol sequence gaps, and logs a report every reportWindow. On
// shutdown it drains the channel once more so the final window's counts
// include already-queued packets.
func RunStatistics(cfg StatisticsConfig) error {
	acc := newAccumulator(cfg.State.PacketType)
	var count uint64
	windowStart := time.Now()

	ticker := time.NewTicker(reportWindow)
	defer ticker.Stop()

	report := func() {
		elapsed := time.Since(windowStart).Seconds()
		rate := 0.0
		if elapsed > 0 {
			rate = float64(count) / elapsed
		}
		cfg.Logger.Info(acc.FormatReport(count, rate))
		count = 0
		acc.Reset()
		windowStart = time.Now()
	}

	observeBatch := func(batch PacketBatch) {
		for _, p := range batch {
			count++
			acc.Observe(p.Bytes())
			if cfg.State.Verbose {
				hexPrint(cfg.Logger, cfg.State.PacketType, p.Bytes())
			}
		}
	}

	for {
		select {
		case batch, ok := <-cfg.DataCh:
			if !ok {
				return nil
			}
			observeBatch(batch)
		case <-ticker.C:
			report()
		case <-cfg.State.Done():
			drainStats(cfg.DataCh, observeBatch)
			return nil
		}
	}
}

func drainStats(ch <-chan PacketBatch, observe func(PacketBatch)) {
	for {
		select {
		case batch, ok := <-ch:
			if !ok {
				return
			}
			observe(batch)
		default:
			return
		}
	}
}

// hexPrint logs the decoded protocol header (for sdds/vita49) followed
// by an od-style hex dump of the raw packet, matching the verbose
// inspection the original implementation's hex_print callback performs.
func hexPrint(logger *slog.Logger, t PacketType, packet []byte) {
	switch t {
	case Sdds:
		logger.Debug(sdds.NewHeader(packet).String())
	case Vita49:
		logger.Debug(vita49.Parse(packet).String())
	}
	logger.Debug(hexdump.Dump(packet))
}
