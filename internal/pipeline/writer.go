package pipeline

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/weishiuchang/mnc/internal/mncerr"
	"github.com/weishiuchang/mnc/internal/multicast"
)

// WriterConfig configures the writer stage. Output selects the sink per
// spec's five-mode table: "-" is stdout, a non-empty path is a file,
// and an empty Output falls back to network retransmit (when the
// reader's source was a file/stdin, signalled by InputGiven) or devnull.
type WriterConfig struct {
	Logger     *slog.Logger
	State      *SharedState
	Output     string
	InputGiven bool
	Endpoint   *multicast.Endpoint
	Rate       int
	DataCh     <-chan PacketBatch
}

// RunWriter dispatches to one of the five sub-modes and returns the
// stage's first terminal error, if any.
func RunWriter(cfg WriterConfig) error {
	switch {
	case cfg.Output == "-":
		return runStreamWriter(cfg, os.Stdout)
	case cfg.Output != "":
		f, err := os.Create(cfg.Output)
		if err != nil {
			return mncerr.Critical("create output file %s: %v", cfg.Output, err)
		}
		defer f.Close()
		return runStreamWriter(cfg, f)
	case cfg.InputGiven:
		return runNetworkWriter(cfg)
	default:
		return runDevnullWriter(cfg)
	}
}

// runStreamWriter writes each packet framed per cfg.State.PacketType to
// w, draining the channel before returning so in-flight batches are not
// lost on shutdown.
func runStreamWriter(cfg WriterConfig, w io.Writer) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	writeOne := func(payload []byte) error {
		if cfg.State.PacketType == Binary {
			return writeBinaryPacket(bw, payload)
		}
		return writeTextPacket(bw, payload)
	}

	for {
		select {
		case batch, ok := <-cfg.DataCh:
			if !ok {
				return nil
			}
			for _, p := range batch {
				if err := writeOne(p.Bytes()); err != nil {
					return err
				}
			}
		case <-cfg.State.Done():
			drainRemaining(cfg.DataCh, writeOne)
			return nil
		}
	}
}

// drainRemaining performs a best-effort, non-blocking drain of the
// channel so queued-but-unwritten batches are flushed before the
// stage returns.
func drainRemaining(ch <-chan PacketBatch, writeOne func([]byte) error) {
	for {
		select {
		case batch, ok := <-ch:
			if !ok {
				return
			}
			for _, p := range batch {
				_ = writeOne(p.Bytes())
			}
		default:
			return
		}
	}
}

// runDevnullWriter consumes and discards batches, polling should_exit
// on a 100ms timeout.
func runDevnullWriter(cfg WriterConfig) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case _, ok := <-cfg.DataCh:
			if !ok {
				return nil
			}
		case <-ticker.C:
			if cfg.State.ShouldExit() {
				return nil
			}
		}
	}
}

// runNetworkWriter retransmits batches onto the multicast send socket.
// Without a rate limit it folds up to SendBatchSize packets from
// however many batches are immediately available (blocking up to
// 100ms for the first one) into a single WriteBatch call — the
// sendmmsg equivalent. With a rate limit it sends one packet at a time
// and spins between sends as a coarse pacing primitive.
func runNetworkWriter(cfg WriterConfig) error {
	if cfg.Endpoint == nil {
		return mncerr.Critical("network writer requires an endpoint")
	}

	for {
		if cfg.State.ShouldExit() {
			drainNetwork(cfg)
			return nil
		}

		var first PacketBatch
		select {
		case batch, ok := <-cfg.DataCh:
			if !ok {
				return nil
			}
			first = batch
		case <-time.After(100 * time.Millisecond):
			continue
		}

		packets := collectPackets(cfg, first)

		if cfg.Rate > 0 {
			sendRateLimited(cfg, packets)
		} else {
			sendBatch(cfg, packets)
		}
	}
}

// collectPackets flattens first plus whatever additional batches are
// immediately available (non-blocking), capped at SendBatchSize
// packets total.
func collectPackets(cfg WriterConfig, first PacketBatch) []Packet {
	packets := make([]Packet, 0, SendBatchSize)
	packets = append(packets, first...)

	for len(packets) < SendBatchSize {
		select {
		case batch, ok := <-cfg.DataCh:
			if !ok {
				return packets
			}
			packets = append(packets, batch...)
		default:
			return packets
		}
	}
	return packets[:min(len(packets), SendBatchSize)]
}

func sendBatch(cfg WriterConfig, packets []Packet) {
	if len(packets) == 0 {
		return
	}
	msgs := make([]ipv4.Message, len(packets))
	for i, p := range packets {
		msgs[i].Buffers = [][]byte{p.Bytes()}
	}
	if _, err := cfg.Endpoint.Pkt.WriteBatch(msgs, 0); err != nil {
		cfg.Logger.Warn("network write error", "error", err)
	}
}

func sendRateLimited(cfg WriterConfig, packets []Packet) {
	for _, p := range packets {
		if _, err := cfg.Endpoint.Conn.Write(p.Bytes()); err != nil {
			cfg.Logger.Warn("network write error", "error", err)
		}
		for i := 0; i < cfg.Rate; i++ {
			runtime.Gosched()
		}
	}
}

func drainNetwork(cfg WriterConfig) {
	for {
		select {
		case batch, ok := <-cfg.DataCh:
			if !ok {
				return
			}
			sendBatch(cfg, batch)
		default:
			return
		}
	}
}
