package pipeline

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/weishiuchang/mnc/internal/mncerr"
	"github.com/weishiuchang/mnc/internal/multicast"
)

// ReaderConfig configures the reader stage. Input selects the source:
// empty means network (Endpoint is required), "-" means stdin, anything
// else is a file path.
type ReaderConfig struct {
	Logger   *slog.Logger
	State    *SharedState
	Input    string
	Endpoint *multicast.Endpoint
	MaxCount uint64
	DataCh   chan<- PacketBatch
	StatsCh  chan<- PacketBatch
}

// RunReader dispatches to the file/stdin or network ingest loop and
// returns the stage's first terminal error, if any.
func RunReader(cfg ReaderConfig) error {
	switch cfg.Input {
	case "":
		return runNetworkReader(cfg)
	case "-":
		return runStreamReader(cfg, os.Stdin)
	default:
		f, err := os.Open(cfg.Input)
		if err != nil {
			return mncerr.Critical("open input file %s: %v", cfg.Input, err)
		}
		defer f.Close()
		return runStreamReader(cfg, f)
	}
}

// runStreamReader drives the file/stdin path: one packet per batch,
// framed per cfg.State.PacketType.
func runStreamReader(cfg ReaderConfig, r io.Reader) error {
	br := bufio.NewReader(r)
	var total uint64

	for {
		if cfg.State.ShouldExit() {
			return nil
		}
		if cfg.MaxCount != 0 && total >= cfg.MaxCount {
			cfg.State.SignalExit()
			return nil
		}

		var payload []byte
		var err error
		switch cfg.State.PacketType {
		case Binary:
			payload, err = readBinaryPacket(br)
		default:
			payload, err = readTextPacket(br)
		}

		// A clean EOF with no bytes read ends the loop. A final
		// unterminated text line arrives as (payload, io.EOF); it is
		// still published, and the loop then signals exit and ends.
		if err == io.EOF && len(payload) == 0 {
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}

		batch := PacketBatch{NewPacket(payload)}
		publishBatch(cfg, batch)

		total = cfg.State.AddCount(1)
		if err == io.EOF {
			cfg.State.SignalExit()
			return nil
		}
		if cfg.MaxCount != 0 && total >= cfg.MaxCount {
			cfg.State.SignalExit()
			return nil
		}
	}
}

// runNetworkReader drives the hot path: a pre-allocated slab of
// RecvBatchSize MaxPacketSize-byte buffers, filled via ReadBatch (the
// recvmmsg equivalent), then deep-copied into a fresh PacketBatch before
// publishing, so the slab stays available for the next receive.
func runNetworkReader(cfg ReaderConfig) error {
	if cfg.Endpoint == nil {
		return mncerr.Critical("network reader requires an endpoint")
	}

	slab := make([]Packet, RecvBatchSize)
	msgs := make([]ipv4.Message, RecvBatchSize)
	for i := range slab {
		slab[i] = NewPacketWithCapacity(MaxPacketSize)
		msgs[i].Buffers = [][]byte{slab[i].Buffer()}
	}

	var total uint64

	for {
		if cfg.State.ShouldExit() {
			return nil
		}
		if cfg.MaxCount != 0 && total >= cfg.MaxCount {
			cfg.State.SignalExit()
			return nil
		}

		if err := cfg.Endpoint.Conn.SetReadDeadline(time.Now().Add(multicast.DefaultReadTimeout)); err != nil {
			return mncerr.Critical("set read deadline: %v", err)
		}

		n, err := cfg.Endpoint.Pkt.ReadBatch(msgs, 0)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			cfg.Logger.Warn("network read error", "error", err)
			continue
		}
		if n == 0 {
			continue
		}

		count := n
		if cfg.MaxCount != 0 {
			remaining := cfg.MaxCount - total
			if uint64(count) > remaining {
				count = int(remaining)
			}
		}
		if count == 0 {
			cfg.State.SignalExit()
			return nil
		}

		batch := make(PacketBatch, count)
		for i := 0; i < count; i++ {
			slab[i].Length = msgs[i].N
			batch[i] = slab[i].Clone()
		}

		publishBatch(cfg, batch)

		total = cfg.State.AddCount(uint64(count))
		if cfg.MaxCount != 0 && total >= cfg.MaxCount {
			cfg.State.SignalExit()
			return nil
		}
	}
}

// publishBatch performs the non-blocking try-send to the data channel
// and, if present, the stats channel. A full channel is a logged drop,
// not an error; the reader never blocks here.
func publishBatch(cfg ReaderConfig, batch PacketBatch) {
	trySend(cfg.DataCh, batch, cfg.Logger, "data")
	if cfg.StatsCh != nil {
		trySend(cfg.StatsCh, batch, cfg.Logger, "stats")
	}
}

func trySend(ch chan<- PacketBatch, batch PacketBatch, logger *slog.Logger, channelName string) {
	select {
	case ch <- batch:
	default:
		logger.Warn("dropping batch, channel full", "channel", channelName, "packets", len(batch))
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
