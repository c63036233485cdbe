// Command mnc is a multicast netcat: it reads UDP datagrams from a
// multicast group, a file, or stdin, and writes them to a multicast
// group, a file, stdout, or discards them — with an optional side
// channel that reports throughput and per-protocol sequence gaps for
// VITA49 VRLP and SDDS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/weishiuchang/mnc/internal/multicast"
	"github.com/weishiuchang/mnc/internal/pipeline"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		fmt.Printf("mnc version: %s, commit: %s, date: %s\n", version, commit, date)
		return nil
	}

	log := newLogger(cfg.Quiet, cfg.Debug)

	packetType, ok := pipeline.ParsePacketType(cfg.Type)
	if !ok {
		return fmt.Errorf("invalid --type %q", cfg.Type)
	}

	mgroupIP := net.ParseIP(cfg.MGroup)
	if mgroupIP == nil || !mgroupIP.IsMulticast() {
		return fmt.Errorf("invalid multicast group address %q", cfg.MGroup)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state := pipeline.NewSharedState(ctx, packetType, cfg.Verbose)

	inputGiven := cfg.Input != ""
	needRecv := !inputGiven
	needSend := cfg.Output == "" && inputGiven

	var recvEP, sendEP *multicast.Endpoint

	if needRecv {
		recvEP, err = multicast.NewRecvEndpoint(multicast.RecvConfig{
			Logger:        log.With("component", "multicast-recv"),
			InterfaceName: cfg.Iface,
			MulticastIP:   mgroupIP,
			Port:          cfg.Port,
		})
		if err != nil {
			return fmt.Errorf("create receive endpoint: %w", err)
		}
		defer recvEP.Close()
	}

	if needSend {
		sendEP, err = multicast.NewSendEndpoint(multicast.SendConfig{
			Logger:        log.With("component", "multicast-send"),
			InterfaceName: cfg.Iface,
			MulticastIP:   mgroupIP,
			Port:          cfg.Port,
			TTL:           uint8(cfg.TTL),
		})
		if err != nil {
			return fmt.Errorf("create send endpoint: %w", err)
		}
		defer sendEP.Close()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		state.SignalExit()
	}()

	enableStats := (cfg.Statistics || cfg.Verbose) && !cfg.Quiet

	var maxCount uint64
	if cfg.Count > 0 {
		maxCount = uint64(cfg.Count)
	}

	err = pipeline.Run(pipeline.SupervisorConfig{
		Logger:       log,
		State:        state,
		BufferSize:   cfg.BufferSize,
		Input:        cfg.Input,
		Output:       cfg.Output,
		RecvEndpoint: recvEP,
		SendEndpoint: sendEP,
		MaxCount:     maxCount,
		Rate:         cfg.Rate,
		EnableStats:  enableStats,
	})
	if err != nil {
		return fmt.Errorf("pipeline error: %w", err)
	}

	log.Info("shutdown complete", "packets", state.Count())
	return nil
}

// newLogger builds the slog logger the way the teacher does: tint for
// human-readable colored output, level derived from --quiet/--debug.
func newLogger(quiet, debug bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case debug:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelWarn
	}

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	}))
}
