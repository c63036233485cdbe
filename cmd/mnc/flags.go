package main

import (
	"fmt"
	"regexp"

	flag "github.com/spf13/pflag"
)

// config holds the parsed CLI surface from spec §6.
type config struct {
	Iface      string
	MGroup     string
	Type       string
	Input      string
	Output     string
	Statistics bool
	Port       int
	BufferSize int
	TTL        int
	Quiet      bool
	Count      int
	Rate       int
	Verbose    bool
	Debug      bool

	ShowVersion bool
}

// groupPattern matches the positional [iface:]mgroup argument.
var groupPattern = regexp.MustCompile(`^(?:([^:]+):)?(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})$`)

// parseGroup splits the positional argument into an optional interface
// name and the dotted-quad multicast address.
func parseGroup(arg string) (iface, mgroup string, err error) {
	m := groupPattern.FindStringSubmatch(arg)
	if m == nil {
		return "", "", fmt.Errorf("invalid multicast group argument %q, expected [iface:]mgroup", arg)
	}
	return m[1], m[2], nil
}

// parseFlags parses os.Args[1:] into a config, matching the teacher's
// pflag-based parseFlags pattern.
func parseFlags() (*config, error) {
	cfg := &config{}

	flag.StringVarP(&cfg.Type, "type", "t", "text", "One of text, binary, vita49, sdds")
	flag.StringVarP(&cfg.Input, "input", "i", "", "File path, or - for stdin")
	flag.StringVarP(&cfg.Output, "output", "o", "", "File path, or - for stdout")
	flag.BoolVarP(&cfg.Statistics, "statistics", "s", false, "Enable periodic throughput/gap statistics")
	flag.IntVarP(&cfg.Port, "port", "p", 29495, "UDP port")
	flag.IntVarP(&cfg.BufferSize, "buffer-size", "b", 10000, "Channel capacity, in batches")
	flag.IntVarP(&cfg.TTL, "ttl", "L", 255, "Multicast TTL on send")
	flag.BoolVarP(&cfg.Quiet, "quiet", "q", false, "Warn-level logging; disables stats and hex dump")
	flag.IntVarP(&cfg.Count, "count", "c", 0, "Stop after this many packets; 0 means unlimited")
	flag.IntVarP(&cfg.Rate, "rate", "r", 0, "Insert this many spin-loop hints between sends")
	flag.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Hex dump each packet; implies -c 1 if -c unset")
	flag.BoolVarP(&cfg.Debug, "debug", "d", false, "Debug-level logging")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")

	flag.Parse()

	if cfg.ShowVersion {
		return cfg, nil
	}

	if flag.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one positional argument [iface:]mgroup, got %d", flag.NArg())
	}

	iface, mgroup, err := parseGroup(flag.Arg(0))
	if err != nil {
		return nil, err
	}
	cfg.Iface = iface
	cfg.MGroup = mgroup

	countGiven := flag.Lookup("count").Changed
	if cfg.Verbose && !countGiven {
		cfg.Count = 1
	}

	return cfg, nil
}
