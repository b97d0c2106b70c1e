package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"ttnmapper/internal/config"
	"ttnmapper/internal/core/model"
	"ttnmapper/internal/core/repository"
	"ttnmapper/internal/core/service"
	"ttnmapper/internal/logging"
	"ttnmapper/internal/uplink"
)

const appName = "ttnmapper"

// maxLineSize bounds one input line; webhook JSON with many gateways is long.
const maxLineSize = 1 << 20

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run decodes every input line and writes one JSON position per line to
// stdout. It returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	flags.SetOutput(stderr)

	configFile := flags.StringP("config", "c", "", "YAML configuration file.")
	port := flags.IntP("port", "p", 0, "Port (FPort) for hex and base64 input.")
	device := flags.StringP("device", "d", "", "Device ID for hex and base64 input.")
	input := flags.StringP("input", "i", "", "Input encoding: auto, json, hex or base64.")
	file := flags.StringP("file", "f", "", "Read uplinks from this file, one per line, instead of stdin.")
	grid := flags.BoolP("grid", "g", false, "Add S2 cell, UTM and MGRS references to each position.")
	workers := flags.IntP("workers", "w", 0, "Number of concurrent decoders.")
	logLevel := flags.StringP("log-level", "l", "", "Log level: debug, info, warn or error.")
	summary := flags.BoolP("summary", "s", false, "Print the latest position of every device at the end.")
	debug := flags.Bool("debug", false, "Log every decoded payload.")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [options] [payload ...]\n\n", appName)
		fmt.Fprintf(stderr, "Decodes TTN Mapper uplinks given as arguments, or one per line from a file or stdin.\n")
		fmt.Fprintf(stderr, "Each line may be TTN v3/v2 uplink JSON, a hex string or a base64 string.\n\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	// Load configuration, flags win over file and environment
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 2
	}
	if flags.Changed("port") {
		cfg.Input.Port = *port
	}
	if flags.Changed("device") {
		cfg.Input.DeviceID = *device
	}
	if flags.Changed("input") {
		cfg.Input.Encoding = *input
	}
	if flags.Changed("grid") {
		cfg.Output.Grid = *grid
	}
	if flags.Changed("workers") {
		cfg.Workers = *workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if flags.Changed("summary") {
		cfg.Output.Summary = *summary
	}
	if flags.Changed("debug") {
		cfg.Input.Debug = *debug
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return 2
	}

	logger := logging.New(stderr, appName, cfg.LogLevel)

	enc, err := uplink.ParseEncoding(cfg.Input.Encoding)
	if err != nil {
		logger.Error().Err(err).Msg("bad input encoding")
		return 2
	}

	lines, err := readLines(flags.Args(), *file, stdin)
	if err != nil {
		logger.Error().Err(err).Msg("failed to read input")
		return 1
	}

	defaults := uplink.Defaults{DeviceID: cfg.Input.DeviceID, Port: cfg.Input.Port}
	uplinks := make([]uplink.Uplink, 0, len(lines))
	for _, l := range lines {
		if len(l.text) == 0 {
			continue
		}
		u, err := uplink.Parse(l.text, enc, defaults)
		if err != nil {
			logger.Warn().Err(err).Int("line", l.number).Msg("skipping unparseable uplink")
			continue
		}
		uplinks = append(uplinks, u)
	}

	// Initialize repositories and services
	positionRepo := repository.NewInMemoryPositionRepository()
	deviceRepo := repository.NewInMemoryDeviceRepository()
	positionService := service.NewPositionService(positionRepo, deviceRepo, service.Options{
		Grid:          cfg.Output.Grid,
		MGRSPrecision: cfg.Output.MGRSPrecision,
		Workers:       cfg.Workers,
		Debug:         cfg.Input.Debug,
		Logger:        &logger,
	})
	deviceService := service.NewDeviceService(deviceRepo, positionRepo)

	out := json.NewEncoder(stdout)
	decoded := 0
	for _, result := range positionService.ProcessBatch(ctx, uplinks) {
		if result.Err != nil {
			logFailure(logger, result)
			continue
		}
		if err := out.Encode(result.Position); err != nil {
			logger.Error().Err(err).Msg("failed to write position")
			return 1
		}
		decoded++
	}

	if cfg.Output.Summary {
		if err := writeSummary(out, deviceService); err != nil {
			logger.Error().Err(err).Msg("failed to write summary")
			return 1
		}
	}

	logger.Info().Int("uplinks", len(uplinks)).Int("decoded", decoded).Msg("done")
	if decoded == 0 {
		return 1
	}
	return 0
}

type line struct {
	number int
	text   []byte
}

func readLines(args []string, file string, stdin io.Reader) ([]line, error) {
	if len(args) > 0 {
		lines := make([]line, len(args))
		for i, arg := range args {
			lines[i] = line{number: i + 1, text: []byte(arg)}
		}
		return lines, nil
	}

	r := stdin
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var lines []line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for n := 1; scanner.Scan(); n++ {
		text := make([]byte, len(scanner.Bytes()))
		copy(text, scanner.Bytes())
		lines = append(lines, line{number: n, text: text})
	}
	return lines, scanner.Err()
}

func logFailure(logger zerolog.Logger, result service.Result) {
	event := logger.Warn()
	if len(result.Uplink.Payload) > 0 {
		event = event.Hex("payload", result.Uplink.Payload)
	}
	event.Err(result.Err).
		Str("device", result.Uplink.DeviceID).
		Int("port", result.Uplink.Port).
		Msg("uplink not decoded")
}

type summaryLine struct {
	Summary []*model.Position `json:"summary"`
}

func writeSummary(out *json.Encoder, devices service.DeviceService) error {
	latest, err := devices.LatestPositions()
	if err != nil {
		return err
	}
	return out.Encode(summaryLine{Summary: latest})
}
