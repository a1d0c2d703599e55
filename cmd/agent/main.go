package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/polzovatel/subscription-cancel-agent/internal/agent"
	"github.com/polzovatel/subscription-cancel-agent/internal/browser"
	"github.com/polzovatel/subscription-cancel-agent/internal/request"
)

type cliOptions struct {
	requestPath string
	outPath     string
	pretty      bool
}

func main() {
	_ = godotenv.Load()
	opts := parseFlags()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req, err := readRequest(opts.requestPath)
	if err != nil {
		log.Fatal().Err(err).Msg("read request")
	}

	runID := uuid.NewString()
	logger := log.With().Str("run", runID).Str("request", req.RequestID).Logger()

	factory := func(ctx context.Context, sessOpts browser.SessionOptions) (agent.Session, error) {
		return browser.Launch(ctx, sessOpts, logger.With().Str("comp", "browser").Logger())
	}
	machine := agent.New(factory, logger.With().Str("comp", "machine").Logger())

	resp := machine.Run(ctx, req)
	logger.Info().Str("status", string(resp.Status)).Int("actions", len(resp.Actions)).Msg("finished")

	if err := writeResponse(opts, resp); err != nil {
		log.Fatal().Err(err).Msg("write response")
	}
	if resp.Status == request.StatusError {
		os.Exit(1)
	}
}

func parseFlags() cliOptions {
	reqPath := flag.String("request", "-", "Path to CancelSubscriptionRequest JSON ('-' for stdin)")
	outPath := flag.String("out", "", "Path for the response JSON (default stdout)")
	pretty := flag.Bool("pretty", false, "Indent the response JSON")
	flag.Parse()
	return cliOptions{
		requestPath: strings.TrimSpace(*reqPath),
		outPath:     strings.TrimSpace(*outPath),
		pretty:      *pretty,
	}
}

func readRequest(path string) (request.CancelSubscriptionRequest, error) {
	var req request.CancelSubscriptionRequest
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return req, fmt.Errorf("read request document: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("decode request document: %w", err)
	}
	return req, nil
}

func writeResponse(opts cliOptions, resp request.CancelSubscriptionResponse) error {
	var data []byte
	var err error
	if opts.pretty {
		data, err = json.MarshalIndent(resp, "", "  ")
	} else {
		data, err = json.Marshal(resp)
	}
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	data = append(data, '\n')
	if opts.outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(opts.outPath, data, 0o644)
}
