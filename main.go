package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/majeanson/anthropicJoffre-sub005/config"
	"github.com/majeanson/anthropicJoffre-sub005/gameModel"
	"github.com/majeanson/anthropicJoffre-sub005/logging"
	"github.com/majeanson/anthropicJoffre-sub005/session"
)

var eventLog = flag.String("log", "", "JSON-lines file of recorded events (stdin when empty)")

// replay folds every recorded envelope in r into mirror, in order.
// Blank lines are skipped; a malformed line stops the replay.
func replay(r io.Reader, mirror *session.Mirror, logger *zap.Logger) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	applied := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var env gameModel.Envelope
		if err := json.Unmarshal([]byte(text), &env); err != nil {
			return applied, fmt.Errorf("line %d: %w", line, err)
		}
		if err := mirror.Apply(env); err != nil {
			if errors.Is(err, session.ErrNoSnapshot) || errors.Is(err, session.ErrGameMismatch) {
				logger.Warn("event ignored", zap.Int("line", line), zap.Error(err))
				continue
			}
			return applied, fmt.Errorf("line %d: %w", line, err)
		}
		applied++
	}
	if err := scanner.Err(); err != nil {
		return applied, fmt.Errorf("read event log: %w", err)
	}
	return applied, nil
}

func main() {
	flag.Parse()

	cfg, err := config.ParseLogging()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Level, cfg.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	in := io.Reader(os.Stdin)
	if *eventLog != "" {
		file, err := os.Open(*eventLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open event log: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()
		in = file
	}

	mirror := session.New(logger)
	applied, err := replay(in, mirror, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay stopped after %d events: %v\n", applied, err)
		os.Exit(1)
	}

	state, ok := mirror.Snapshot()
	if !ok {
		fmt.Fprintln(os.Stderr, "no full snapshot in event log")
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(state)
}
