package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// parse flags
	parseWindow int
	parseStrict bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <log-file>",
	Short: "Classify the trailing window of a log file once",
	Long: `Read the last lines of a server log, reconcile them, and print the
resulting presence snapshot and chat messages as JSON Lines.

Nothing is persisted and no notifications are sent.

Examples:
  # Inspect the default window of 100 lines
  minecraft-relay parse logs/latest.log

  # Look further back and fail on malformed lines
  minecraft-relay parse logs/latest.log --window 5000 --strict

  # Only chat
  minecraft-relay parse logs/latest.log | jq 'select(.type == "chat")'`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().IntVarP(&parseWindow, "window", "n", 100,
		"Number of trailing lines to read")
	parseCmd.Flags().BoolVar(&parseStrict, "strict", false,
		"Exit with an error if any line is malformed")
}

// parseRecord is one JSON line of parse output.
type parseRecord struct {
	Type      string `json:"type"` // "status" or "chat"
	Player    string `json:"player"`
	Status    Status `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	if parseWindow <= 0 {
		return fmt.Errorf("--window must be positive, got %d", parseWindow)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lines, err := NewFileSource(args[0]).Tail(ctx, parseWindow)
	if err != nil {
		return err
	}

	batch := Reconcile(lines)
	for _, e := range batch.Malformed {
		fmt.Fprintf(os.Stderr, "warning: %v\n", e)
	}
	if parseStrict && len(batch.Malformed) > 0 {
		return fmt.Errorf("%d malformed lines", len(batch.Malformed))
	}
	return writeBatch(batch, cmd.OutOrStdout())
}

func writeBatch(batch Batch, w io.Writer) error {
	for player, status := range batch.Snapshot.All() {
		if err := OutputJSON(parseRecord{Type: "status", Player: player, Status: status}, w); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	for _, m := range batch.Messages {
		rec := parseRecord{Type: "chat", Player: m.Player, Message: m.Message, Timestamp: m.Timestamp}
		if err := OutputJSON(rec, w); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}
