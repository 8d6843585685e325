package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HashimCodeDev/stve/internal/broadcaster"
	"github.com/HashimCodeDev/stve/internal/config"
	"github.com/HashimCodeDev/stve/internal/ingestor"
	"github.com/HashimCodeDev/stve/internal/store"
	"github.com/HashimCodeDev/stve/internal/ticketmanager"
)

type batchFileItem struct {
	ExternalID string         `json:"externalId"`
	Reading    map[string]any `json:"reading"`
}

// NewIngestFileCommand replays a JSON array of {externalId, reading}
// items through the ingest pipeline without bringing up the HTTP
// adapter, useful for backfilling recorded sensor data.
func NewIngestFileCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "ingest-file",
		Short: "Replay a JSON batch of readings through the ingest pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestFile(path)
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "path to a JSON file containing an array of {externalId, reading} items")
	_ = cmd.MarkFlagRequired("path")

	return cmd
}

func runIngestFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}

	var fileItems []batchFileItem
	if err := json.Unmarshal(raw, &fileItems); err != nil {
		return fmt.Errorf("parse batch file: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	bus := broadcaster.New(cfg.BroadcastBufferSize)
	tickets := ticketmanager.New(st, bus, nil)
	ig := ingestor.New(st, cfg, tickets, bus)

	items := make([]ingestor.BatchItem, 0, len(fileItems))
	for _, fi := range fileItems {
		payload, err := ingestor.ParseReadingPayload(fi.Reading)
		if err != nil {
			return fmt.Errorf("parse reading for %s: %w", fi.ExternalID, err)
		}
		items = append(items, ingestor.BatchItem{ExternalID: fi.ExternalID, Payload: payload})
	}

	results := ig.IngestBatch(context.Background(), items)
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%s: error: %v\n", r.ExternalID, r.Err)
			continue
		}
		if r.TrustResult == nil {
			fmt.Printf("%s: accepted, no verdict yet\n", r.ExternalID)
			continue
		}
		fmt.Printf("%s: score=%.4f status=%s severity=%s\n", r.ExternalID, r.TrustResult.Score, r.TrustResult.Status, r.TrustResult.Severity)
	}
	return nil
}
