package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/artlens/orbmatch"
	"github.com/artlens/orbmatch/internal/catalog"
	"github.com/artlens/orbmatch/internal/config"
	"github.com/artlens/orbmatch/internal/describe"
	"github.com/artlens/orbmatch/internal/scanlog"
	"github.com/artlens/orbmatch/internal/server"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API",
		Long: `Build the reference index (or load a snapshot) and serve the scan API.
A reference directory that yields no index aborts startup.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address")
	cmd.Flags().String("reference-dir", "", "Directory of reference images")
	cmd.Flags().String("snapshot", "", "Load the index from this snapshot instead of building it")
	cmd.Flags().Float64("min-score", orbmatch.DefaultMinScore, "Minimum score of a confident match")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx := cmd.Context()

	index, err := loadIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var client *mongo.Client
	if cfg.Mongo.URI != "" {
		client, err = catalog.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
	}

	store, err := newCatalog(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	sink, err := newScanSink(cfg, client)
	if err != nil {
		return err
	}

	srv := server.New(index, server.Options{
		Catalog:        store,
		Scans:          scanlog.New(sink, cfg.ScanLog.Timeout, logger),
		MinScore:       cfg.Match.MinScore,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ScanTimeout:    cfg.Server.ScanTimeout,
		DetailsTimeout: cfg.Describe.Timeout,
		Logger:         logger,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// loadIndex reads the configured snapshot or builds the index from the
// reference directory.
func loadIndex(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*orbmatch.Index, error) {
	options := cfg.MatchOptions(logger)

	if cfg.Index.Snapshot != "" {
		index, err := orbmatch.ReadSnapshot(cfg.Index.Snapshot, options)
		if err != nil {
			return nil, err
		}
		logger.Info("index loaded", "snapshot", cfg.Index.Snapshot, "references", index.Len())
		return index, nil
	}

	index, report, err := orbmatch.BuildIndex(ctx, cfg.Index.Dir, options)
	if err != nil {
		return nil, err
	}
	logger.Info("index built", "dir", report.Dir, "references", index.Len(), "skipped", len(report.Skipped))
	return index, nil
}

// newCatalog chains the configured artwork sources: Mongo, the catalog file,
// the builtin records and finally the description generator.
func newCatalog(ctx context.Context, cfg *config.Config, client *mongo.Client, logger *slog.Logger) (catalog.Store, error) {
	var chain catalog.Chain
	if client != nil {
		collection := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		chain = append(chain, catalog.NewMongo(collection))
	}

	if cfg.Catalog.File != "" {
		artworks, err := catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			return nil, err
		}
		chain = append(chain, catalog.NewMemory(artworks...))
	}

	chain = append(chain, catalog.NewMemory(catalog.Builtin()...))

	provider, err := describe.NewFantasyProvider(ctx, describe.Config{
		Provider: cfg.Describe.Provider,
		APIKey:   cfg.Describe.APIKey,
		BaseURL:  cfg.Describe.BaseURL,
		Model:    cfg.Describe.Model,
	})
	switch {
	case errors.Is(err, describe.ErrNoProvider):
	case err != nil:
		return nil, err
	default:
		logger.Info("description generator enabled", "provider", provider.Name(), "model", cfg.Describe.Model)
		chain = append(chain, describe.New(provider))
	}

	return chain, nil
}

func newScanSink(cfg *config.Config, client *mongo.Client) (scanlog.Sink, error) {
	switch cfg.ScanLog.Backend {
	case "mongo":
		if client == nil {
			return nil, errors.New("scan_log: mongo backend without a connection")
		}
		return scanlog.NewMongo(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.LogCollection)), nil
	case "file":
		return scanlog.NewFile(cfg.ScanLog.Path), nil
	default:
		return scanlog.Nop{}, nil
	}
}
