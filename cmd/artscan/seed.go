package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/artlens/orbmatch/internal/catalog"
	"github.com/spf13/cobra"
)

func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the artwork collection with the catalog records",
		Long: `Delete every document of the Mongo artwork collection and insert the
builtin records, or the records of --file.`,
		Args: cobra.NoArgs,
		RunE: runSeed,
	}

	cmd.Flags().String("file", "", "YAML catalog to seed instead of the builtin records")
	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Mongo.URI == "" {
		return errors.New("seed: MONGO_URI or mongo.uri required")
	}

	artworks, err := seedRecords(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := catalog.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Timeout)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	store := catalog.NewMongo(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
	inserted, err := store.Seed(ctx, artworks)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s.%s with %d artworks\n", cfg.Mongo.Database, cfg.Mongo.Collection, inserted)
	return nil
}

func seedRecords(cmd *cobra.Command) ([]catalog.Artwork, error) {
	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		return catalog.Builtin(), nil
	}
	return catalog.LoadFile(file)
}
