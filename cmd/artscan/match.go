package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/artlens/orbmatch"
	"github.com/spf13/cobra"
)

func NewMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <dir|snapshot> <image>",
		Short: "Match a photo against references",
		Long: `Match a photo against a reference directory or an index snapshot and
print the ranked candidates.`,
		Args: cobra.ExactArgs(2),
		RunE: runMatch,
	}

	cmd.Flags().Float64("min-score", orbmatch.DefaultMinScore, "Minimum score of a confident match")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	source, photo := args[0], args[1]
	options := cfg.MatchOptions(logger)

	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("%w: %w", orbmatch.ErrConfiguration, err)
	}

	var index *orbmatch.Index
	if info.IsDir() {
		index, _, err = orbmatch.BuildIndex(cmd.Context(), source, options)
	} else {
		index, err = orbmatch.ReadSnapshot(source, options)
	}
	if err != nil {
		return err
	}

	img, err := orbmatch.DecodeFile(photo)
	if err != nil {
		return err
	}
	result := index.Match(img)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	out := cmd.OutOrStdout()
	if result.Confident(cfg.Match.MinScore) {
		fmt.Fprintf(out, "Match: %s (score %.4f)\n", result.Label, result.Score)
	} else {
		fmt.Fprintf(out, "No confident match (best score %.4f)\n", result.Score)
	}
	for position, alternative := range result.Alternatives {
		fmt.Fprintf(out, "  %d. %-24s %.4f\n", position+1, alternative.Label, alternative.Score)
	}
	return nil
}
