package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/parklink/config"
	"github.com/Ramsey-B/parklink/internal/repositories/federalpark"
	"github.com/Ramsey-B/parklink/internal/repositories/parklink"
	"github.com/Ramsey-B/parklink/internal/repositories/wikidatapark"
	"github.com/Ramsey-B/parklink/pkg/linking"
	"github.com/Ramsey-B/parklink/pkg/models"
)

var linkCommand = &cobra.Command{
	Use:   "link",
	Short: "Link parks read from JSON or YAML files",
	Long: `Reads federal and Wikidata park records from files, links them with the configured
scorer and writes the links to --out (or stdout). Flags override the LINK_* environment.

With --persist the parks are upserted into the configured database and the links are persisted.`,
	RunE: runLinkCmd,
}

var (
	linkFederalPath   string
	linkWikidataPath  string
	linkOutPath       string
	linkThreshold     float64
	linkMaxDistanceKm float64
	linkWorkers       int
	linkPersist       bool
)

func init() {
	linkCommand.Flags().StringVar(&linkFederalPath, "federal", "", "Federal parks file (.json, .yaml or .yml)")
	linkCommand.Flags().StringVar(&linkWikidataPath, "wikidata", "", "Wikidata parks file (.json, .yaml or .yml)")
	linkCommand.Flags().StringVarP(&linkOutPath, "out", "o", "", "Write links to this file instead of stdout")
	linkCommand.Flags().Float64Var(&linkThreshold, "threshold", 0, "Minimum confidence for a link (defaults to LINK_THRESHOLD)")
	linkCommand.Flags().Float64Var(&linkMaxDistanceKm, "max-distance-km", 0, "Distance at which location similarity reaches 0 (defaults to LINK_MAX_DISTANCE_KM)")
	linkCommand.Flags().IntVar(&linkWorkers, "workers", 0, "Concurrent scoring workers (defaults to LINK_WORKERS)")
	linkCommand.Flags().BoolVar(&linkPersist, "persist", false, "Upsert the parks and persist the links to the configured database")

	_ = linkCommand.MarkFlagRequired("federal")
	_ = linkCommand.MarkFlagRequired("wikidata")

	rootCmd.AddCommand(linkCommand)
}

func runLinkCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, flush, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer flush()

	federal, err := readRecords[models.FederalPark](linkFederalPath)
	if err != nil {
		return err
	}
	wikidata, err := readRecords[models.WikidataPark](linkWikidataPath)
	if err != nil {
		return err
	}

	opts, err := linkOptions(cmd, cfg)
	if err != nil {
		return err
	}
	opts.Progress = linking.CancelOnDone(ctx, linking.EveryN(cfg.LinkProgressEvery, func(p models.LinkProgress) error {
		logger.WithContext(ctx).WithFields(map[string]any{
			"current": p.Current,
			"total":   p.Total,
			"matched": p.Matched,
			"park":    p.RecordName,
		}).Info("Linking progress")
		return nil
	}))

	scorer, err := cfg.Scorer()
	if err != nil {
		return err
	}

	links, err := linking.NewLinker(scorer, logger).Link(ctx, federal, wikidata, opts)
	if err != nil {
		return err
	}

	if linkPersist {
		if err := persistFileRun(ctx, cfg, logger, federal, wikidata, links); err != nil {
			return err
		}
	}

	return writeLinks(cmd, linkOutPath, links)
}

// linkOptions applies the flags that were set on top of the configured options
func linkOptions(cmd *cobra.Command, cfg *config.Config) (linking.Options, error) {
	opts := cfg.LinkOptions()
	flags := cmd.Flags()
	if flags.Changed("threshold") {
		opts.Threshold = linkThreshold
	}
	if flags.Changed("max-distance-km") {
		opts.MaxDistanceKm = linkMaxDistanceKm
	}
	if flags.Changed("workers") {
		opts.Workers = linkWorkers
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func persistFileRun(ctx context.Context, cfg *config.Config, logger ectologger.Logger, federal []models.FederalPark, wikidata []models.WikidataPark, links []models.ParkLink) error {
	conn, err := openMigratedDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := federalpark.NewRepository(conn, logger).Upsert(ctx, federal); err != nil {
		return err
	}
	if _, err := wikidatapark.NewRepository(conn, logger).Upsert(ctx, wikidata); err != nil {
		return err
	}

	result, err := parklink.NewRepository(conn, logger).Persist(ctx, links)
	if err != nil {
		return err
	}

	logger.WithContext(ctx).WithFields(map[string]any{
		"links":         len(links),
		"rows_affected": result.RowsAffected,
	}).Info("Persisted links")
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// readRecords decodes a list of records, choosing the format by file extension
func readRecords[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	var records []T
	if isYAML(path) {
		err = yaml.Unmarshal(data, &records)
	} else {
		err = json.Unmarshal(data, &records)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return records, nil
}

func writeLinks(cmd *cobra.Command, path string, links []models.ParkLink) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(links)
	} else {
		data, err = json.MarshalIndent(links, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.Wrap(err, "failed to encode links")
	}

	if path == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "failed to write %s", path)
}
