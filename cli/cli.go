// Package cli assembles the Cobra command tree the cgtax binary exposes:
// report, validate, and resume.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sklarsa/crypto-gains-engine/config"
	"github.com/sklarsa/crypto-gains-engine/currency"
	"github.com/sklarsa/crypto-gains-engine/engine"
	"github.com/sklarsa/crypto-gains-engine/money"
	"github.com/sklarsa/crypto-gains-engine/rate/coingecko"
	"github.com/sklarsa/crypto-gains-engine/rate/csvsource"
	"github.com/sklarsa/crypto-gains-engine/relation"
	"github.com/sklarsa/crypto-gains-engine/report"
	"github.com/sklarsa/crypto-gains-engine/snapshot"
	"github.com/sklarsa/crypto-gains-engine/trade"
	"github.com/sklarsa/crypto-gains-engine/trade/csvnormalizer"
)

// Execute builds and runs the root command against os.Args.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "cgtax",
		Short: "Compute FIFO capital-gains tax reports from cryptocurrency trade exports",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	root.PersistentFlags().BoolVarP(&verbose, "v", "v", false, "turn on debug logging")

	root.AddCommand(newReportCmd(&configPath))
	root.AddCommand(newValidateCmd())
	root.AddCommand(newResumeCmd(&configPath))
	return root
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	money.SetPrecision(cfg.DecimalPrecision)
	return cfg, nil
}

// buildEngine wires a fresh Engine from configuration. Rate Sources must
// be registered by the caller via rel before trades are processed; this
// function only wires the Engine and its optional snapshotter around rel.
func buildEngine(cfg config.Config, rel *relation.CurrencyRelation) *engine.Engine {
	e := engine.New(cfg.BaseCurrency, rel, cfg.ShortTermThresholdYears, log.StandardLogger())
	if cfg.SnapshotPath != "" {
		e.Snapshotter = snapshot.FileStore{Path: cfg.SnapshotPath}
	}
	return e
}

// registerRateSources wires every rate source named in cfg into rel, so
// GetRate has a route for any non-base currency a trade references.
func registerRateSources(cfg config.Config, rel *relation.CurrencyRelation) error {
	interval := cfg.RateSampleInterval
	for _, rc := range cfg.RateCSVSources {
		rcInterval := rc.Interval
		if rcInterval == "" {
			rcInterval = interval
		}
		d, err := time.ParseDuration(rcInterval)
		if err != nil {
			return errors.Wrapf(err, "rate_csv_sources: %s/%s: interval", rc.Base, rc.Quote)
		}
		f, err := os.Open(rc.Path)
		if err != nil {
			return errors.Wrapf(err, "rate_csv_sources: %s/%s", rc.Base, rc.Quote)
		}
		pair := currency.NewPair(currency.Code(rc.Base), currency.Code(rc.Quote))
		src, err := csvsource.ReadCSV(f, pair, d)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "rate_csv_sources: %s/%s", rc.Base, rc.Quote)
		}
		rel.AddDirectPair(pair, src)
	}

	if len(cfg.CoinGecko.CoinIDs) > 0 {
		minInterval, err := time.ParseDuration(cfg.CoinGecko.MinInterval)
		if err != nil {
			return errors.Wrap(err, "coingecko.min_interval")
		}
		coinIDs := make(coingecko.CoinID, len(cfg.CoinGecko.CoinIDs))
		for code, id := range cfg.CoinGecko.CoinIDs {
			coinIDs[currency.Code(code)] = id
		}
		src := coingecko.New(coinIDs, cfg.CoinGecko.VSCurrency, minInterval)
		for code := range coinIDs {
			rel.AddDirectPair(currency.NewPair(code, currency.Code(cfg.CoinGecko.VSCurrency)), src)
		}
	}

	return nil
}

func loadTrades(path string, reconcile bool) ([]trade.Trade, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	raw, err := csvnormalizer.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	norm := csvnormalizer.New(nil)
	trades, err := norm.Normalize(raw)
	if err != nil {
		return nil, err
	}
	if reconcile {
		trades, err = engine.ReconcileTransferFees(trades, false)
		if err != nil {
			return nil, err
		}
	}
	return trades, nil
}

func newReportCmd(configPath *string) *cobra.Command {
	var (
		csvOut    string
		summary   bool
		reconcile bool
	)
	cmd := &cobra.Command{
		Use:   "report <trades.csv>",
		Short: "Process a trade export and print the resulting payment ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rel := relation.New(cfg.BaseCurrency)
			if err := registerRateSources(cfg, rel); err != nil {
				return err
			}
			e := buildEngine(cfg, rel)

			trades, err := loadTrades(args[0], reconcile)
			if err != nil {
				return err
			}
			for _, t := range trades {
				if err := e.Process(t); err != nil {
					return fmt.Errorf("processing trade at %s: %w", t.Time, err)
				}
			}

			rows := e.State.Ledger.Consolidated()
			if summary {
				return report.WriteSummaryText(cmd.OutOrStdout(), report.Summary(rows))
			}
			if csvOut != "" {
				out, err := os.Create(csvOut)
				if err != nil {
					return err
				}
				defer out.Close()
				return report.WriteCSV(out, rows)
			}
			return report.WriteText(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&csvOut, "csv", "", "write the ledger as CSV to this path instead of printing a table")
	cmd.Flags().BoolVar(&summary, "summary", false, "print the per-year/exchange/currency summary instead of the raw ledger")
	cmd.Flags().BoolVar(&reconcile, "reconcile-transfer-fees", false, "infer missing withdrawal fees by matching withdrawals to deposits")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <trades.csv>",
		Short: "Parse and normalize a trade export without running the engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trades, err := loadTrades(args[0], false)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d trades parsed and normalized\n", len(trades))
			return nil
		},
	}
}

func newResumeCmd(configPath *string) *cobra.Command {
	var snapshotPath string
	cmd := &cobra.Command{
		Use:   "resume <trades.csv>",
		Short: "Resume processing from a previously written snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if snapshotPath == "" {
				snapshotPath = cfg.SnapshotPath
			}
			if snapshotPath == "" {
				return fmt.Errorf("resume: no snapshot path configured")
			}

			state, err := snapshot.Load(snapshotPath, cfg.BaseCurrency)
			if err != nil {
				return err
			}

			rel := relation.New(cfg.BaseCurrency)
			if err := registerRateSources(cfg, rel); err != nil {
				return err
			}
			e := buildEngine(cfg, rel)
			e.State = state

			trades, err := loadTrades(args[0], false)
			if err != nil {
				return err
			}
			resumed := 0
			for _, t := range trades {
				if !t.Time.After(state.LastSeenTime) {
					continue
				}
				if err := e.Process(t); err != nil {
					return fmt.Errorf("processing trade at %s: %w", t.Time, err)
				}
				resumed++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "resumed, processed %d new trades\n", resumed)
			return report.WriteText(cmd.OutOrStdout(), e.State.Ledger.Consolidated())
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "snapshot file to resume from (defaults to config's snapshot_path)")
	return cmd
}
