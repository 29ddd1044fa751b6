// Command kappa-rewards splits a reward pool between sub-stakes, weighting
// each amount by its c_kappa coefficient against the median stake term.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/kappa/internal/config"
	"github.com/banshee-data/kappa/internal/db"
	"github.com/banshee-data/kappa/internal/kappa"
	"github.com/banshee-data/kappa/internal/monitoring"
	"github.com/banshee-data/kappa/internal/stakes"
	"github.com/banshee-data/kappa/internal/version"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	stakesPath string
	variant    kappa.Variant
	tMed       *float64
	pool       float64
	weighted   bool
	dbPath     string
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kappa-rewards", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "JSON run config (see "+config.DefaultConfigPath+")")
	stakesPath := fs.String("stakes", "-", "sub-stakes CSV (id,term,amount), '-' for stdin")
	variantFlag := fs.String("variant", "", "formula variant: v1 or v2 (default v2)")
	tMed := fs.Float64("tmed", 0, "median term; derived from the stakes when unset")
	pool := fs.Float64("pool", 0, "reward pool to allocate (default 1000)")
	weighted := fs.Bool("weighted", false, "derive T_med as the amount-weighted median")
	dbPath := fs.String("db", "", "record the allocation in this SQLite database")
	quiet := fs.Bool("quiet", false, "suppress progress logging")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("kappa-rewards"))
		return 0
	}
	monitoring.Configure(stderr, "kappa-rewards", *quiet)

	cfg := config.DefaultRunConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 2
		}
		cfg = loaded
	}

	opt := options{stakesPath: *stakesPath}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "variant":
			cfg.Variant = variantFlag
		case "pool":
			cfg.RewardPool = pool
		case "weighted":
			cfg.WeightedMedian = weighted
		case "db":
			cfg.DBPath = dbPath
		case "tmed":
			opt.tMed = tMed
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}
	opt.variant = cfg.GetVariant()
	opt.pool = cfg.GetRewardPool()
	opt.weighted = cfg.GetWeightedMedian()
	opt.dbPath = cfg.GetDBPath()

	if err := allocate(ctx, opt, stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func allocate(ctx context.Context, opt options, stdin io.Reader, stdout io.Writer) error {
	in := stdin
	if opt.stakesPath != "-" {
		f, err := os.Open(opt.stakesPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	subStakes, err := stakes.Load(in)
	if err != nil {
		return fmt.Errorf("load stakes: %w", err)
	}
	d := stakes.Describe(subStakes)
	monitoring.Logf("loaded %d sub-stakes: amount=%g term min=%g max=%g mean=%.3f stddev=%.3f",
		d.Count, d.TotalAmount, d.MinTerm, d.MaxTerm, d.MeanTerm, d.StddevTerm)

	var tMed float64
	switch {
	case opt.tMed != nil:
		tMed = *opt.tMed
	case opt.weighted:
		if tMed, err = stakes.WeightedMedianTerm(subStakes); err != nil {
			return err
		}
	default:
		if tMed, err = stakes.MedianTerm(subStakes); err != nil {
			return err
		}
	}
	monitoring.Logf("variant=%s t_med=%s pool=%g", opt.variant, kappa.FormatValue(tMed), opt.pool)

	shares, err := stakes.Allocate(opt.variant, tMed, opt.pool, subStakes)
	if err != nil {
		return err
	}
	if err := writeShares(stdout, shares); err != nil {
		return err
	}

	if opt.dbPath != "" {
		database, err := db.OpenDB(opt.dbPath)
		if err != nil {
			return err
		}
		defer database.Close()

		id, err := database.RecordAllocation(ctx, db.Allocation{
			Variant:        opt.variant,
			TMed:           tMed,
			Pool:           opt.pool,
			WeightedMedian: opt.weighted && opt.tMed == nil,
		}, shares)
		if err != nil {
			return err
		}
		monitoring.Logf("recorded allocation %s in %s", id, opt.dbPath)
	}
	return nil
}

func writeShares(w io.Writer, shares []stakes.Share) error {
	if _, err := fmt.Fprintln(w, "id\tterm\tamount\tc_kappa\treward"); err != nil {
		return err
	}
	for _, s := range shares {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			kappa.FormatValue(s.Term),
			kappa.FormatValue(s.Amount),
			kappa.FormatValue(s.Kappa),
			kappa.FormatValue(s.Reward),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
