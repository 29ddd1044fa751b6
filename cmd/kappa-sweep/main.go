// Command kappa-sweep evaluates c_kappa over a grid of median and stake
// terms and writes the points as CSV, with optional per-T_med summaries,
// charts and a database record of the run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/banshee-data/kappa/internal/chart"
	"github.com/banshee-data/kappa/internal/config"
	"github.com/banshee-data/kappa/internal/db"
	"github.com/banshee-data/kappa/internal/kappa"
	"github.com/banshee-data/kappa/internal/monitoring"
	"github.com/banshee-data/kappa/internal/sweep"
	"github.com/banshee-data/kappa/internal/timeutil"
	"github.com/banshee-data/kappa/internal/version"
)

var clock timeutil.Clock = timeutil.RealClock{}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kappa-sweep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "JSON run config (see "+config.DefaultConfigPath+")")
	variantFlag := fs.String("variant", "", "formula variant: v1 or v2 (default v2)")
	tMedRange := fs.String("tmed", "", "T_med values: min:max:step or a comma-separated list")
	tSRange := fs.String("ts", "", "T_s values: min:max:step or a comma-separated list")
	output := fs.String("output", "", "points CSV path, '-' for stdout")
	summary := fs.String("summary", "", "per-T_med summary CSV path, '-' for stdout")
	png := fs.String("png", "", "write a chart image to this path")
	html := fs.String("html", "", "write an interactive HTML chart to this path")
	dbPath := fs.String("db", "", "record the run in this SQLite database")
	quiet := fs.Bool("quiet", false, "suppress progress logging")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("kappa-sweep"))
		return 0
	}
	monitoring.Configure(stderr, "kappa-sweep", *quiet)

	cfg := config.DefaultRunConfig()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 2
		}
		cfg = loaded
	}

	// Explicitly set flags override the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "variant":
			cfg.Variant = variantFlag
		case "tmed":
			cfg.TMedRange = tMedRange
		case "ts":
			cfg.TSRange = tSRange
		case "output":
			cfg.Output = output
		case "summary":
			cfg.SummaryOutput = summary
		case "png":
			cfg.PlotPNG = png
		case "html":
			cfg.PlotHTML = html
		case "db":
			cfg.DBPath = dbPath
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	if err := sweepRun(ctx, cfg, stdout); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func sweepRun(ctx context.Context, cfg *config.RunConfig, stdout io.Writer) error {
	start := clock.Now()
	v := cfg.GetVariant()
	points, err := sweep.EvaluateSpecs(v, cfg.GetTMedRange(), cfg.GetTSRange())
	if err != nil {
		return err
	}
	failed := 0
	for _, p := range points {
		if !p.OK() {
			failed++
		}
	}
	monitoring.Logf("variant=%s t_med=%q t_s=%q points=%d domain_errors=%d",
		v, cfg.GetTMedRange(), cfg.GetTSRange(), len(points), failed)

	if path := cfg.GetOutput(); path != "" {
		if err := writeCSV(path, stdout, func(w *sweep.CSVWriter) error { return w.WritePoints(points) }); err != nil {
			return fmt.Errorf("write points: %w", err)
		}
		logWrote(path, "points")
	}

	if path := cfg.GetSummaryOutput(); path != "" {
		summaries := sweep.Summarise(points)
		if err := writeCSV(path, stdout, func(w *sweep.CSVWriter) error { return w.WriteSummaries(summaries) }); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		logWrote(path, "summary")
	}

	title := fmt.Sprintf("c_kappa %s", v)
	curves := chart.Curves(points)
	if path := cfg.GetPlotPNG(); path != "" {
		if err := chart.SavePNG(path, title, curves); err != nil {
			return err
		}
		logWrote(path, "chart")
	}
	if path := cfg.GetPlotHTML(); path != "" {
		if err := writeHTML(path, title, curves); err != nil {
			return err
		}
		logWrote(path, "html chart")
	}

	if path := cfg.GetDBPath(); path != "" {
		id, err := recordRun(ctx, path, cfg, v, points)
		if err != nil {
			return err
		}
		monitoring.Logf("recorded sweep run %s in %s", id, path)
	}
	monitoring.Logf("done in %s", clock.Since(start).Round(time.Millisecond))
	return nil
}

func logWrote(path, what string) {
	if path == "-" {
		return
	}
	monitoring.Logf("wrote %s to %s", what, path)
}

func writeCSV(path string, stdout io.Writer, write func(*sweep.CSVWriter) error) error {
	if path == "-" {
		w := sweep.NewCSVWriter(stdout)
		if err := write(w); err != nil {
			return err
		}
		return w.Flush()
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := sweep.NewCSVWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeHTML(path, title string, curves []chart.Curve) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html chart: %w", err)
	}
	if err := chart.WriteHTML(f, title, curves); err != nil {
		f.Close()
		return fmt.Errorf("render html chart: %w", err)
	}
	return f.Close()
}

func recordRun(ctx context.Context, path string, cfg *config.RunConfig, v kappa.Variant, points []sweep.Point) (string, error) {
	database, err := db.OpenDB(path)
	if err != nil {
		return "", err
	}
	defer database.Close()

	return database.RecordSweep(ctx, db.SweepRun{
		Variant:  v,
		TMedSpec: cfg.GetTMedRange(),
		TSSpec:   cfg.GetTSRange(),
	}, points)
}
