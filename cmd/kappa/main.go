// Command kappa evaluates the c_kappa stake-term coefficient.
//
//	kappa [-variant v1|v2] -tmed X -ts Y     print one value
//	kappa [-variant v1|v2]                   print the reference examples
//	kappa [-variant v1|v2] -boundary -tmed X print both branches at the boundary
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/kappa/internal/kappa"
	"github.com/banshee-data/kappa/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kappa", flag.ContinueOnError)
	fs.SetOutput(stderr)
	variantFlag := fs.String("variant", "v2", "formula variant: v1 or v2")
	tMed := fs.Float64("tmed", 0, "median stake term T_med")
	tS := fs.Float64("ts", 0, "stake term T_s")
	boundary := fs.Bool("boundary", false, "print both branches at the branch boundary for -tmed")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: kappa [-variant v1|v2] [-tmed X -ts Y | -boundary -tmed X]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return 2
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String("kappa"))
		return 0
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	v, err := kappa.ParseVariant(*variantFlag)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	switch {
	case *boundary:
		if !set["tmed"] {
			fmt.Fprintln(stderr, "error: -boundary requires -tmed")
			return 2
		}
		if set["ts"] {
			fmt.Fprintln(stderr, "error: -boundary does not take -ts")
			return 2
		}
		return printBoundary(stdout, stderr, v, *tMed)

	case set["tmed"] && set["ts"]:
		value, err := kappa.Compute(v, *tMed, *tS)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, kappa.FormatValue(value))
		return 0

	case set["tmed"] || set["ts"]:
		fmt.Fprintln(stderr, "error: -tmed and -ts must be given together")
		fs.Usage()
		return 2
	}

	var filter kappa.Variant
	if set["variant"] {
		filter = v
	}
	return printExamples(stdout, stderr, filter)
}

func printExamples(stdout, stderr io.Writer, filter kappa.Variant) int {
	for _, e := range kappa.ExamplesFor(filter) {
		value, err := e.Value()
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, kappa.FormatValue(value))
	}
	return 0
}

func printBoundary(stdout, stderr io.Writer, v kappa.Variant, tMed float64) int {
	r, err := kappa.Boundary(v, tMed)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "lower\t%s\n", kappa.FormatValue(r.Lower))
	fmt.Fprintf(stdout, "upper\t%s\n", kappa.FormatValue(r.Upper))
	fmt.Fprintf(stdout, "jump\t%s\n", kappa.FormatValue(r.Jump))
	return 0
}
