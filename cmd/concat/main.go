// Command concat combines many delimited text files (CSV/TSV and friends)
// into one output, reconciling their columns under a chosen policy.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"concat/internal/combine"
	"concat/internal/metrics"
	"concat/internal/metrics/datadog"
	"concat/internal/sink"
)

const (
	exitFailure   = 1
	exitInterrupt = 130
)

func main() {
	var (
		directory  string
		globs      string
		inputs     string
		extension  string
		sampleRows int

		normalize string
		workers   int

		schemaPolicy    string
		columns         string
		missingPolicy   string
		caseInsensitive bool

		noSourceCol   bool
		sourceColName string
		sourceColMode string

		chunkSize int

		outPath     string
		outDelim    string
		noHeader    bool
		outFormat   string
		sqliteTable string

		dryRun         bool
		metricsBackend string
	)

	flag.StringVar(&directory, "dir", "", "directory containing input files")
	flag.StringVar(&globs, "glob", "", "comma-separated glob patterns (supports **)")
	flag.StringVar(&inputs, "input", "", "comma-separated list of input files")
	flag.StringVar(&extension, "extension", "", "expected file extension (e.g. csv, tsv); inferred when omitted")
	flag.IntVar(&sampleRows, "sample-rows", 50, "lines sampled per file for delimiter sniffing")

	flag.StringVar(&normalize, "normalize", "", "rewrite mixed-delimiter inputs to this delimiter (comma, tab, semicolon, pipe)")
	flag.IntVar(&workers, "workers", 4, "worker pool size for the normalization step")

	flag.StringVar(&schemaPolicy, "schema", "strict", "column reconciliation policy: strict, union, intersection")
	flag.StringVar(&columns, "columns", "", "comma-separated columns to combine (overrides -schema; order sets output order)")
	flag.StringVar(&missingPolicy, "missing-policy", "error", "when -columns is set and a file lacks some: error, skip, fillna")
	flag.BoolVar(&caseInsensitive, "case-insensitive", false, "match -columns against headers ignoring case")

	flag.BoolVar(&noSourceCol, "no-source-col", false, "disable the source filename column")
	flag.StringVar(&sourceColName, "source-col-name", "source_file", "name of the source column")
	flag.StringVar(&sourceColMode, "source-col-mode", "name", "source column value: name, stem, path")

	flag.IntVar(&chunkSize, "chunksize", 200_000, "rows per streamed chunk")

	flag.StringVar(&outPath, "out", "", "output file path")
	flag.StringVar(&outDelim, "out-delim", "comma", "output delimiter (comma, tab, semicolon, pipe)")
	flag.BoolVar(&noHeader, "no-header", false, "write output without a header row")
	flag.StringVar(&outFormat, "out-format", "csv", "output format: csv (delimited text) or sqlite")
	flag.StringVar(&sqliteTable, "sqlite-table", "", "table name for -out-format sqlite (default: derived from -out)")

	flag.BoolVar(&dryRun, "dry-run", false, "analyze inputs and print a summary without writing output")
	flag.StringVar(&metricsBackend, "metrics-backend", "none", "metrics backend: none or datadog")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()
	log.SetFlags(0)

	job := &combine.Job{
		Directory:  directory,
		Globs:      splitList(globs),
		Inputs:     splitList(inputs),
		Extension:  extension,
		SampleRows: sampleRows,
		Workers:    workers,

		Columns:         splitList(columns),
		CaseInsensitive: caseInsensitive,

		AddSource:    !noSourceCol,
		SourceColumn: sourceColName,

		ChunkSize: chunkSize,
		OutPath:   outPath,
		Header:    !noHeader,
		DryRun:    dryRun,
	}
	if *verbose {
		job.Logf = log.Printf
	}

	var err error
	if job.Policy, err = combine.ParsePolicy(schemaPolicy); err != nil {
		fatalf("%v", err)
	}
	if job.Missing, err = combine.ParseMissingPolicy(missingPolicy); err != nil {
		fatalf("%v", err)
	}
	if job.OutDelim, err = combine.ParseDelim(outDelim); err != nil {
		fatalf("%v", err)
	}
	if normalize != "" {
		if job.NormalizeTo, err = combine.ParseDelim(normalize); err != nil {
			fatalf("%v", err)
		}
	}
	switch m := combine.SourceMode(sourceColMode); m {
	case combine.SourceName, combine.SourceStem, combine.SourcePath:
		job.SourceMode = m
	default:
		fatalf("unknown source column mode %q (name, stem, path)", sourceColMode)
	}

	switch outFormat {
	case "csv", "":
		// default text sink, configured on the job itself
	case "sqlite":
		table := sqliteTable
		if table == "" {
			table = sink.TableNameFor(outPath)
		}
		job.NewSink = func(ctx context.Context) (sink.RowSink, error) {
			return sink.NewSQLite(ctx, outPath, table)
		}
	default:
		fatalf("unknown output format %q (csv, sqlite)", outFormat)
	}

	setupMetrics(metricsBackend, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	sum, err := job.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Printf("interrupted")
			stop()
			_ = metrics.Flush()
			os.Exit(exitInterrupt)
		}
		log.Printf("ERROR: %v", err)
		_ = metrics.Flush()
		os.Exit(exitFailure)
	}

	if dryRun {
		printDryRun(job, sum)
		return
	}

	if *verbose {
		log.Printf("combined %d rows from %d files in %s",
			sum.Rows, len(sum.Files), time.Since(start).Truncate(time.Millisecond))
	}
}

func setupMetrics(backendName string, verbose bool) {
	switch backendName {
	case "datadog":
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: "concat",
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled")
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func printDryRun(job *combine.Job, sum *combine.Summary) {
	fmt.Fprintln(os.Stderr, "[dry-run] summary:")
	fmt.Fprintf(os.Stderr, "  files: %d\n", len(sum.Files))
	fmt.Fprintf(os.Stderr, "  extension: .%s\n", sum.Extension)
	if len(sum.Files) > 0 {
		fmt.Fprintf(os.Stderr, "  delimiter: %s (normalized=%v)\n",
			combine.DelimName(sum.Files[0].Delim), sum.Normalized)
	}
	if sum.ColumnsMode {
		fmt.Fprintf(os.Stderr, "  columns: %v (missing-policy=%s, case-insensitive=%v)\n",
			sum.Schema, job.Missing, job.CaseInsensitive)
		if len(sum.Skipped) > 0 {
			fmt.Fprintf(os.Stderr, "  skipped: %d files with missing columns\n", len(sum.Skipped))
		}
	} else {
		fmt.Fprintf(os.Stderr, "  schema policy: %s\n", job.Policy)
		fmt.Fprintf(os.Stderr, "  columns: %v\n", sum.Schema)
	}
	src := "off"
	if job.AddSource {
		src = fmt.Sprintf("on (name=%s, mode=%s)", job.SourceColumn, job.SourceMode)
	}
	fmt.Fprintf(os.Stderr, "  source column: %s\n", src)
	fmt.Fprintf(os.Stderr, "  output: %s (delim=%s, header=%v)\n",
		job.OutPath, combine.DelimName(job.OutDelim), job.Header)
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(exitFailure)
}
