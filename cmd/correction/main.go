// Command correction applies one tagged correction to every stored event.
//
// Storage is configured from EVENTS_* environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/config"
	"github.com/moklem/tv-herren-bereich/internal/correction"
	"github.com/moklem/tv-herren-bereich/internal/storage"
	"github.com/moklem/tv-herren-bereich/internal/storagebuilder"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var (
	tag        string
	dryRun     bool
	reportFile string
	listTags   bool
)

func init() {
	flag.StringVar(&tag, "tag", "", "Correction to apply")
	flag.BoolVar(&dryRun, "dry-run", false, "Evaluate the correction without writing")
	flag.StringVar(&reportFile, "report", "", "Write the full report as YAML to this file")
	flag.BoolVar(&listTags, "list", false, "Print known correction tags")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()
	os.Exit(run(os.Stdout, os.Stderr))
}

func run(stdout, stderr io.Writer) int {
	if listTags {
		fmt.Fprintln(stdout, strings.Join(correction.Tags(), "\n"))
		return 0
	}
	if tag == "" {
		fmt.Fprintln(stderr, "-tag is required, see -list")
		return 1
	}
	c, err := correction.Lookup(tag, time.Now())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	cfg, err := NewConfig()
	if err != nil {
		if errors.Is(err, config.ErrConfigurationMissing) {
			fmt.Fprintf(stderr, "storage is not configured: %v\n", err)
		} else {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	stor, err := storagebuilder.New(cfg.storage())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeStorage(stor)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := correction.NewRunner(stor)
	runner.DryRun = dryRun
	runner.Progress = newProgressBar(stderr).update

	report, err := runner.Apply(ctx, c)
	printReport(stdout, report)
	if reportFile != "" {
		if err := writeReport(reportFile, report); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "correction %q stopped: %v\n", c.Tag, err)
		return 1
	}
	return 0
}

func printReport(w io.Writer, r correction.Report) {
	fmt.Fprintf(w, "tag: %s\n", r.Tag)
	if r.DryRun {
		fmt.Fprintln(w, "dry run: nothing written")
	}
	fmt.Fprintf(w, "scanned: %d\nfixed: %d\nerrors: %d\nchanged: %d\n", r.Scanned, r.Fixed, r.Errors, r.Changed)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s: %s\n", f.EventID, f.Reason)
	}
}

func writeReport(file string, r correction.Report) error {
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return enc.Close()
}

func closeStorage(s storage.Storage) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		log.Errorf("failed to close storage: %v", err)
	}
}
