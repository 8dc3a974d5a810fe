/*
DESCRIPTION
  run.go implements the run subcommand: it reads the frame list, builds
  the engine configuration from --set variables, executes the
  integration, and writes the image, map and report outputs. With --watch
  the command re-runs whenever the frame list file changes.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ausocean/astro/image"
	"github.com/ausocean/astro/integrate"
)

var (
	listPath   string
	outPath    string
	mapLowPath string
	mapHiPath  string
	slopePath  string
	reportPath string
	setVars    []string
	watch      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an integration over the frames of a list file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listPath == "" || outPath == "" {
			return fmt.Errorf("both --list and --out are required")
		}
		if !watch {
			return runOnce()
		}
		return watchAndRun()
	},
}

func init() {
	runCmd.Flags().StringVar(&listPath, "list", "", "frame list file, one 'path[,localNormPath[,drizzlePath]]' per line; prefix '*' marks the reference, '#' comments")
	runCmd.Flags().StringVar(&outPath, "out", "", "integrated image output path")
	runCmd.Flags().StringVar(&mapLowPath, "map-low", "", "low rejection map output path")
	runCmd.Flags().StringVar(&mapHiPath, "map-high", "", "high rejection map output path")
	runCmd.Flags().StringVar(&slopePath, "slope", "", "slope map output path (linear fit rejection)")
	runCmd.Flags().StringVar(&reportPath, "report", "", "per-frame report path (stdout when empty)")
	runCmd.Flags().StringArrayVar(&setVars, "set", nil, "configuration variable Name=value; repeatable")
	runCmd.Flags().BoolVar(&watch, "watch", false, "re-run whenever the list file changes")
	rootCmd.AddCommand(runCmd)
}

// readList parses the frame list file.
func readList(path string) ([]integrate.FileItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var items []integrate.FileItem
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		it := integrate.FileItem{Enabled: true}
		if strings.HasPrefix(line, "*") {
			it.Reference = true
			line = strings.TrimSpace(line[1:])
		}
		parts := strings.Split(line, ",")
		it.Path = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			it.LocalNormalizationPath = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			it.DrizzlePath = strings.TrimSpace(parts[2])
		}
		items = append(items, it)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func buildConfig() (integrate.Config, error) {
	cfg := integrate.NewConfig()
	cfg.Logger = log
	cfg.LogLevel = logLevel
	vars := make(map[string]string)
	for _, kv := range setVars {
		i := strings.IndexByte(kv, '=')
		if i < 0 {
			return cfg, fmt.Errorf("bad --set %q, want Name=value", kv)
		}
		vars[kv[:i]] = kv[i+1:]
	}
	cfg.Update(vars)
	return cfg, nil
}

func runOnce() error {
	items, err := readList(listPath)
	if err != nil {
		return fmt.Errorf("could not read frame list: %w", err)
	}
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	eng, err := integrate.New(cfg, items)
	if err != nil {
		return fmt.Errorf("could not create engine: %w", err)
	}

	sinks := integrate.Sinks{Report: os.Stdout}
	sinks.Image = image.NewRawSink(outPath)
	if mapLowPath != "" {
		sinks.MapLow = image.NewRawSink(mapLowPath)
	}
	if mapHiPath != "" {
		sinks.MapHigh = image.NewRawSink(mapHiPath)
	}
	if slopePath != "" {
		sinks.SlopeMap = image.NewRawSink(slopePath)
	}
	var reportFile *os.File
	if reportPath != "" {
		reportFile, err = os.Create(reportPath)
		if err != nil {
			return fmt.Errorf("could not create report: %w", err)
		}
		defer reportFile.Close()
		sinks.Report = reportFile
	}

	log.Info("starting integration", "frames", len(items), "out", outPath)
	res, err := eng.Run(context.Background(), sinks)
	if err != nil {
		return fmt.Errorf("integration failed: %w", err)
	}
	log.Info("integration complete",
		"rejectedLow", res.TotalRejectedLow, "rejectedHigh", res.TotalRejectedHigh,
		"rangeLow", res.RangeLow, "rangeHigh", res.RangeHigh)
	return nil
}

// watchAndRun re-runs the integration whenever the list file changes.
func watchAndRun() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(listPath); err != nil {
		return fmt.Errorf("could not watch %q: %w", listPath, err)
	}

	if err := runOnce(); err != nil {
		log.Error("integration failed", "error", err.Error())
	}
	log.Info("watching frame list", "path", listPath)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Info("frame list changed; re-running", "event", ev.Op.String())
			if err := runOnce(); err != nil {
				log.Error("integration failed", "error", err.Error())
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warning("watcher error", "error", err.Error())
		}
	}
}
