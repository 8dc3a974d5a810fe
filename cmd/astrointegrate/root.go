/*
DESCRIPTION
  root.go sets up the astrointegrate command tree and the logging stack:
  a rotating file log via lumberjack combined with stdout, feeding the
  shared logging package.

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
	"io"
	"os"

	"github.com/ausocean/utils/logging"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logging configuration.
const (
	logMaxSize   = 100 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logSuppress  = true
)

var (
	logPath  string
	logLevel int8
	log      logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "astrointegrate",
	Short: "Integrate co-registered astronomical frames with outlier rejection",
	Long: `astrointegrate combines a set of co-registered frames into a single
image by per-pixel statistical integration: per-frame normalization,
one of several rejection algorithms, optional large-scale rejection
growth, and weighted combination.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var w io.Writer = os.Stdout
		if logPath != "" {
			fileLog := &lumberjack.Logger{
				Filename:   logPath,
				MaxSize:    logMaxSize,
				MaxBackups: logMaxBackup,
				MaxAge:     logMaxAge,
			}
			w = io.MultiWriter(fileLog, os.Stdout)
		}
		log = logging.New(logLevel, w, logSuppress)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logPath, "log-file", "", "rotating log file path (stdout only when empty)")
	rootCmd.PersistentFlags().Int8Var(&logLevel, "log-level", int8(logging.Info), "log verbosity")
}
