/*
DESCRIPTION
  cache.go implements the cache subcommand for clearing the statistics
  cache.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ausocean/astro/integrate"
)

var cacheDir string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the frame statistics cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached frame statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cacheDir
		if dir == "" {
			base, err := os.UserCacheDir()
			if err != nil {
				base = os.TempDir()
			}
			dir = filepath.Join(base, "astro", "integration")
		}
		c, err := integrate.NewCache(dir)
		if err != nil {
			return fmt.Errorf("could not open cache: %w", err)
		}
		if err := c.Clear(); err != nil {
			return fmt.Errorf("could not clear cache: %w", err)
		}
		log.Info("cache cleared", "dir", dir)
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheDir, "dir", "", "cache directory (platform default when empty)")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
