// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the scanocr CLI, which turns scanned,
// image-only PDFs into searchable PDFs and page-separated text.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/scanocr/internal/ledger"
	"github.com/pdiddy/scanocr/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the scanocr CLI.
var rootCmd = &cobra.Command{
	Use:   "scanocr",
	Short: "OCR scanned PDFs into searchable PDFs and text",
	Long: `scanocr rasterizes scanned documents, runs OCR on every page concurrently,
and reassembles the pages, in order, into a searchable PDF and a text file
placed next to each source document.

External tools are found on PATH or in common install locations: ImageMagick
(magick or convert) with pdftoppm as a fallback for rasterization, and
tesseract for OCR. Run "scanocr tools" to see what was found.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./scanocr.yaml or ~/.config/scanocr/scanocr.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().String("history-db", "", "run history database (default: ~/.local/share/scanocr/history.db)")

	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("history_db", rootCmd.PersistentFlags().Lookup("history-db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scanocr")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scanocr"))
		}
	}

	setDefaults()
	viper.SetEnvPrefix("SCANOCR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the log_* settings. Logs go to
// stderr; status lines and summaries go to stdout.
func newLogger() *slog.Logger {
	logger := logging.New(viper.GetString("log_format"), viper.GetString("log_level"), os.Stderr)
	slog.SetDefault(logger)
	return logger
}

func historyPath() string {
	if p := viper.GetString("history_db"); p != "" {
		return p
	}
	return ledger.DefaultPath()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
