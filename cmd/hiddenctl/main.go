package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"vine_monitor/internal/config"
	"vine_monitor/internal/hidden"
	"vine_monitor/internal/settings"
	"vine_monitor/internal/storage"
)

var (
	dbPath       string
	settingsPath string
	quota        int64
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "hiddenctl",
	Short: "Inspect and edit the hidden item list",
	Long:  "hiddenctl reads and writes the hidden item list in the monitor database.",
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", envOrDefault("DATABASE_PATH", "./data/monitor.db"), "Database path")
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", envOrDefault("SETTINGS_PATH", "./settings.toml"), "Settings file path")
	rootCmd.PersistentFlags().Int64Var(&quota, "quota", config.DefaultStorageQuota, "Storage quota in bytes (0 disables)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the database and loads the hidden list as a standalone
// context.
func openStore(ctx context.Context) (*hidden.Store, storage.Storage, error) {
	set, err := settings.Read(settingsPath)
	if err != nil {
		return nil, nil, err
	}

	st, err := storage.NewSQLite(dbPath, quota)
	if err != nil {
		return nil, nil, err
	}

	s, err := hidden.New(ctx, st, newLogger(), hidden.Options{
		GC: hidden.GCConfig{CacheSizeMiB: set.CacheSizeMiB()},
	})
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return s, st, nil
}

func newLogger() *slog.Logger {
	var w io.Writer = io.Discard
	if verbose {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
