// Command colonyd runs and inspects a colony network.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Jlo00/colonyNetwork/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "colonyd",
	Short: "Colony network daemon and tools",
	Long: `colonyd drives a colony network: colonies sharing a global skill tree,
funding tasks from their pots, and changing task terms only with the signatures
of the task's role holders. Every applied change is written to a hash-chained
journal kept in SQLite or Postgres.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(newLogger(viper.GetString("log-level")))
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("COLONY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	defaults := config.Load()
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", defaults.LogLevel, "log level (DEBUG, INFO, WARN, ERROR)")
	flags.String("db-driver", defaults.DBDriver, "journal database driver (sqlite, postgres)")
	flags.String("database-url", defaults.DatabaseURL, "journal database DSN")
	flags.String("redis-addr", defaults.RedisAddr, "redis address for mining signals (empty keeps them in memory)")
	flags.Int("redis-db", defaults.RedisDB, "redis database number")
	flags.String("otlp-endpoint", defaults.OTLPEndpoint, "OTLP gRPC endpoint (empty disables telemetry)")
	flags.String("network-profile", defaults.ProfilePath, "network profile YAML")
	flags.Bool("json", false, "output JSON")
	for _, name := range []string{"log-level", "db-driver", "database-url", "redis-addr", "redis-db", "otlp-endpoint", "network-profile", "json"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(journalCmd())
	rootCmd.AddCommand(configCmd())
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
