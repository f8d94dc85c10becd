// Package cmd implements the CLI commands for m3udash.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jmylchreest/m3udash/internal/config"
	"github.com/jmylchreest/m3udash/internal/observability"
	"github.com/jmylchreest/m3udash/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "m3udash",
	Short:   "M3U playlist relay, Xtream translator and share service",
	Version: version.Short(),
	Long: `m3udash fetches remote M3U playlists on behalf of a browser, translates
Xtream Codes panel listings into M3U playlists, and stores filtered
playlists behind shareable links.`,
	SilenceUsage: true,
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initLogging()
	}

	// Left unbound so defaults never mask env or file values.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.m3udash.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (text, json)")
}

// configSearchPaths are tried in order when --config is not given.
var configSearchPaths = []string{".", "/etc/m3udash"}

// initConfig layers defaults, the config file and M3UDASH_* variables into
// the global viper instance.
func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		for _, dir := range configSearchPaths {
			v.AddConfigPath(dir)
		}
		v.SetConfigName(".m3udash")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "config: %s\n", v.ConfigFileUsed())
	}
}

// persistentOverride returns the flag value when the user set it on the
// command line, otherwise the viper value, otherwise def.
func persistentOverride(flag, key, def string) string {
	value := viper.GetString(key)
	if f := rootCmd.PersistentFlags().Lookup(flag); f != nil && f.Changed {
		value = f.Value.String()
	}
	if value == "" {
		return def
	}
	return strings.ToLower(value)
}

// initLogging installs the process logger. Explicit --log-level and
// --log-format flags beat M3UDASH_LOGGING_* variables, which beat the config
// file.
func initLogging() error {
	level := persistentOverride("log-level", "logging.level", "info")
	if level == "warning" {
		level = "warn"
	}
	format := persistentOverride("log-format", "logging.format", "json")

	viper.Set("logging.level", level)
	viper.Set("logging.format", format)

	logger := observability.NewLoggerWithWriter(config.LoggingConfig{
		Level:      level,
		Format:     format,
		AddSource:  viper.GetBool("logging.add_source"),
		TimeFormat: viper.GetString("logging.time_format"),
	}, os.Stderr)
	observability.SetDefault(observability.WithApp(logger))
	return nil
}

// loadConfig decodes the global viper state, including bound flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding fails.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
