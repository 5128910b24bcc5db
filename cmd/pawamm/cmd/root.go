package cmd

import (
	"fmt"
	"os"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix namespaces environment overrides, e.g. PAWAMM_LOG_LEVEL.
	EnvPrefix = "PAWAMM"

	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagOutput   = "output"
	flagMetrics  = "metrics"
	flagOTLP     = "otlp-endpoint"
	flagSampling = "trace-sample-rate"

	outputText = "text"
	outputJSON = "json"
)

// Config is the effective CLI configuration after merging flags, env and
// an optional config file.
type Config struct {
	LogLevel        string
	Output          string
	Metrics         bool
	OTLPEndpoint    string
	TraceSampleRate float64
}

// LoadConfig merges the config file, PAWAMM_* environment variables and
// flags, in increasing order of precedence.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(flagLogLevel, "info")
	v.SetDefault(flagOutput, outputText)
	v.SetDefault(flagMetrics, false)
	v.SetDefault(flagSampling, 1.0)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		LogLevel:        v.GetString(flagLogLevel),
		Output:          strings.ToLower(v.GetString(flagOutput)),
		Metrics:         v.GetBool(flagMetrics),
		OTLPEndpoint:    v.GetString(flagOTLP),
		TraceSampleRate: v.GetFloat64(flagSampling),
	}
	if cfg.Output != outputText && cfg.Output != outputJSON {
		return Config{}, fmt.Errorf("unsupported output %q (want %s or %s)", cfg.Output, outputText, outputJSON)
	}
	if cfg.TraceSampleRate < 0 || cfg.TraceSampleRate > 1 {
		return Config{}, fmt.Errorf("trace sample rate must be in [0, 1], got %v", cfg.TraceSampleRate)
	}
	return cfg, nil
}

// NewLogger builds the stderr logger. LogLevel is either a plain level or a
// per-module filter such as "x/dex:debug,*:error".
func (c Config) NewLogger() (log.Logger, error) {
	if level, err := zerolog.ParseLevel(c.LogLevel); err == nil {
		return log.NewLogger(os.Stderr, log.LevelOption(level)), nil
	}
	filter, err := log.ParseLogLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	return log.NewLogger(os.Stderr, log.FilterOption(filter)), nil
}

// NewRootCmd creates the pawamm root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pawamm",
		Short: "PAW constant-product AMM engine",
		Long: `pawamm runs the PAW AMM engine in memory: it replays scripted scenarios
against fresh state and reports the resulting events, pools and invariants.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String(flagLogLevel, "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP(flagOutput, "o", outputText, "output format (text|json)")
	rootCmd.PersistentFlags().String(flagOTLP, "", "OTLP/HTTP endpoint for engine call spans")
	rootCmd.PersistentFlags().Float64(flagSampling, 1.0, "fraction of engine call spans to sample")

	rootCmd.AddCommand(
		NewSimulateCmd(),
		NewParamsCmd(),
	)
	return rootCmd
}

// configFromCmd resolves the configuration visible to cmd.
func configFromCmd(cmd *cobra.Command) (Config, error) {
	cfgFile, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return Config{}, err
	}
	return LoadConfig(cfgFile, cmd.Flags())
}
