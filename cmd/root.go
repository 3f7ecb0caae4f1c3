// Package cmd provides the command-line interface for sigil.
//
// Configuration System:
//
//	Settings are read once per command from these sources, highest first:
//	1. Command-line flags (--root, --log-level)
//	2. SIGIL_<SECTION>_<OPTION> environment variables (SIGIL_CACHE_DIR, ...)
//	3. The configuration file: --config, else SIGIL_CONFIG_FILE, else .sigil.yml
//	4. Built-in defaults
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/sigil/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sigil",
	Short: "Compile and render directive templates",
	Long: `Sigil compiles templates written with @-directives (@if, @foreach,
@extends, @include, ...) into cached artifacts and renders them.

Artifacts are rebuilt only when a template, one of its layouts or one of its
partials changed since the last build.

Quick Start:
  sigil compile --all             Compile every template
  sigil render home --data @home.json
  sigil list                      Show templates and cache state
  sigil watch                     Recompile on change`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .sigil.yml, can also use SIGIL_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("root", ".", "document root the template and cache directories resolve against")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	bindFlags()
}

// bindFlags ties persistent flags to their configuration keys.
func bindFlags() {
	_ = viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig points viper at the configuration file and environment. A
// missing default file is not an error; an explicitly named one that fails
// to load surfaces when the command loads its configuration.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SIGIL_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sigil")
	}

	config.BindEnv()
	configErr = nil
	if err := viper.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing || cfgFile != "" {
			configErr = err
		}
	}
}

// configErr holds a failure to read a configuration file until a command
// asks for its configuration.
var configErr error
