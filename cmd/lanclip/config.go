package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/lanclip/internal/logging"
)

const (
	envPrefix  = "LANCLIP"
	configName = "lanclip"
)

// envKeyReplacer maps flag names like poll-interval to LANCLIP_POLL_INTERVAL.
var envKeyReplacer = strings.NewReplacer("-", "_")

// configPaths lists the directories searched for lanclip.toml, first match
// wins: the user's config dir, then the system one.
func configPaths() []string {
	var dirs []string
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		dirs = append(dirs, filepath.Join(dir, configName))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", configName))
	}
	return append(dirs, filepath.Join("/etc", configName))
}

// configFile returns the explicitly requested config file: --config, else
// $LANCLIP_CONFIG. Empty means search configPaths.
func configFile(cmd *cobra.Command) string {
	if f, _ := cmd.Flags().GetString("config"); f != "" {
		return f
	}
	return os.Getenv(envPrefix + "_CONFIG")
}

// readConfig loads the config file into v. A missing file is only an error
// when it was asked for by name.
func readConfig(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		for _, dir := range configPaths() {
			v.AddConfigPath(dir)
		}
	}
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || (explicit == "" && errors.As(err, &notFound)) {
		return nil
	}
	return fmt.Errorf("config: %w", err)
}

// bindViper layers a command's settings into v. Later sources win:
// defaults, config file, LANCLIP_* env vars, flags.
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	if err := readConfig(v, configFile(cmd)); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addCommonFlags adds --config to cmd and, for long-running commands, the
// logging flags read by setupLogging.
func addCommonFlags(cmd *cobra.Command, daemon bool) {
	f := cmd.Flags()
	f.String("config", "", "path to lanclip.toml (default: search "+strings.Join(configPaths(), ", ")+")")
	if !daemon {
		return
	}
	f.Bool("no-background", false, "run interactively: colored logs at debug level")
	f.String("log-format", "auto", "log format: auto|text|json")
	f.String("log-level", "", "log level: debug|info|warn|error (default: info, debug when interactive)")
}

// setupLogging configures slog from the logging flags.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	resolveLogging(interactive, v.GetString("log-format"), v.GetString("log-level"))
}
