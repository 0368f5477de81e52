package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/config"
	"github.com/watson-developer-cloud/go-sdk/internal/hostutil"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
)

// configKeys are the keys config set accepts. "versions.<service>" is
// handled separately.
var configKeys = []string{
	"disable_ssl",
	"format",
	"iam_url",
	"keyring",
	"learning_opt_out",
	"service",
	"stats",
	"timeout",
	"token_dir",
	"url",
	"verbose",
}

// authorityKeys are only honored from the global config.
var authorityKeys = map[string]bool{"url": true, "iam_url": true, "disable_ssl": true}

// configEntry is one effective value with its origin.
type configEntry struct {
	Value  any    `json:"value"`
	Source string `json:"source"`
}

// NewConfigCmd creates the config command for managing configuration.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage watson configuration.

Configuration is loaded from multiple sources with the following precedence:
  flags > env > --config/WATSON_CONFIG > local > repo > global > system > defaults

Config locations:
  - System: /etc/watson/config.json
  - Global: ~/.config/watson/config.json
  - Repo:   <git-root>/.watson/config.json
  - Local:  .watson/config.json

Credentials are never read from config files. Use ibm-credentials.env or
<SERVICE>_* environment variables for those.`,
		RunE: runConfigShow,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show effective configuration",
			Long:  "Display the current effective configuration with source information.",
			Args:  cobra.NoArgs,
			RunE:  runConfigShow,
		},
		newConfigInitCmd(),
		newConfigSetCmd(),
		newConfigUnsetCmd(),
	)
	return cmd
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	app, err := requireApp(cmd)
	if err != nil {
		return err
	}
	cfg := app.Config

	entry := func(key string, value any) configEntry {
		source := cfg.Sources[key]
		if source == "" {
			source = string(config.SourceDefault)
		}
		return configEntry{Value: value, Source: source}
	}

	data := map[string]configEntry{
		"format":           entry("format", cfg.Format),
		"timeout":          entry("timeout", cfg.Timeout),
		"disable_ssl":      entry("disable_ssl", cfg.DisableSSL),
		"learning_opt_out": entry("learning_opt_out", cfg.LearningOptOut),
		"keyring":          entry("keyring", cfg.Keyring),
		"token_dir":        entry("token_dir", cfg.TokenDir),
	}
	if cfg.Service != "" {
		data["service"] = entry("service", cfg.Service)
	}
	if cfg.URL != "" {
		data["url"] = entry("url", cfg.URL)
	}
	if cfg.IAMURL != "" {
		data["iam_url"] = entry("iam_url", cfg.IAMURL)
	}
	if cfg.Stats != nil {
		data["stats"] = entry("stats", *cfg.Stats)
	}
	if cfg.Verbose != nil {
		data["verbose"] = entry("verbose", *cfg.Verbose)
	}
	if len(cfg.Versions) > 0 {
		data["versions"] = entry("versions", cfg.Versions)
	}

	return app.OK(data,
		output.WithSummary("Effective configuration"),
		output.WithBreadcrumbs(output.Breadcrumb{
			Action:      "set",
			Cmd:         "watson config set <key> <value>",
			Description: "Set config value",
		}),
	)
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize local config file",
		Long:  "Create a local .watson/config.json file in the current directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			path := localConfigFile()

			if _, err := os.Stat(path); err == nil {
				return app.OK(map[string]any{
					"exists": true,
					"path":   path,
				}, output.WithSummary(fmt.Sprintf("Config file already exists: %s", path)))
			}
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := atomicWriteFile(path, []byte("{}\n")); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}

			return app.OK(map[string]any{
				"created": true,
				"path":    path,
			},
				output.WithSummary(fmt.Sprintf("Created: %s", path)),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "set",
					Cmd:         "watson config set service <name>",
					Description: "Set the default service",
				}),
			)
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the local or global config file.

Valid keys: ` + strings.Join(configKeys, ", ") + `, versions.<service>

url, iam_url and disable_ssl decide where credentials are sent and are only
read from the global config, so they require --global.`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return configKeys, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			key, raw := args[0], args[1]

			value, err := parseConfigValue(key, raw)
			if err != nil {
				return err
			}
			if authorityKeys[key] && !global {
				return output.ErrUsageHint(fmt.Sprintf("%s can only be set globally", key), "Add --global")
			}

			path, scope := configTarget(global)
			data, err := readConfigFile(path)
			if err != nil {
				return err
			}
			if service, ok := strings.CutPrefix(key, "versions."); ok {
				versions, _ := data["versions"].(map[string]any)
				if versions == nil {
					versions = make(map[string]any)
				}
				versions[service] = value
				data["versions"] = versions
			} else {
				data[key] = value
			}
			if err := writeConfigFile(path, data); err != nil {
				return err
			}

			return app.OK(map[string]any{
				"key":    key,
				"value":  value,
				"scope":  scope,
				"path":   path,
				"status": "set",
			},
				output.WithSummary(fmt.Sprintf("Set %s = %v (%s)", key, value, scope)),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "show",
					Cmd:         "watson config show",
					Description: "View config",
				}),
			)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Set in global config (~/.config/watson/)")
	return cmd
}

func newConfigUnsetCmd() *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "unset <key>",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value from the local or global config file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			key := args[0]
			path, scope := configTarget(global)

			if _, err := os.Stat(path); err != nil {
				return app.OK(map[string]any{
					"key":    key,
					"status": "not_found",
				}, output.WithSummary(fmt.Sprintf("Config file not found: %s", path)))
			}
			data, err := readConfigFile(path)
			if err != nil {
				return err
			}

			removed := false
			if service, ok := strings.CutPrefix(key, "versions."); ok {
				if versions, _ := data["versions"].(map[string]any); versions != nil {
					if _, removed = versions[service]; removed {
						delete(versions, service)
						if len(versions) == 0 {
							delete(data, "versions")
						}
					}
				}
			} else if _, removed = data[key]; removed {
				delete(data, key)
			}
			if !removed {
				return app.OK(map[string]any{
					"key":    key,
					"status": "not_set",
				}, output.WithSummary(fmt.Sprintf("Key not set: %s", key)))
			}

			if err := writeConfigFile(path, data); err != nil {
				return err
			}
			return app.OK(map[string]any{
				"key":    key,
				"scope":  scope,
				"status": "unset",
			},
				output.WithSummary(fmt.Sprintf("Unset %s (%s)", key, scope)),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "show",
					Cmd:         "watson config show",
					Description: "View config",
				}),
			)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "Unset from global config")
	return cmd
}

// parseConfigValue validates raw for key and converts it to the JSON type
// the loader expects.
func parseConfigValue(key, raw string) (any, error) {
	if _, ok := strings.CutPrefix(key, "versions."); ok {
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return nil, output.ErrUsage("version must be a date like 2017-09-21")
		}
		return raw, nil
	}

	switch key {
	case "disable_ssl", "keyring", "learning_opt_out", "stats":
		b, ok := parseBoolFlag(raw)
		if !ok {
			return nil, output.ErrUsage(fmt.Sprintf("%s must be true/false (or 1/0)", key))
		}
		return b, nil
	case "verbose":
		level, err := strconv.Atoi(raw)
		if err != nil || level < 0 || level > 2 {
			return nil, output.ErrUsage("verbose must be 0, 1, or 2")
		}
		return level, nil
	case "timeout":
		if _, err := time.ParseDuration(raw); err != nil {
			return nil, output.ErrUsage(fmt.Sprintf("timeout must be a duration like 30s: %v", err))
		}
		return raw, nil
	case "format":
		if _, err := output.ParseFormat(raw); err != nil {
			return nil, err
		}
		return raw, nil
	case "url", "iam_url":
		return hostutil.Normalize(raw), nil
	case "service", "token_dir":
		return raw, nil
	}

	keys := append([]string(nil), configKeys...)
	sort.Strings(keys)
	return nil, output.ErrUsage(fmt.Sprintf("Invalid config key %q. Valid keys: %s, versions.<service>", key, strings.Join(keys, ", ")))
}

func parseBoolFlag(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

func localConfigFile() string {
	return filepath.Join(".watson", "config.json")
}

func configTarget(global bool) (path, scope string) {
	if global {
		return filepath.Join(config.GlobalConfigDir(), "config.json"), "global"
	}
	return localConfigFile(), "local"
}

// readConfigFile loads a config file as a generic map. A missing file is
// empty; a malformed one is an error so set never clobbers it.
func readConfigFile(path string) (map[string]any, error) {
	data := make(map[string]any)
	raw, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config location
	if os.IsNotExist(err) {
		return data, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("config file %s is not valid JSON: %w", path, err)
	}
	return data, nil
}

func writeConfigFile(path string, data map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomicWriteFile(path, append(out, '\n')); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// atomicWriteFile writes data to path through a 0600 temp file and rename.
func atomicWriteFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	err = os.Rename(tmpPath, path)
	if err != nil && runtime.GOOS == "windows" {
		// Rename does not replace an existing file on Windows.
		_ = os.Remove(path)
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		os.Remove(tmpPath)
	}
	return err
}
