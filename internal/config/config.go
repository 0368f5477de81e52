// Package config provides layered configuration loading for the watson CLI.
// Service credentials are never read from these files; they come from the
// credential resolver's own sources.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/watson-developer-cloud/go-sdk/internal/hostutil"
)

// Config holds the resolved CLI configuration.
type Config struct {
	// Service is the default service name for commands that need one.
	Service string `json:"service"`
	// URL and IAMURL override the service and token endpoints. Both decide
	// where credentials are sent.
	URL    string `json:"url,omitempty"`
	IAMURL string `json:"iam_url,omitempty"`

	// Versions maps a service name to the version date sent with its calls.
	Versions map[string]string `json:"versions,omitempty"`

	Format         string `json:"format"`
	Timeout        string `json:"timeout"`
	DisableSSL     bool   `json:"disable_ssl"`
	LearningOptOut bool   `json:"learning_opt_out"`
	Keyring        bool   `json:"keyring"`
	TokenDir       string `json:"token_dir"`

	Stats   *bool `json:"stats,omitempty"`
	Verbose *int  `json:"verbose,omitempty"`

	// Sources tracks where each value came from.
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault  Source = "default"
	SourceSystem   Source = "system"
	SourceGlobal   Source = "global"
	SourceRepo     Source = "repo"
	SourceLocal    Source = "local"
	SourceExplicit Source = "explicit"
	SourceEnv      Source = "env"
	SourceFlag     Source = "flag"
)

// DefaultTimeout is the per-request HTTP timeout.
const DefaultTimeout = 60 * time.Second

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	Service    string
	URL        string
	IAMURL     string
	Format     string
	Timeout    string
	Insecure   bool
	NoKeyring  bool
	ConfigFile string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Format:   "auto",
		Timeout:  DefaultTimeout.String(),
		Keyring:  true,
		TokenDir: GlobalConfigDir(),
		Sources:  make(map[string]string),
	}
}

// Load loads configuration from all sources.
// Precedence: flags > env > WATSON_CONFIG file > local > repo > global > system > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, systemConfigPath(), SourceSystem)
	loadFromFile(cfg, globalConfigPath(), SourceGlobal)

	repoPath := repoConfigPath()
	if repoPath != "" {
		loadFromFile(cfg, repoPath, SourceRepo)
	}
	for _, path := range localConfigPaths(repoPath) {
		loadFromFile(cfg, path, SourceLocal)
	}

	explicit := overrides.ConfigFile
	if explicit == "" {
		explicit = os.Getenv("WATSON_CONFIG")
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("config file %s: %w", explicit, err)
		}
		loadFromFile(cfg, explicit, SourceExplicit)
	}

	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	if _, err := cfg.TimeoutDuration(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config locations
	if err != nil {
		return
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	// Authority keys decide where credentials and tokens are sent. A config
	// dropped into a cloned repo or parent directory must not redirect them.
	untrusted := source == SourceLocal || source == SourceRepo

	for _, key := range []string{"url", "iam_url"} {
		v, ok := fileCfg[key].(string)
		if !ok || v == "" {
			continue
		}
		if untrusted {
			fmt.Fprintf(os.Stderr, "warning: ignoring %s %q from %s config at %s (authority keys are not trusted from local/repo config)\n", key, v, source, path)
			continue
		}
		if key == "url" {
			cfg.URL = hostutil.Normalize(v)
		} else {
			cfg.IAMURL = hostutil.Normalize(v)
		}
		cfg.Sources[key] = string(source)
	}

	if v, ok := fileCfg["service"].(string); ok && v != "" {
		cfg.Service = v
		cfg.Sources["service"] = string(source)
	}
	if v, ok := fileCfg["format"].(string); ok && v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(source)
	}
	if v := getDuration(fileCfg, "timeout"); v != "" {
		cfg.Timeout = v
		cfg.Sources["timeout"] = string(source)
	}
	if v, ok := fileCfg["disable_ssl"].(bool); ok {
		if untrusted && v {
			fmt.Fprintf(os.Stderr, "warning: ignoring disable_ssl from %s config at %s\n", source, path)
		} else {
			cfg.DisableSSL = v
			cfg.Sources["disable_ssl"] = string(source)
		}
	}
	if v, ok := fileCfg["learning_opt_out"].(bool); ok {
		cfg.LearningOptOut = v
		cfg.Sources["learning_opt_out"] = string(source)
	}
	if v, ok := fileCfg["keyring"].(bool); ok {
		cfg.Keyring = v
		cfg.Sources["keyring"] = string(source)
	}
	if v, ok := fileCfg["token_dir"].(string); ok && v != "" {
		cfg.TokenDir = v
		cfg.Sources["token_dir"] = string(source)
	}
	if v, ok := fileCfg["stats"].(bool); ok {
		cfg.Stats = &v
		cfg.Sources["stats"] = string(source)
	}
	if v, ok := fileCfg["verbose"]; ok {
		if fv, ok := v.(float64); ok {
			iv := int(fv)
			if iv >= 0 && iv <= 2 && fv == float64(iv) {
				cfg.Verbose = &iv
				cfg.Sources["verbose"] = string(source)
			}
		}
	}
	if v, ok := fileCfg["versions"].(map[string]any); ok {
		for name, raw := range v {
			date, ok := raw.(string)
			if !ok || date == "" {
				continue
			}
			if cfg.Versions == nil {
				cfg.Versions = make(map[string]string)
			}
			cfg.Versions[name] = date
		}
		cfg.Sources["versions"] = string(source)
	}
}

// LoadFromEnv applies WATSON_* environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("WATSON_SERVICE"); v != "" {
		cfg.Service = v
		cfg.Sources["service"] = string(SourceEnv)
	}
	if v := os.Getenv("WATSON_FORMAT"); v != "" {
		cfg.Format = v
		cfg.Sources["format"] = string(SourceEnv)
	}
	if v := os.Getenv("WATSON_TIMEOUT"); v != "" {
		cfg.Timeout = v
		cfg.Sources["timeout"] = string(SourceEnv)
	}
	if v := os.Getenv("WATSON_DISABLE_SSL"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.DisableSSL = b
			cfg.Sources["disable_ssl"] = string(SourceEnv)
		}
	}
	if v := os.Getenv("WATSON_LEARNING_OPT_OUT"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.LearningOptOut = b
			cfg.Sources["learning_opt_out"] = string(SourceEnv)
		}
	}
	if v := os.Getenv("WATSON_NO_KEYRING"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.Keyring = !b
			cfg.Sources["keyring"] = string(SourceEnv)
		}
	}
	if v := os.Getenv("WATSON_TOKEN_DIR"); v != "" {
		cfg.TokenDir = v
		cfg.Sources["token_dir"] = string(SourceEnv)
	}
	if v := os.Getenv("WATSON_STATS"); v != "" {
		if b, ok := parseEnvBool(v); ok {
			cfg.Stats = &b
			cfg.Sources["stats"] = string(SourceEnv)
		}
	}
}

// parseEnvBool parses a boolean environment variable strictly.
// Unrecognized values report false in the second result and are ignored.
func parseEnvBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	default:
		return false, false
	}
}

// getDuration accepts either a duration string ("30s") or a number of
// seconds.
func getDuration(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		if v <= 0 {
			return ""
		}
		return (time.Duration(v * float64(time.Second))).String()
	default:
		return ""
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.Service != "" {
		cfg.Service = o.Service
		cfg.Sources["service"] = string(SourceFlag)
	}
	if o.URL != "" {
		cfg.URL = hostutil.Normalize(o.URL)
		cfg.Sources["url"] = string(SourceFlag)
	}
	if o.IAMURL != "" {
		cfg.IAMURL = hostutil.Normalize(o.IAMURL)
		cfg.Sources["iam_url"] = string(SourceFlag)
	}
	if o.Format != "" {
		cfg.Format = o.Format
		cfg.Sources["format"] = string(SourceFlag)
	}
	if o.Timeout != "" {
		cfg.Timeout = o.Timeout
		cfg.Sources["timeout"] = string(SourceFlag)
	}
	if o.Insecure {
		cfg.DisableSSL = true
		cfg.Sources["disable_ssl"] = string(SourceFlag)
	}
	if o.NoKeyring {
		cfg.Keyring = false
		cfg.Sources["keyring"] = string(SourceFlag)
	}
}

// TimeoutDuration parses Timeout. An empty value means DefaultTimeout.
func (cfg *Config) TimeoutDuration() (time.Duration, error) {
	if cfg.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", cfg.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid timeout %q: must be positive", cfg.Timeout)
	}
	return d, nil
}

// VersionFor returns the configured version date for service, or "".
func (cfg *Config) VersionFor(service string) string {
	if cfg.Versions == nil {
		return ""
	}
	return cfg.Versions[service]
}

// Path helpers

func systemConfigPath() string {
	return "/etc/watson/config.json"
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

func repoConfigPath() string {
	// Walk up to the nearest .git and look for .watson/config.json beside it.
	// Only directories inside $HOME are considered.
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return ""
	}
	dir = resolved
	home, _ := os.UserHomeDir()
	if resolved, err := filepath.EvalSymlinks(home); err == nil {
		home = resolved
	}
	if home != "" && !isInsideDir(dir, home) {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			cfgPath := filepath.Join(dir, ".watson", "config.json")
			if _, err := os.Stat(cfgPath); err == nil {
				return cfgPath
			}
			return ""
		}

		parent := filepath.Dir(dir)
		if parent == dir || (home != "" && dir == home) {
			return ""
		}
		dir = parent
	}
}

// isInsideDir reports whether child is parent or below it. Both paths must
// be absolute and resolved.
func isInsideDir(child, parent string) bool {
	if child == parent {
		return true
	}
	prefix := parent
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(child, prefix)
}

// localConfigPaths returns .watson/config.json paths between the trust
// boundary and the working directory, furthest first, excluding the repo
// config. Inside a repo the boundary is the repo root; outside one it is the
// working directory itself.
func localConfigPaths(repoConfigPath string) []string {
	dir, err := os.Getwd()
	if err != nil {
		return nil
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return nil
	}
	dir = resolved

	boundary := dir
	if repoConfigPath != "" {
		boundary = filepath.Dir(filepath.Dir(repoConfigPath))
	}
	if resolved, err := filepath.EvalSymlinks(boundary); err == nil {
		boundary = resolved
	}

	var paths []string
	for {
		cfgPath := filepath.Join(dir, ".watson", "config.json")
		if _, err := os.Stat(cfgPath); err == nil && cfgPath != repoConfigPath {
			paths = append(paths, cfgPath)
		}
		parent := filepath.Dir(dir)
		if parent == dir || dir == boundary {
			break
		}
		dir = parent
	}

	for i, j := 0, len(paths)-1; i < j; i, j = i+1, j-1 {
		paths[i], paths[j] = paths[j], paths[i]
	}
	return paths
}

// GlobalConfigDir returns $XDG_CONFIG_HOME/watson, or ~/.config/watson.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "watson")
}
