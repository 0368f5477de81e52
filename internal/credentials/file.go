package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/subosito/gotenv"
)

// LocateFile returns the credentials file to use, or "" when none exists.
//
// When IBM_CREDENTIALS_FILE is set it may name the file itself or a directory
// holding ibm-credentials.env; a pointer to nothing disables the file source.
// Otherwise homeDir and then workDir are searched for ibm-credentials.env.
func LocateFile(env Environment, homeDir, workDir string) string {
	if given := env.Get(EnvCredentialsFile); given != "" {
		if isFile(given) {
			return given
		}
		if p := constructFilepath(given); isFile(p) {
			return p
		}
		return ""
	}
	for _, dir := range []string{homeDir, workDir} {
		if dir == "" {
			continue
		}
		if p := constructFilepath(dir); isFile(p) {
			return p
		}
	}
	return ""
}

// constructFilepath ensures path ends with the credentials file name.
func constructFilepath(path string) string {
	if strings.HasSuffix(path, CredentialsFileName) {
		return path
	}
	return filepath.Join(path, CredentialsFileName)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ReadFile parses a dotenv-style credentials file. Keys are upper-cased so
// lookups by service prefix are case-insensitive.
func ReadFile(path string) (map[string]string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from IBM_CREDENTIALS_FILE or well-known locations
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parsed, err := gotenv.StrictParse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	values := make(map[string]string, len(parsed))
	for k, v := range parsed {
		values[strings.ToUpper(k)] = v
	}
	return values, nil
}
