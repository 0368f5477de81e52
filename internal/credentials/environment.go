package credentials

import (
	"os"
	"strings"
	"unicode"
)

// Well-known environment variables.
const (
	EnvCredentialsFile = "IBM_CREDENTIALS_FILE"
	EnvServiceRegistry = "VCAP_SERVICES"

	// CredentialsFileName is the file looked up in directories.
	CredentialsFileName = "ibm-credentials.env"
)

// Per-service key suffixes, appended to the service prefix.
const (
	suffixUsername  = "_USERNAME"
	suffixPassword  = "_PASSWORD"
	suffixURL       = "_URL"
	suffixAPIKey    = "_APIKEY"
	suffixIAMAPIKey = "_IAM_APIKEY"
	suffixIAMURL    = "_IAM_URL"
)

// Environment is an explicit snapshot of environment variables.
// The resolver never reads process state on its own.
type Environment map[string]string

// EnvironmentFromOS snapshots the current process environment.
func EnvironmentFromOS() Environment {
	env := make(Environment)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	return env
}

// Get returns the value for key, or "" when unset.
func (e Environment) Get(key string) string {
	if e == nil {
		return ""
	}
	return e[key]
}

// Prefix derives the environment variable prefix for a service name:
// upper-cased, with every non-alphanumeric character replaced by '_'.
//
//	speech-to-text -> SPEECH_TO_TEXT
func Prefix(serviceName string) string {
	var b strings.Builder
	b.Grow(len(serviceName))
	for _, r := range serviceName {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// fields is one source's raw credential values before validation.
type fields struct {
	Username           string
	Password           string
	APIKey             string
	IAMAPIKey          string
	URL                string
	IAMURL             string
	AccessToken        string
	AuthorizationToken string
}

// yields reports whether the source carries any authentication material.
func (f fields) yields() bool {
	return f.Username != "" || f.Password != "" || f.APIKey != "" || f.IAMAPIKey != "" ||
		f.AccessToken != "" || f.AuthorizationToken != ""
}

// apiKey returns the effective API key, preferring the IAM-specific one.
func (f fields) apiKey() string {
	if f.IAMAPIKey != "" {
		return f.IAMAPIKey
	}
	return f.APIKey
}

// fieldsFromKeys reads the per-service keys for prefix out of lookup.
func fieldsFromKeys(prefix string, lookup func(string) string) fields {
	return fields{
		Username:  lookup(prefix + suffixUsername),
		Password:  lookup(prefix + suffixPassword),
		URL:       lookup(prefix + suffixURL),
		APIKey:    lookup(prefix + suffixAPIKey),
		IAMAPIKey: lookup(prefix + suffixIAMAPIKey),
		IAMURL:    lookup(prefix + suffixIAMURL),
	}
}
