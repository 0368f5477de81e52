package credentials

import (
	"io"
	"log/slog"
	"os"
	"strings"

	sdkerrors "github.com/watson-developer-cloud/go-sdk/internal/sdk/errors"
)

// DefaultBasicAuthPrefixes are password prefixes that keep username "apikey"
// on basic auth instead of reinterpreting the password as an API key.
var DefaultBasicAuthPrefixes = []string{"icp-"}

// DefaultIAMURL is the IAM token endpoint used when none is configured.
const DefaultIAMURL = "https://iam.bluemix.net/identity/token"

// apikeyUsername marks a password as an API key.
const apikeyUsername = "apikey"

const badCharsMessage = "Revise these credentials - they should not start or end with curly brackets or quotes. " +
	"Please remove any surrounding {, }, or \" characters."

// Resolver merges credential sources for a service.
type Resolver struct {
	env               Environment
	homeDir           string
	workDir           string
	defaultURL        string
	basicAuthPrefixes []string
	logger            *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHomeDir overrides the home directory searched for the credentials file.
func WithHomeDir(dir string) ResolverOption {
	return func(r *Resolver) { r.homeDir = dir }
}

// WithWorkDir overrides the working directory searched for the credentials file.
func WithWorkDir(dir string) ResolverOption {
	return func(r *Resolver) { r.workDir = dir }
}

// WithDefaultURL sets the service URL used when no source provides one.
func WithDefaultURL(url string) ResolverOption {
	return func(r *Resolver) { r.defaultURL = url }
}

// WithBasicAuthPrefixes replaces DefaultBasicAuthPrefixes.
func WithBasicAuthPrefixes(prefixes ...string) ResolverOption {
	return func(r *Resolver) { r.basicAuthPrefixes = prefixes }
}

// WithLogger sets the logger used for skipped-source warnings.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver over env. Home and working directories
// default to the process values.
func NewResolver(env Environment, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		env:               env,
		basicAuthPrefixes: DefaultBasicAuthPrefixes,
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if home, err := os.UserHomeDir(); err == nil {
		r.homeDir = home
	}
	if wd, err := os.Getwd(); err == nil {
		r.workDir = wd
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// candidate is one source's contribution, in precedence order.
type candidate struct {
	source Source
	fields fields
}

// Resolve determines the credentials for serviceName. Sources are consulted
// in order: explicit, credentials file, environment, registry. The first
// source carrying any auth material supplies all auth fields. URL and IAM
// URL are resolved per field with the same order.
func (r *Resolver) Resolve(serviceName string, explicit Options) (*Credentials, error) {
	candidates := []candidate{
		{SourceExplicit, fields{
			Username:           explicit.Username,
			Password:           explicit.Password,
			APIKey:             explicit.APIKey,
			IAMAPIKey:          explicit.IAMAPIKey,
			URL:                explicit.URL,
			IAMURL:             explicit.IAMURL,
			AccessToken:        explicit.AccessToken,
			AuthorizationToken: explicit.AuthorizationToken,
		}},
		{SourceFile, r.fromFile(serviceName)},
		{SourceEnv, r.fromEnv(serviceName)},
		{SourceRegistry, r.fromRegistry(serviceName)},
	}

	creds := &Credentials{UseUnauthenticated: explicit.UseUnauthenticated}

	for _, c := range candidates {
		if !c.fields.yields() {
			continue
		}
		f := c.fields
		creds.Source = c.source
		creds.Username = f.Username
		creds.Password = f.Password
		creds.APIKey = f.apiKey()
		creds.AccessToken = f.AccessToken
		creds.AuthorizationToken = f.AuthorizationToken
		break
	}

	for _, c := range candidates {
		if c.fields.URL != "" {
			creds.URL = c.fields.URL
			creds.URLSource = c.source
			break
		}
	}
	if creds.URL == "" && r.defaultURL != "" {
		creds.URL = r.defaultURL
		creds.URLSource = SourceDefault
	}
	creds.URL = strings.TrimRight(creds.URL, "/")

	for _, c := range candidates {
		if c.fields.IAMURL != "" {
			creds.IAMURL = c.fields.IAMURL
			break
		}
	}
	if creds.IAMURL == "" {
		creds.IAMURL = DefaultIAMURL
	}
	creds.IAMURL = strings.TrimRight(creds.IAMURL, "/")

	r.interpretAPIKeyUsername(creds)

	if err := r.validate(creds); err != nil {
		return nil, err
	}
	if creds.UseUnauthenticated {
		creds.Source = SourceNone
	}
	return creds, nil
}

// interpretAPIKeyUsername turns username "apikey" into an API key credential
// unless the password carries a basic-auth prefix.
func (r *Resolver) interpretAPIKeyUsername(c *Credentials) {
	if c.Username != apikeyUsername || c.Password == "" || c.APIKey != "" {
		return
	}
	for _, p := range r.basicAuthPrefixes {
		if strings.HasPrefix(c.Password, p) {
			return
		}
	}
	c.APIKey = c.Password
	c.Username = ""
	c.Password = ""
}

func (r *Resolver) validate(c *Credentials) error {
	if c.UseUnauthenticated {
		return validateURL(c.URL)
	}
	hasToken := c.APIKey != "" || c.AccessToken != "" || c.AuthorizationToken != ""
	if !hasToken {
		switch {
		case c.Username == "" && c.Password == "":
			return sdkerrors.ErrConfiguration(
				"Insufficient credentials provided. Please set username and password, an API key, " +
					"or an access token, unless use_unauthenticated is set")
		case c.Password == "":
			return sdkerrors.ErrConfiguration("Missing required parameters: password")
		case c.Username == "":
			return sdkerrors.ErrConfiguration("Missing required parameters: username")
		}
	}

	if err := validateURL(c.URL); err != nil {
		return err
	}
	for _, v := range []string{c.Username, c.Password, c.APIKey, c.IAMURL, c.AccessToken, c.AuthorizationToken} {
		if hasBadEnds(v) {
			return sdkerrors.ErrConfiguration(badCharsMessage)
		}
	}
	return nil
}

// validateURL requires a service URL from some source or the default.
func validateURL(u string) error {
	if u == "" {
		return sdkerrors.ErrConfiguration("Missing required parameters: url")
	}
	if hasBadEnds(u) {
		return sdkerrors.ErrConfiguration(badCharsMessage)
	}
	return nil
}

// hasBadEnds reports whether v starts or ends with a curly bracket or quote,
// a common copy-paste mistake from JSON credential blobs.
func hasBadEnds(v string) bool {
	if v == "" {
		return false
	}
	return strings.HasPrefix(v, "{") || strings.HasPrefix(v, `"`) ||
		strings.HasSuffix(v, "}") || strings.HasSuffix(v, `"`)
}

// File returns the credentials file this resolver reads, or "".
func (r *Resolver) File() string {
	return LocateFile(r.env, r.homeDir, r.workDir)
}

func (r *Resolver) fromFile(serviceName string) fields {
	path := r.File()
	if path == "" {
		return fields{}
	}
	values, err := ReadFile(path)
	if err != nil {
		r.logger.Warn("skipping credentials file", "path", path, "error", err)
		return fields{}
	}
	r.logger.Debug("read credentials file", "path", path)
	return fieldsFromKeys(Prefix(serviceName), func(k string) string { return values[k] })
}

func (r *Resolver) fromEnv(serviceName string) fields {
	return fieldsFromKeys(Prefix(serviceName), r.env.Get)
}

func (r *Resolver) fromRegistry(serviceName string) fields {
	blob := r.env.Get(EnvServiceRegistry)
	if blob == "" {
		return fields{}
	}
	services, err := parseRegistry(blob)
	if err != nil {
		r.logger.Warn("skipping service registry", "error", err)
		return fields{}
	}
	f, _ := lookupRegistry(services, serviceName)
	return f
}
