// Package credentials resolves the authentication material for one Watson
// service instance from explicit options, a credentials file, per-service
// environment variables and the VCAP_SERVICES registry blob.
package credentials

// Source indicates where a credential value came from.
type Source string

const (
	SourceNone     Source = ""
	SourceExplicit Source = "explicit"
	SourceFile     Source = "file"
	SourceEnv      Source = "env"
	SourceRegistry Source = "registry"
	SourceDefault  Source = "default"
)

// Mode is the authentication scheme a resolved credential set implies.
type Mode int

const (
	// ModeNone sends no authentication header.
	ModeNone Mode = iota
	// ModeBasic sends a precomputed Basic header.
	ModeBasic
	// ModeIAM exchanges an API key for bearer tokens.
	ModeIAM
	// ModeBearer sends a caller-managed bearer token.
	ModeBearer
	// ModeWatsonToken sends the legacy X-Watson-Authorization-Token header.
	ModeWatsonToken
)

func (m Mode) String() string {
	switch m {
	case ModeBasic:
		return "basic"
	case ModeIAM:
		return "iam"
	case ModeBearer:
		return "bearer"
	case ModeWatsonToken:
		return "watson_token"
	default:
		return "none"
	}
}

// Options are the credential fields a caller may pass explicitly.
// Any subset may be set.
type Options struct {
	Username           string
	Password           string
	APIKey             string
	IAMAPIKey          string // takes precedence over APIKey
	URL                string
	IAMURL             string
	AccessToken        string // pre-obtained bearer token
	AuthorizationToken string // legacy X-Watson-Authorization-Token
	UseUnauthenticated bool
}

// Credentials is the resolved authentication material for one service
// instance. Exactly one Mode is active.
type Credentials struct {
	Username           string
	Password           string
	APIKey             string
	URL                string
	IAMURL             string
	AccessToken        string
	AuthorizationToken string
	UseUnauthenticated bool

	// Source is where the auth fields came from.
	Source Source
	// URLSource is where URL came from.
	URLSource Source
}

// Mode returns the active authentication mode.
func (c *Credentials) Mode() Mode {
	switch {
	case c.UseUnauthenticated:
		return ModeNone
	case c.APIKey != "":
		return ModeIAM
	case c.AccessToken != "":
		return ModeBearer
	case c.AuthorizationToken != "":
		return ModeWatsonToken
	case c.Username != "" && c.Password != "":
		return ModeBasic
	default:
		return ModeNone
	}
}

// View is a redacted, normalized view of Credentials safe for display.
type View struct {
	Mode      string `json:"mode" yaml:"mode"`
	Username  string `json:"username,omitempty" yaml:"username,omitempty"`
	Password  string `json:"password,omitempty" yaml:"password,omitempty"`
	APIKey    string `json:"apikey,omitempty" yaml:"apikey,omitempty"`
	URL       string `json:"url" yaml:"url"`
	IAMURL    string `json:"iam_url,omitempty" yaml:"iam_url,omitempty"`
	Source    string `json:"source,omitempty" yaml:"source,omitempty"`
	URLSource string `json:"url_source,omitempty" yaml:"url_source,omitempty"`
}

// Redacted returns a display view with secrets masked. Bearer and legacy
// tokens are never included.
func (c *Credentials) Redacted() View {
	return View{
		Mode:      c.Mode().String(),
		Username:  c.Username,
		Password:  Mask(c.Password),
		APIKey:    Mask(c.APIKey),
		URL:       c.URL,
		IAMURL:    c.IAMURL,
		Source:    string(c.Source),
		URLSource: string(c.URLSource),
	}
}

// Mask hides all but the last four characters of a secret.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
