package sdk

// StoredToken holds IAM token data persisted between processes.
type StoredToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	Expiration   int64  `json:"expiration"`
}

// TokenStore provides persistent storage for IAM tokens.
// Implementations can use keychain, file storage, or other backends.
type TokenStore interface {
	// Load retrieves the token stored under key.
	Load(key string) (*StoredToken, error)

	// Save stores the token under key.
	Save(key string, token *StoredToken) error

	// Delete removes the token stored under key.
	Delete(key string) error
}

// StoreError indicates a token storage error.
type StoreError struct {
	Operation string // "load", "save", "delete"
	Key       string
	Message   string
	Cause     error
}

func (e *StoreError) Error() string {
	msg := e.Operation + " token"
	if e.Key != "" {
		msg += " for " + e.Key
	}
	if e.Message != "" {
		msg += ": " + e.Message
	} else if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
