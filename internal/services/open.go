package services

import (
	"github.com/watson-developer-cloud/go-sdk/internal/service"
	sdkerrors "github.com/watson-developer-cloud/go-sdk/internal/sdk/errors"
)

// Open builds the base service for a catalog entry. Versioned services
// refuse to start without a version date.
func Open(name string, opts service.Options) (*service.BaseService, error) {
	if opts.Version == "" {
		return nil, sdkerrors.ErrConfiguration("Argument error: version was not specified")
	}
	if opts.DefaultURL == "" {
		opts.DefaultURL = DefaultURL(name)
	}
	return service.New(name, opts)
}
