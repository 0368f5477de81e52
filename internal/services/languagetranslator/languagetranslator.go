// Package languagetranslator is the Language Translator V3 client.
package languagetranslator

import (
	"context"
	"net/http"

	"github.com/watson-developer-cloud/go-sdk/internal/service"
	"github.com/watson-developer-cloud/go-sdk/internal/services"
)

var (
	translateMethod = service.Method{
		Service:    "LanguageTranslator",
		Name:       "Translate",
		HTTPMethod: http.MethodPost,
		Path:       "/v3/translate",
		Required:   []string{"text"},
		BodyParams: []string{"text", "model_id", "source", "target"},
	}
	listModelsMethod = service.Method{
		Service:     "LanguageTranslator",
		Name:        "ListModels",
		HTTPMethod:  http.MethodGet,
		Path:        "/v3/models",
		QueryParams: []string{"source", "target", "default"},
	}
	getModelMethod = service.Method{
		Service:    "LanguageTranslator",
		Name:       "GetModel",
		HTTPMethod: http.MethodGet,
		Path:       "/v3/models/{model_id}",
		Required:   []string{"model_id"},
		PathParams: []string{"model_id"},
	}
)

// V3 translates text between languages.
type V3 struct {
	*service.BaseService
}

// New creates a client. opts.Version is required.
func New(opts service.Options) (*V3, error) {
	base, err := services.Open(services.LanguageTranslator, opts)
	if err != nil {
		return nil, err
	}
	return &V3{BaseService: base}, nil
}

// TranslateParams are the inputs to Translate. Either ModelID or a
// Source and Target pair selects the model.
type TranslateParams struct {
	Text    []string `json:"text" url:"-" validate:"required"`
	ModelID string   `json:"model_id,omitempty" url:"-"`
	Source  string   `json:"source,omitempty" url:"-" validate:"omitempty,min=2"`
	Target  string   `json:"target,omitempty" url:"-" validate:"omitempty,min=2"`
}

// Translation is one translated segment.
type Translation struct {
	Translation string `json:"translation"`
}

// TranslationResult is the Translate response.
type TranslationResult struct {
	WordCount      int           `json:"word_count"`
	CharacterCount int           `json:"character_count"`
	Translations   []Translation `json:"translations"`
}

// Translate translates every entry of Text.
func (s *V3) Translate(ctx context.Context, params *TranslateParams) (*TranslationResult, error) {
	var out TranslationResult
	if _, err := s.CallInto(ctx, translateMethod, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListModelsParams filter ListModels.
type ListModelsParams struct {
	Source  string `url:"source,omitempty" json:"-"`
	Target  string `url:"target,omitempty" json:"-"`
	Default *bool  `url:"default,omitempty" json:"-"`
}

// TranslationModel describes one model.
type TranslationModel struct {
	ModelID      string `json:"model_id"`
	Name         string `json:"name,omitempty"`
	Source       string `json:"source,omitempty"`
	Target       string `json:"target,omitempty"`
	BaseModelID  string `json:"base_model_id,omitempty"`
	Domain       string `json:"domain,omitempty"`
	Customizable bool   `json:"customizable,omitempty"`
	Default      bool   `json:"default_model,omitempty"`
	Owner        string `json:"owner,omitempty"`
	Status       string `json:"status,omitempty"`
}

// TranslationModels is the ListModels response.
type TranslationModels struct {
	Models []TranslationModel `json:"models"`
}

// ListModels lists the models available to the instance. params may be nil.
func (s *V3) ListModels(ctx context.Context, params *ListModelsParams) (*TranslationModels, error) {
	var out TranslationModels
	if _, err := s.CallInto(ctx, listModelsMethod, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetModelParams identify one model.
type GetModelParams struct {
	ModelID string `url:"model_id" json:"-" validate:"required"`
}

// GetModel fetches one model's details.
func (s *V3) GetModel(ctx context.Context, params *GetModelParams) (*TranslationModel, error) {
	var out TranslationModel
	if _, err := s.CallInto(ctx, getModelMethod, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
