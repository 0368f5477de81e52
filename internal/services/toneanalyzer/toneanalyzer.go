// Package toneanalyzer is the Tone Analyzer V3 client.
package toneanalyzer

import (
	"context"
	"net/http"
	"strings"

	"github.com/watson-developer-cloud/go-sdk/internal/service"
	"github.com/watson-developer-cloud/go-sdk/internal/services"
)

// Content types accepted by Tone.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "text/plain"
	ContentTypeHTML = "text/html"
)

var toneMethod = service.Method{
	Service:     "ToneAnalyzer",
	Name:        "Tone",
	HTTPMethod:  http.MethodPost,
	Path:        "/v3/tone",
	Required:    []string{"tone_input", "content_type"},
	QueryParams: []string{"sentences", "tones"},
}

// V3 analyzes emotional and language tones in text.
type V3 struct {
	*service.BaseService
}

// New creates a client. opts.Version is required.
func New(opts service.Options) (*V3, error) {
	base, err := services.Open(services.ToneAnalyzer, opts)
	if err != nil {
		return nil, err
	}
	return &V3{BaseService: base}, nil
}

// ToneParams are the inputs to Tone.
type ToneParams struct {
	// Text is sent as {"text": ...} for JSON, or verbatim otherwise.
	Text string `json:"tone_input" url:"-" validate:"required"`
	// ContentType defaults to application/json.
	ContentType string `json:"content_type" url:"-"`

	Sentences *bool    `url:"sentences,omitempty" json:"-"`
	Tones     []string `url:"tones,omitempty" json:"-"`

	ContentLanguage string `url:"-" json:"-"`
	AcceptLanguage  string `url:"-" json:"-"`
}

// ToneScore is one detected tone.
type ToneScore struct {
	Score    float64 `json:"score"`
	ToneID   string  `json:"tone_id"`
	ToneName string  `json:"tone_name"`
}

// DocumentAnalysis is the document-level result.
type DocumentAnalysis struct {
	Tones   []ToneScore `json:"tones,omitempty"`
	Warning string      `json:"warning,omitempty"`
}

// SentenceAnalysis is the result for one sentence.
type SentenceAnalysis struct {
	SentenceID int         `json:"sentence_id"`
	Text       string      `json:"text"`
	Tones      []ToneScore `json:"tones,omitempty"`
}

// ToneAnalysis is the Tone response.
type ToneAnalysis struct {
	DocumentTone  DocumentAnalysis   `json:"document_tone"`
	SentencesTone []SentenceAnalysis `json:"sentences_tone,omitempty"`
}

// Tone analyzes the tone of the full document and, unless Sentences is
// false, each sentence.
func (s *V3) Tone(ctx context.Context, params *ToneParams) (*ToneAnalysis, error) {
	if params != nil && params.ContentType == "" {
		p := *params
		p.ContentType = ContentTypeJSON
		params = &p
	}
	req, err := toneMethod.Request(params)
	if err != nil {
		return nil, err
	}
	if params != nil && params.Text != "" {
		if isJSON(params.ContentType) {
			req.Body = map[string]string{"text": params.Text}
		} else {
			req.RawBody = strings.NewReader(params.Text)
		}
		req.ContentType = params.ContentType
		if params.ContentLanguage != "" {
			req.SetHeader("Content-Language", params.ContentLanguage)
		}
		if params.AcceptLanguage != "" {
			req.SetHeader("Accept-Language", params.AcceptLanguage)
		}
	}

	resp, err := s.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}
	var out ToneAnalysis
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func isJSON(contentType string) bool {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mt), ContentTypeJSON)
}
