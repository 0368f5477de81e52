// Package services lists the Watson services this SDK ships clients for.
package services

import (
	"sort"
	"strings"
)

// Entry describes one known service.
type Entry struct {
	// Name is the credential lookup name (environment prefix, file keys,
	// VCAP_SERVICES key).
	Name string `json:"name" yaml:"name"`
	// Title is the human name.
	Title string `json:"title" yaml:"title"`
	// APIVersion is the path version segment, e.g. "v3".
	APIVersion string `json:"api_version" yaml:"api_version"`
	// DefaultURL is used when no credential source names a URL.
	DefaultURL string `json:"default_url" yaml:"default_url"`
	// DefaultVersion is the version date sent when the caller has no
	// preference.
	DefaultVersion string `json:"default_version" yaml:"default_version"`
	// Aliases are alternate names accepted by Lookup.
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

const (
	ToneAnalyzer       = "tone_analyzer"
	LanguageTranslator = "language_translator"
	Assistant          = "conversation"
)

var catalog = []Entry{
	{
		Name:           Assistant,
		Title:          "Assistant",
		APIVersion:     "v1",
		DefaultURL:     "https://gateway.watsonplatform.net/assistant/api",
		DefaultVersion: "2018-07-10",
		Aliases:        []string{"assistant"},
	},
	{
		Name:           LanguageTranslator,
		Title:          "Language Translator",
		APIVersion:     "v3",
		DefaultURL:     "https://gateway.watsonplatform.net/language-translator/api",
		DefaultVersion: "2018-05-01",
		Aliases:        []string{"translator"},
	},
	{
		Name:           ToneAnalyzer,
		Title:          "Tone Analyzer",
		APIVersion:     "v3",
		DefaultURL:     "https://gateway.watsonplatform.net/tone-analyzer/api",
		DefaultVersion: "2017-09-21",
		Aliases:        []string{"tone"},
	},
}

// All returns the catalog sorted by name.
func All() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a service by name or alias. Dashes and underscores are
// interchangeable and case is ignored.
func Lookup(name string) (Entry, bool) {
	key := normalize(name)
	for _, e := range catalog {
		if normalize(e.Name) == key {
			return e, true
		}
		for _, a := range e.Aliases {
			if normalize(a) == key {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// DefaultURL returns the default URL for a known service, or "".
func DefaultURL(name string) string {
	e, _ := Lookup(name)
	return e.DefaultURL
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
