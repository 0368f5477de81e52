package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/output"
	"github.com/watson-developer-cloud/go-sdk/internal/services"
	"github.com/watson-developer-cloud/go-sdk/internal/services/toneanalyzer"
)

// toneRow flattens one detected tone for tabular output.
type toneRow struct {
	Scope    string  `json:"scope"`
	Text     string  `json:"text,omitempty"`
	ToneName string  `json:"tone_name"`
	ToneID   string  `json:"tone_id"`
	Score    float64 `json:"score"`
}

// NewToneCmd creates the tone command.
func NewToneCmd() *cobra.Command {
	var (
		sentences   bool
		tones       []string
		contentType string
		language    string
	)

	cmd := &cobra.Command{
		Use:   "tone [text...]",
		Short: "Analyze the tone of text",
		Long: `Analyze emotional and language tones with Tone Analyzer.

Text comes from the arguments, or stdin when none are given:
  watson tone "I am so happy today"
  cat review.html | watson tone --content-type html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			text, err := textInput(cmd, args)
			if err != nil {
				return err
			}
			ct, err := toneContentType(contentType)
			if err != nil {
				return err
			}

			opts, err := app.ServiceOptions(services.ToneAnalyzer)
			if err != nil {
				return err
			}
			client, err := toneanalyzer.New(opts)
			if err != nil {
				return err
			}

			params := &toneanalyzer.ToneParams{
				Text:            text,
				ContentType:     ct,
				Tones:           tones,
				ContentLanguage: language,
			}
			if cmd.Flags().Changed("sentences") {
				params.Sentences = boolPtr(sentences)
			}
			analysis, err := client.Tone(cmd.Context(), params)
			if err != nil {
				return err
			}

			rows := toneRows(analysis)
			return app.OK(map[string]any{
				"tones":   rows,
				"warning": analysis.DocumentTone.Warning,
			}, output.WithSummary(toneSummary(analysis)))
		},
	}

	cmd.Flags().BoolVar(&sentences, "sentences", true, "Analyze each sentence as well as the document")
	cmd.Flags().StringSliceVar(&tones, "tones", nil, "Limit to these tone categories (emotion, language, social)")
	cmd.Flags().StringVar(&contentType, "content-type", "json", "Input format: json, text or html")
	cmd.Flags().StringVar(&language, "language", "", "Language of the input (en or fr)")
	return cmd
}

func toneContentType(name string) (string, error) {
	switch name {
	case "", "json":
		return toneanalyzer.ContentTypeJSON, nil
	case "text", "plain":
		return toneanalyzer.ContentTypeText, nil
	case "html":
		return toneanalyzer.ContentTypeHTML, nil
	default:
		return "", output.ErrUsageHint(fmt.Sprintf("unknown content type %q", name), "Use json, text or html")
	}
}

// toneRows lists document tones first, then sentence tones, each by
// descending score.
func toneRows(a *toneanalyzer.ToneAnalysis) []toneRow {
	var rows []toneRow
	doc := append([]toneanalyzer.ToneScore(nil), a.DocumentTone.Tones...)
	sort.SliceStable(doc, func(i, j int) bool { return doc[i].Score > doc[j].Score })
	for _, t := range doc {
		rows = append(rows, toneRow{Scope: "document", ToneName: t.ToneName, ToneID: t.ToneID, Score: t.Score})
	}
	for _, s := range a.SentencesTone {
		for _, t := range s.Tones {
			rows = append(rows, toneRow{
				Scope:    fmt.Sprintf("sentence %d", s.SentenceID),
				Text:     truncate(s.Text, 40),
				ToneName: t.ToneName,
				ToneID:   t.ToneID,
				Score:    t.Score,
			})
		}
	}
	return rows
}

func toneSummary(a *toneanalyzer.ToneAnalysis) string {
	if len(a.DocumentTone.Tones) == 0 {
		return "No dominant tone"
	}
	top := a.DocumentTone.Tones[0]
	for _, t := range a.DocumentTone.Tones[1:] {
		if t.Score > top.Score {
			top = t
		}
	}
	return fmt.Sprintf("Dominant tone: %s (%.2f)", top.ToneName, top.Score)
}
