package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watson-developer-cloud/go-sdk/internal/appctx"
	"github.com/watson-developer-cloud/go-sdk/internal/completion"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
	"github.com/watson-developer-cloud/go-sdk/internal/services"
	"github.com/watson-developer-cloud/go-sdk/internal/services/languagetranslator"
)

// NewTranslateCmd creates the translate command.
func NewTranslateCmd() *cobra.Command {
	var model, source, target string

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text",
		Long: `Translate text with Language Translator.

Pick the model with --model, or with --source and --target:
  watson translate --model en-es "Hello world"
  echo "Bonjour" | watson translate --source fr --target en`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			if model == "" && target == "" {
				return output.ErrUsageHint("no translation model selected", "Pass --model, or --source and --target")
			}
			text, err := textInput(cmd, args)
			if err != nil {
				return err
			}

			client, err := openTranslator(app)
			if err != nil {
				return err
			}
			result, err := client.Translate(cmd.Context(), &languagetranslator.TranslateParams{
				Text:    []string{text},
				ModelID: model,
				Source:  source,
				Target:  target,
			})
			if err != nil {
				return err
			}

			summary := fmt.Sprintf("%d words, %d characters", result.WordCount, result.CharacterCount)
			return app.OK(result.Translations, output.WithSummary(summary))
		},
	}

	completer := completion.NewCompleter(nil)
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model ID, e.g. en-es")
	cmd.Flags().StringVar(&source, "source", "", "Source language code")
	cmd.Flags().StringVar(&target, "target", "", "Target language code")
	_ = cmd.RegisterFlagCompletionFunc("model", completer.ModelCompletion())
	_ = cmd.RegisterFlagCompletionFunc("source", completer.LanguageCompletion())
	_ = cmd.RegisterFlagCompletionFunc("target", completer.LanguageCompletion())

	cmd.AddCommand(newTranslateModelsCmd())
	return cmd
}

func newTranslateModelsCmd() *cobra.Command {
	var source, target string
	var defaults bool

	cmd := &cobra.Command{
		Use:   "models [model-id]",
		Short: "List translation models, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := requireApp(cmd)
			if err != nil {
				return err
			}
			client, err := openTranslator(app)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				m, err := client.GetModel(cmd.Context(), &languagetranslator.GetModelParams{ModelID: args[0]})
				if err != nil {
					return err
				}
				return app.OK(m, output.WithSummary(fmt.Sprintf("%s: %s → %s", m.ModelID, m.Source, m.Target)))
			}

			params := &languagetranslator.ListModelsParams{Source: source, Target: target}
			if cmd.Flags().Changed("default") {
				params.Default = boolPtr(defaults)
			}
			models, err := client.ListModels(cmd.Context(), params)
			if err != nil {
				return err
			}

			// Keep completions current with what was just listed.
			if params.Source == "" && params.Target == "" && params.Default == nil {
				store := completion.NewStore(completion.DefaultCacheDirFunc(cmd))
				if err := store.UpdateModels(completion.CachedModels(models.Models)); err != nil {
					app.Logger.Debug("completion cache not updated", "error", err)
				}
			}

			return app.OK(models.Models,
				output.WithSummary(fmt.Sprintf("%d models", len(models.Models))),
				output.WithBreadcrumbs(output.Breadcrumb{
					Action:      "translate",
					Cmd:         "watson translate --model <model-id> <text>",
					Description: "Translate with a model",
				}),
			)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Only models from this language")
	cmd.Flags().StringVar(&target, "target", "", "Only models to this language")
	cmd.Flags().BoolVar(&defaults, "default", false, "Only default models (or only custom with --default=false)")
	return cmd
}

func openTranslator(app *appctx.App) (*languagetranslator.V3, error) {
	opts, err := app.ServiceOptions(services.LanguageTranslator)
	if err != nil {
		return nil, err
	}
	return languagetranslator.New(opts)
}
