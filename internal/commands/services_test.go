package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watson-developer-cloud/go-sdk/internal/completion"
	"github.com/watson-developer-cloud/go-sdk/internal/output"
	"github.com/watson-developer-cloud/go-sdk/internal/services/toneanalyzer"
)

func TestToneCommand(t *testing.T) {
	srv := newAPIServer(t, map[string]string{
		"/v3/tone": `{"document_tone":{"tones":[
				{"score":0.55,"tone_id":"tentative","tone_name":"Tentative"},
				{"score":0.81,"tone_id":"joy","tone_name":"Joy"}]},
			"sentences_tone":[{"sentence_id":1,"text":"I am so happy today.","tones":[
				{"score":0.9,"tone_id":"joy","tone_name":"Joy"}]}]}`,
	})
	app := newTestApp(t, basicEnv("TONE_ANALYZER", srv.URL))

	require.NoError(t, run(app, NewToneCmd(), "", "--content-type", "text", "I", "am", "so", "happy"))

	req := srv.last(t)
	assert.Equal(t, "POST", req.method)
	assert.Contains(t, req.query, "version=")
	assert.Contains(t, req.header.Get("Content-Type"), "text/plain")
	assert.Equal(t, "I am so happy", req.body)
	assert.NotContains(t, req.query, "sentences", "sentences is only sent when the flag is given")

	env := app.lastEnvelope(t)
	assert.Equal(t, "Dominant tone: Joy (0.81)", env.Summary)
	data := decodeData[struct {
		Tones []toneRow `json:"tones"`
	}](t, env)
	require.Len(t, data.Tones, 3)
	assert.Equal(t, "joy", data.Tones[0].ToneID)
	assert.Equal(t, "document", data.Tones[0].Scope)
	assert.Equal(t, "sentence 1", data.Tones[2].Scope)
}

func TestToneCommandReadsStdinAndSentencesFlag(t *testing.T) {
	srv := newAPIServer(t, map[string]string{"/v3/tone": `{"document_tone":{"tones":[]}}`})
	app := newTestApp(t, basicEnv("TONE_ANALYZER", srv.URL))

	require.NoError(t, run(app, NewToneCmd(), "from stdin\n", "--sentences=false"))

	req := srv.last(t)
	assert.Contains(t, req.query, "sentences=false")
	assert.Contains(t, req.body, "from stdin")
	assert.Equal(t, "No dominant tone", app.lastEnvelope(t).Summary)
}

func TestToneCommandRejectsUnknownContentType(t *testing.T) {
	app := newTestApp(t, nil)
	err := run(app, NewToneCmd(), "", "--content-type", "pdf", "hi")

	var outErr *output.Error
	require.ErrorAs(t, err, &outErr)
	assert.Equal(t, output.CodeUsage, outErr.Code)
}

func TestToneRowsOrdering(t *testing.T) {
	rows := toneRows(&toneanalyzer.ToneAnalysis{
		DocumentTone: toneanalyzer.DocumentAnalysis{Tones: []toneanalyzer.ToneScore{
			{ToneID: "a", Score: 0.1},
			{ToneID: "b", Score: 0.9},
		}},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ToneID)
}

func TestTranslateCommand(t *testing.T) {
	srv := newAPIServer(t, map[string]string{
		"/v3/translate": `{"word_count":2,"character_count":11,"translations":[{"translation":"Hola mundo"}]}`,
	})
	app := newTestApp(t, basicEnv("LANGUAGE_TRANSLATOR", srv.URL))

	require.NoError(t, run(app, NewTranslateCmd(), "", "--model", "en-es", "Hello", "world"))

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(srv.last(t).body), &body))
	assert.Equal(t, "en-es", body["model_id"])
	assert.Equal(t, []any{"Hello world"}, body["text"])

	env := app.lastEnvelope(t)
	assert.Equal(t, "2 words, 11 characters", env.Summary)
	assert.JSONEq(t, `[{"translation":"Hola mundo"}]`, string(env.Data))
}

func TestTranslateNeedsModelOrTarget(t *testing.T) {
	app := newTestApp(t, nil)
	err := run(app, NewTranslateCmd(), "", "Hello")

	var outErr *output.Error
	require.ErrorAs(t, err, &outErr)
	assert.Equal(t, output.CodeUsage, outErr.Code)
	assert.Contains(t, outErr.Hint, "--model")
}

func TestTranslateModelsUpdatesCompletionCache(t *testing.T) {
	srv := newAPIServer(t, map[string]string{
		"/v3/models": `{"models":[
			{"model_id":"en-es","source":"en","target":"es","default_model":true},
			{"model_id":"en-fr","source":"en","target":"fr"}]}`,
		"/v3/models/en-es": `{"model_id":"en-es","source":"en","target":"es"}`,
	})
	app := newTestApp(t, basicEnv("LANGUAGE_TRANSLATOR", srv.URL))

	require.NoError(t, run(app, NewTranslateCmd(), "", "models"))
	assert.Equal(t, "2 models", app.lastEnvelope(t).Summary)

	cached := completion.NewStore("").Models()
	require.Len(t, cached, 2)
	assert.True(t, cached[0].Default)

	require.NoError(t, run(app, NewTranslateCmd(), "", "models", "en-es"))
	assert.Equal(t, "/v3/models/en-es", srv.last(t).path)
	assert.Equal(t, "en-es: en → es", app.lastEnvelope(t).Summary)
}

func TestTranslateModelsFilteredLeavesCache(t *testing.T) {
	srv := newAPIServer(t, map[string]string{"/v3/models": `{"models":[{"model_id":"en-es"}]}`})
	app := newTestApp(t, basicEnv("LANGUAGE_TRANSLATOR", srv.URL))

	require.NoError(t, run(app, NewTranslateCmd(), "", "models", "--source", "en", "--default"))
	assert.Contains(t, srv.last(t).query, "source=en")
	assert.Contains(t, srv.last(t).query, "default=true")
	assert.Empty(t, completion.NewStore("").Models())
}

func TestMessageCommand(t *testing.T) {
	srv := newAPIServer(t, map[string]string{
		"/v1/workspaces/ws-1/message": `{"input":{"text":"hello"},
			"intents":[{"intent":"goodbye","confidence":0.2},{"intent":"greeting","confidence":0.93}],
			"entities":[],
			"context":{"conversation_id":"c1"},
			"output":{"text":["Hi there!"]}}`,
	})
	app := newTestApp(t, basicEnv("CONVERSATION", srv.URL))

	require.NoError(t, run(app, NewMessageCmd(), "", "ws-1", "--context", `{"conversation_id":"c0"}`, "hello"))

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(srv.last(t).body), &body))
	assert.Equal(t, map[string]any{"text": "hello"}, body["input"])
	assert.Equal(t, map[string]any{"conversation_id": "c0"}, body["context"])

	env := app.lastEnvelope(t)
	assert.Equal(t, "#greeting (0.93)", env.Summary)
	reply := decodeData[messageReply](t, env)
	assert.Equal(t, []string{"Hi there!"}, reply.Text)
	assert.Equal(t, "c1", reply.Context["conversation_id"])
}

func TestMessageCommandRejectsBadContext(t *testing.T) {
	app := newTestApp(t, nil)
	err := run(app, NewMessageCmd(), "", "ws-1", "--context", "{", "hi")

	var outErr *output.Error
	require.ErrorAs(t, err, &outErr)
	assert.Equal(t, output.CodeUsage, outErr.Code)
}

func TestWorkspacesCommand(t *testing.T) {
	srv := newAPIServer(t, map[string]string{
		"/v1/workspaces": `{"workspaces":[{"workspace_id":"ws-1","name":"Demo","language":"en"}],
			"pagination":{"refresh_url":"/v1/workspaces"}}`,
	})
	app := newTestApp(t, basicEnv("CONVERSATION", srv.URL))

	require.NoError(t, run(app, NewWorkspacesCmd(), ""))

	assert.Equal(t, "1 workspaces", app.lastEnvelope(t).Summary)
	cached := completion.NewStore("").Workspaces()
	require.Len(t, cached, 1)
	assert.Equal(t, "Demo", cached[0].Name)
}

func TestWorkspacesCommandNextCursor(t *testing.T) {
	srv := newAPIServer(t, map[string]string{
		"/v1/workspaces": `{"workspaces":[{"workspace_id":"ws-1","name":"Demo"}],
			"pagination":{"refresh_url":"/v1/workspaces","next_cursor":"abc"}}`,
	})
	app := newTestApp(t, basicEnv("CONVERSATION", srv.URL))

	require.NoError(t, run(app, NewWorkspacesCmd(), "", "--limit", "1", "--sort", "name"))

	assert.Contains(t, srv.last(t).query, "page_limit=1")
	assert.Equal(t, "abc", app.lastEnvelope(t).Meta["next_cursor"])
	assert.Empty(t, completion.NewStore("").Workspaces(), "a partial page must not replace the cache")
}

func TestReplyText(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, replyText(map[string]any{"text": []any{"a", "", "b"}}))
	assert.Equal(t, []string{"single"}, replyText(map[string]any{"text": "single"}))
	assert.Nil(t, replyText(map[string]any{}))
}

func TestServicesCommand(t *testing.T) {
	app := newTestApp(t, nil)
	app.Config.Versions = map[string]string{"tone_analyzer": "2016-05-19"}

	require.NoError(t, run(app, NewServicesCmd(), ""))

	env := app.lastEnvelope(t)
	rows := decodeData[[]serviceRow](t, env)
	require.Len(t, rows, 3)
	for _, r := range rows {
		if r.Name == "tone_analyzer" {
			assert.Equal(t, "2016-05-19", r.Version)
			assert.Equal(t, "TONE_ANALYZER_", r.EnvKey)
		}
		assert.NotEmpty(t, r.URL, r.Name)
	}
}

func TestServiceErrorsSurface(t *testing.T) {
	srv := newAPIServer(t, map[string]string{})
	app := newTestApp(t, basicEnv("CONVERSATION", srv.URL))

	err := run(app, NewWorkspacesCmd(), "")
	require.Error(t, err)
	assert.Equal(t, output.CodeNotFound, output.AsError(err).Code)
	assert.Equal(t, 404, output.AsError(err).HTTPStatus)
}
