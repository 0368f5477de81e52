package completion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func completerFor(dir string) *Completer {
	return NewCompleter(func(*cobra.Command) string { return dir })
}

func seedCache(t *testing.T, dir string) {
	t.Helper()
	err := NewStore(dir).Save(&Cache{
		Models: []CachedModel{
			{ModelID: "en-fr", Source: "en", Target: "fr"},
			{ModelID: "en-es", Source: "en", Target: "es", Default: true},
			{ModelID: "es-en", Source: "es", Target: "en", Name: "Spanish to English"},
		},
		Workspaces: []CachedWorkspace{
			{WorkspaceID: "b2", Name: "Support Bot"},
			{WorkspaceID: "a1", Name: "Car Dashboard"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func values(completions []cobra.Completion) []string {
	out := make([]string, len(completions))
	for i, c := range completions {
		v, _, _ := strings.Cut(c, "\t")
		out[i] = v
	}
	return out
}

func TestRankModels(t *testing.T) {
	ranked := rankModels([]CachedModel{
		{ModelID: "zh-en"},
		{ModelID: "en-es", Default: true},
		{ModelID: "ar-en"},
	})
	got := []string{ranked[0].ModelID, ranked[1].ModelID, ranked[2].ModelID}
	want := []string{"en-es", "ar-en", "zh-en"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rankModels order = %v, want %v", got, want)
		}
	}
}

func TestCompleterModelCompletion(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, dir)
	fn := completerFor(dir).ModelCompletion()

	completions, directive := fn(&cobra.Command{}, nil, "en")
	if directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("Expected NoFileComp directive, got %v", directive)
	}
	got := values(completions)
	if len(got) != 2 || got[0] != "en-es" || got[1] != "en-fr" {
		t.Errorf("ModelCompletion(en) = %v", got)
	}

	completions, _ = fn(&cobra.Command{}, nil, "es")
	if len(completions) != 1 || !strings.Contains(completions[0], "Spanish to English") {
		t.Errorf("Expected named model with description, got %v", completions)
	}
}

func TestCompleterLanguageCompletion(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, dir)

	completions, _ := completerFor(dir).LanguageCompletion()(&cobra.Command{}, nil, "")
	want := []string{"en", "es", "fr"}
	if len(completions) != len(want) {
		t.Fatalf("LanguageCompletion = %v, want %v", completions, want)
	}
	for i := range want {
		if completions[i] != want[i] {
			t.Errorf("LanguageCompletion = %v, want %v", completions, want)
		}
	}
}

func TestCompleterWorkspaceCompletion(t *testing.T) {
	dir := t.TempDir()
	seedCache(t, dir)
	fn := completerFor(dir).WorkspaceCompletion()

	got := values(mustComplete(fn, nil, ""))
	if len(got) != 2 || got[0] != "a1" {
		t.Errorf("Expected workspaces sorted by name, got %v", got)
	}

	got = values(mustComplete(fn, nil, "bot"))
	if len(got) != 1 || got[0] != "b2" {
		t.Errorf("Expected match on name, got %v", got)
	}

	if c := mustComplete(fn, []string{"a1"}, ""); len(c) != 0 {
		t.Errorf("Only the first argument is a workspace, got %v", c)
	}
}

func mustComplete(fn cobra.CompletionFunc, args []string, toComplete string) []cobra.Completion {
	c, _ := fn(&cobra.Command{}, args, toComplete)
	return c
}

func TestCompleterServiceCompletion(t *testing.T) {
	fn := completerFor(t.TempDir()).ServiceCompletion()

	got := values(mustComplete(fn, nil, "t"))
	want := map[string]bool{"tone_analyzer": true, "tone": true, "translator": true}
	if len(got) != len(want) {
		t.Fatalf("ServiceCompletion(t) = %v", got)
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("Unexpected completion %q", v)
		}
	}
}

func TestCompleterEmptyCache(t *testing.T) {
	c := completerFor(t.TempDir())

	if got := mustComplete(c.ModelCompletion(), nil, ""); got != nil {
		t.Errorf("Expected nil models from empty cache, got %v", got)
	}
	if got := mustComplete(c.WorkspaceCompletion(), nil, ""); got != nil {
		t.Errorf("Expected nil workspaces from empty cache, got %v", got)
	}
}

func TestCompleterCorruptedCache(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, CacheFileName), []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := mustComplete(completerFor(dir).ModelCompletion(), nil, ""); got != nil {
		t.Errorf("Expected nil from corrupted cache, got %v", got)
	}
}

func TestDefaultCacheDirFunc(t *testing.T) {
	root := &cobra.Command{Use: "watson"}
	var dir string
	root.PersistentFlags().StringVar(&dir, "cache-dir", "", "")
	child := &cobra.Command{Use: "translate"}
	root.AddCommand(child)

	if got := DefaultCacheDirFunc(child); got != "" {
		t.Errorf("Expected empty dir without flag, got %q", got)
	}
	if err := root.PersistentFlags().Set("cache-dir", "/tmp/c"); err != nil {
		t.Fatal(err)
	}
	if got := DefaultCacheDirFunc(child); got != "/tmp/c" {
		t.Errorf("Expected flag value, got %q", got)
	}
}
