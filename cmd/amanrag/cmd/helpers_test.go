package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolate points every config, corpus and log location at a temp dir and
// returns it.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("NO_COLOR", "1")
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, "AMANRAG_") {
			t.Setenv(name, "")
		}
	}
	t.Setenv("AMANRAG_CORPUS_PATH", filepath.Join(dir, "corpus.db"))
	return dir
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

const sampleChunks = `{"id":"sdk-android-1","source":"docs","url":"https://docs.example.com/sdk/android","text":"android sdk entegrasyonu için gradle bağımlılığını ekleyin","content_type":"tutorial","language":"tr"}
{"id":"billing-1","source":"faq","text":"fatura indirme adımları hesap ayarları altındadır","content_type":"faq","language":"tr"}

{"id":"api-auth-1","source":"api","text":"api authentication uses a bearer token in the authorization header","language":"en"}
`

func writeChunks(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "chunks.jsonl")
	require.NoError(t, os.WriteFile(p, []byte(sampleChunks), 0o644))
	return p
}
