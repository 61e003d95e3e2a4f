package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_StatusVariants(t *testing.T) {
	tests := []struct {
		name  string
		write func(*Writer)
		icon  string
		text  string
	}{
		{"success", func(w *Writer) { w.Successf("Imported %d chunks", 12) }, "✅", "Imported 12 chunks"},
		{"warning", func(w *Writer) { w.Warning("Ollama not reachable") }, "⚠️", "Ollama not reachable"},
		{"error", func(w *Writer) { w.Errorf("corpus %s is locked", "x.db") }, "❌", "corpus x.db is locked"},
		{"status", func(w *Writer) { w.Statusf("📂", "Reading %s", "chunks.jsonl") }, "📂", "Reading chunks.jsonl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a writer over a buffer
			buf := &bytes.Buffer{}
			w := New(buf)

			// When: writing
			tt.write(w)

			// Then: icon and text are present
			assert.Contains(t, buf.String(), tt.icon)
			assert.Contains(t, buf.String(), tt.text)
		})
	}
}

func TestNew_BufferIsNotATerminal(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Header("Corpus")

	assert.False(t, w.useColor)
	assert.Equal(t, "Corpus\n", buf.String())
}

func TestNewWithColor_Styles(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, true)

	w.Header("Corpus")

	assert.True(t, w.useColor)
	assert.Contains(t, buf.String(), "Corpus")
}

func TestWriter_KeyValue_Aligns(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.KeyValue("chunks", 42)

	assert.Equal(t, "  chunks:        42\n", buf.String())
}

func TestWriter_Code_IndentsLines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Code("version: 1\nretrieval:")

	assert.Contains(t, buf.String(), "  version: 1\n  retrieval:\n")
}

func TestWriter_Progress(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Progress(50, 100, "Embedding chunks")
	assert.Contains(t, buf.String(), "50%")
	assert.Contains(t, buf.String(), "Embedding chunks")

	buf.Reset()
	w.Progress(0, 0, "noop")
	assert.Empty(t, buf.String())
}

func TestProgressBar_Render(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		wantFull int
	}{
		{"0 percent", 0, 100, 10, 0},
		{"50 percent", 50, 100, 10, 5},
		{"100 percent", 100, 100, 10, 10},
		{"25 percent", 25, 100, 20, 5},
		{"overflow", 150, 100, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := renderProgressBar(tt.current, tt.total, tt.width)

			assert.Equal(t, tt.wantFull, strings.Count(bar, "█"))
			assert.Equal(t, tt.width, len([]rune(bar)))
		})
	}
}

func TestScoreBar(t *testing.T) {
	assert.Equal(t, "█████·····", ScoreBar(0.5, 10))
	assert.Equal(t, "··········", ScoreBar(-1, 10))
	assert.Equal(t, "██████████", ScoreBar(1.7, 10))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "kısa metin", Truncate("kısa\n  metin", 20))
	assert.Equal(t, "Andro…", Truncate("Android SDK", 6))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
