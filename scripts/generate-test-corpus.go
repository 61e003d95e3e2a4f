//go:build ignore

// Package main generates a synthetic chunk corpus for benchmarking and
// manual testing of amanrag.
// Usage: go run scripts/generate-test-corpus.go -chunks 5000 -output testdata/bench/chunks.jsonl
//
// The output is JSONL accepted by 'amanrag import'.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numChunks = flag.Int("chunks", 5000, "Number of chunks to generate")
	output    = flag.String("output", "testdata/bench/chunks.jsonl", "Output file ('-' for stdout)")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

type chunk struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	URL         string `json:"url,omitempty"`
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
	Language    string `json:"language"`
}

type topic struct {
	source      string
	contentType string
	tr          []string
	en          []string
}

var topics = []topic{
	{
		source:      "developer-guide",
		contentType: "tutorial",
		tr: []string{
			"%s SDK entegrasyonu için %s bağımlılığını ekleyin ve uygulamayı yeniden derleyin.",
			"%s platformunda kurulum adımları: anahtarınızı %s dosyasına yazın.",
		},
		en: []string{
			"To integrate the %s SDK, add the %s dependency and rebuild the app.",
			"Setup on %s: put your key in the %s file before the first launch.",
		},
	},
	{
		source:      "api-reference",
		contentType: "api",
		tr: []string{
			"%s uç noktası %s başlığında bearer token bekler.",
		},
		en: []string{
			"The %s endpoint expects a bearer token in the %s header.",
			"Requests to %s are rate limited; see the %s response header.",
		},
	},
	{
		source:      "help-center",
		contentType: "faq",
		tr: []string{
			"%s ekranında fatura indirme seçeneği %s menüsü altındadır.",
			"Şifremi unuttum: %s sayfasından %s bağlantısını isteyin.",
		},
		en: []string{
			"You can download invoices from the %s screen under %s.",
			"Forgot your password? Request a reset link from %s via %s.",
		},
	},
	{
		source:      "troubleshooting",
		contentType: "general",
		tr: []string{
			"%s hatası alıyorsanız %s ayarını kontrol edin.",
		},
		en: []string{
			"If you see %s, check the %s setting and retry.",
		},
	},
}

var (
	subjects = []string{"Android", "iOS", "Web", "billing", "auth", "/v1/payments", "/v1/users", "ERR_TIMEOUT", "account settings"}
	objects  = []string{"Gradle", "CocoaPods", "npm", "Authorization", "config.yaml", "Retry-After", "profile", "email", "network"}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	w := os.Stdout
	if *output != "-" {
		if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
			os.Exit(1)
		}
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", *output, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := 0; i < *numChunks; i++ {
		t := topics[rng.Intn(len(topics))]
		lang, templates := "en", t.en
		if rng.Intn(2) == 0 {
			lang, templates = "tr", t.tr
		}

		var sentences []string
		for n := 1 + rng.Intn(3); n > 0; n-- {
			tmpl := templates[rng.Intn(len(templates))]
			sentences = append(sentences, fmt.Sprintf(tmpl,
				subjects[rng.Intn(len(subjects))], objects[rng.Intn(len(objects))]))
		}

		c := chunk{
			ID:          fmt.Sprintf("%s-%06d", t.source, i),
			Source:      t.source,
			URL:         fmt.Sprintf("https://docs.example.com/%s/%d", t.source, i),
			Text:        strings.Join(sentences, " "),
			ContentType: t.contentType,
			Language:    lang,
		}
		if err := enc.Encode(c); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing chunk: %v\n", err)
			os.Exit(1)
		}
	}

	if *output != "-" {
		fmt.Fprintf(os.Stderr, "Generated %d chunks in %s\n", *numChunks, *output)
	}
}
