package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanrag/internal/embed"
	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/pkg/indexer"
)

func newImportCmd() *cobra.Command {
	var noEmbed bool

	cmd := &cobra.Command{
		Use:   "import <chunks.jsonl>",
		Short: "Import chunks into the corpus",
		Long: `Import chunks produced by an ingestion pipeline into the SQLite corpus.

Each line is a JSON object with id, source, url, text, content_type,
language and an optional embedding. Records are merged by id. Chunks
without an embedding are embedded with the configured provider unless
--no-embed is given. Use '-' to read from stdin.`,
		Example: `  amanrag import docs.jsonl
  cat faq.jsonl | amanrag import - --no-embed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd, args[0], noEmbed)
		},
	}
	cmd.Flags().BoolVar(&noEmbed, "no-embed", false, "Store chunks without computing missing embeddings")
	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, src string, noEmbed bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := output.New(cmd.OutOrStdout())

	r := cmd.InOrStdin()
	if src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return amerrors.ValidationError("cannot open "+src, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	chunks, err := indexer.ReadJSONL(r)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return amerrors.New(amerrors.ErrCodeEmptyCorpus, "no chunks in "+src, nil)
	}

	path := cfg.CorpusPath()
	lock := store.NewFileLock(path)
	ok, err := lock.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return amerrors.New(amerrors.ErrCodeCorpusLocked, "corpus is being written by another process", nil).
			WithDetail("lock", lock.Path()).
			WithSuggestion("Wait for the other import to finish")
	}
	defer func() { _ = lock.Unlock() }()

	cs, err := store.OpenChunkStore(path)
	if err != nil {
		return amerrors.CorpusError("failed to open corpus "+path, err)
	}
	defer func() { _ = cs.Close() }()

	opts := []indexer.Option{
		indexer.WithProgress(func(done, total int) {
			out.Progress(done, total, "Embedding")
		}),
	}
	if !noEmbed {
		ec, err := cfg.EmbedderConfig()
		if err != nil {
			return err
		}
		ec.CacheSize = -1
		opts = append(opts, indexer.WithEmbedderFactory(func(ctx context.Context) (embed.Embedder, error) {
			return embed.NewEmbedder(ctx, ec)
		}))
	}

	imp, err := indexer.NewImporter(cs, opts...)
	if err != nil {
		return err
	}
	stats, err := imp.Import(ctx, chunks)
	if err != nil {
		return err
	}

	out.Successf("Imported %d chunks (%d new) into %s", stats.Incoming, stats.Added, path)
	out.KeyValue("Corpus", fmt.Sprintf("%d chunks", stats.Total))
	if stats.Embedded > 0 {
		out.KeyValue("Embedded", fmt.Sprintf("%d with %s", stats.Embedded, stats.Model))
	}
	if stats.Dimensions > 0 {
		out.KeyValue("Dimensions", stats.Dimensions)
	} else {
		out.Dim("  No embeddings stored; the vector source will be skipped")
	}
	return nil
}
