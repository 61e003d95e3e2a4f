// Package indexer loads pre-chunked documents into an amanrag corpus.
//
// The ingestion side of a deployment produces chunks (id, source, url,
// text, content type, language and optionally an embedding). An Importer
// merges them into the SQLite corpus by id, embeds chunks that arrive
// without a vector, and refuses to write a set the searcher could not
// load:
//
//	JSONL ──► ReadJSONL ──► Importer.Import ──► SQLiteChunkStore
//	                             │
//	                             └── embed.Embedder (missing vectors only)
//
// # Usage
//
//	chunks, err := indexer.ReadJSONL(f)
//	imp, err := indexer.NewImporter(cs,
//	    indexer.WithEmbedderFactory(func(ctx context.Context) (embed.Embedder, error) {
//	        return embed.NewEmbedder(ctx, cfg)
//	    }),
//	)
//	stats, err := imp.Import(ctx, chunks)
//
// Writers must be serialized across processes by the caller, for example
// with store.FileLock.
package indexer
