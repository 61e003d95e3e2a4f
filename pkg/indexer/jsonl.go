package indexer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// MaxLineBytes bounds one JSONL record.
const MaxLineBytes = 16 << 20

// ReadJSONL parses one chunk per non-blank line. A missing content_type
// becomes general; an unknown one is rejected with the line number.
func ReadJSONL(r io.Reader) ([]*store.Chunk, error) {
	var chunks []*store.Chunk
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), MaxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var c store.Chunk
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, amerrors.ValidationError(fmt.Sprintf("line %d: invalid chunk", line), err)
		}
		if c.ID == "" {
			return nil, amerrors.ValidationError(fmt.Sprintf("line %d: chunk has no id", line), nil)
		}
		if c.ContentType == "" {
			c.ContentType = store.ContentGeneral
		}
		if _, err := store.ParseContentType(string(c.ContentType)); err != nil {
			return nil, amerrors.ValidationError(fmt.Sprintf("line %d: chunk %s", line, c.ID), err)
		}
		chunks = append(chunks, &c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}
	return chunks, nil
}
