package store

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/roach88/notebook/internal/serde"
)

// Open returns the backend named by uri:
//
//   - sqlite:// and sqlite3:// (optionally with a +driver suffix): SQLStore
//   - ndjson:// and jsonl://, or a path ending in .jsonl or .ndjson: LogStore
//   - redis:// and rediss://: RedisStore
//   - any other bare path: SQLStore
//
// Callers that need to read records back type-assert the result to Lister.
func Open(ctx context.Context, uri string, codec *serde.Codec) (Backend, error) {
	scheme, rest, hasScheme := strings.Cut(uri, "://")
	dialect, _, _ := strings.Cut(strings.ToLower(scheme), "+")

	var (
		b   Backend
		err error
	)
	switch {
	case hasScheme && (dialect == "ndjson" || dialect == "jsonl"):
		b, err = OpenLog(rest, codec)
	case hasScheme && (dialect == "redis" || dialect == "rediss"):
		b, err = OpenRedis(ctx, uri, codec)
	case !hasScheme && isLogPath(uri):
		b, err = OpenLog(uri, codec)
	default:
		b, err = OpenSQL(uri, codec)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func isLogPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return true
	}
	return false
}
