package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"skyshade.ai/internal/persistence/indexdb"
)

// openRuntimeIndex returns nil when indexing is disabled.
func openRuntimeIndex(dataDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SKYSHADE_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := strings.TrimSpace(os.Getenv("SKYSHADE_INDEX_PATH"))
		if dbPath == "" {
			dbPath = filepath.Join(dataDir, "index", "sessions.sqlite")
		}
		return indexdb.OpenSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unsupported SKYSHADE_INDEX_BACKEND: %s", backend)
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
