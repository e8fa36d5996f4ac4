package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Dir is the root of the rendered-HTML cache. Tests point it elsewhere.
var Dir = "cache"

// Path returns the cache file for a post's rendered body. The xxhash suffix
// keeps stale files from older schema of the same id from being served.
func Path(kind string, id int) string {
	hash := generateHash(fmt.Sprintf("%s/%d", kind, id))
	return filepath.Join(Dir, kind, fmt.Sprintf("%d_%s.html", id, hash[:16]))
}

func generateHash(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// Write stores rendered HTML for a post.
func Write(kind string, id int, html string) error {
	if err := os.MkdirAll(filepath.Join(Dir, kind), 0755); err != nil {
		return err
	}
	return os.WriteFile(Path(kind, id), []byte(html), 0644)
}

// Read returns cached HTML if present and younger than maxAge.
func Read(kind string, id int, maxAge time.Duration) (string, bool) {
	p := Path(kind, id)

	info, err := os.Stat(p)
	if err != nil {
		return "", false
	}
	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(p)
	if err != nil {
		return "", false
	}
	return string(content), true
}

// Clear removes the cached HTML for a post. A missing file is not an error.
func Clear(kind string, id int) error {
	err := os.Remove(Path(kind, id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
