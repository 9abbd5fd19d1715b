package watcher

import (
	"path/filepath"
	"strings"
)

// Filter decides which paths produce events.
type Filter struct {
	exts map[string]bool
}

// NewFilter accepts files with any of exts (case-insensitive, with or
// without the leading dot). No extensions accepts every file.
func NewFilter(exts []string) *Filter {
	f := &Filter{exts: make(map[string]bool, len(exts))}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		f.exts[e] = true
	}
	return f
}

// Match reports whether relPath should be watched. Hidden files and
// directories are never watched; directories otherwise always are.
func (f *Filter) Match(relPath string, isDir bool) bool {
	if relPath == "" || relPath == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	if isDir || len(f.exts) == 0 {
		return true
	}
	return f.exts[strings.ToLower(filepath.Ext(relPath))]
}
