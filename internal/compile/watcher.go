package compile

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultIgnore lists patterns the watcher skips.
var DefaultIgnore = []string{
	"*_test.go",
	".git",
	".firebolt",
	"node_modules",
	"dist",
	"tmp",
	"*.tmp",
	"*.swp",
	"*~",
}

// Kind classifies a changed file.
type Kind int

const (
	KindGo Kind = iota
	KindAsset
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindGo {
		return "go"
	}
	return "asset"
}

// Change is a set of files that changed during one poll.
type Change struct {
	Paths []string
	Kind  Kind
}

// Watcher polls directories for modified, added and removed files.
type Watcher struct {
	paths    []string
	ignore   []string
	interval time.Duration

	mu         sync.Mutex
	timestamps map[string]time.Time
}

// NewWatcher creates a watcher. Empty ignore uses DefaultIgnore; a zero
// interval polls every 100ms.
func NewWatcher(paths, ignore []string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if len(ignore) == 0 {
		ignore = DefaultIgnore
	}
	return &Watcher{
		paths:      paths,
		ignore:     ignore,
		interval:   interval,
		timestamps: make(map[string]time.Time),
	}
}

// Run polls until ctx is done, calling fn once per poll that found
// changes. Go changes are reported ahead of asset changes.
func (w *Watcher) Run(ctx context.Context, fn func(Change)) error {
	w.mu.Lock()
	w.timestamps = w.scan()
	w.mu.Unlock()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, c := range w.Poll() {
				fn(c)
			}
		}
	}
}

// Poll compares the tree against the previous scan.
func (w *Watcher) Poll() []Change {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.scan()
	byKind := make(map[Kind][]string)
	for p, mod := range current {
		if last, ok := w.timestamps[p]; !ok || mod.After(last) {
			byKind[classify(p)] = append(byKind[classify(p)], p)
		}
	}
	for p := range w.timestamps {
		if _, ok := current[p]; !ok {
			byKind[classify(p)] = append(byKind[classify(p)], p)
		}
	}
	w.timestamps = current

	var changes []Change
	for _, k := range []Kind{KindGo, KindAsset} {
		if paths := byKind[k]; len(paths) > 0 {
			sort.Strings(paths)
			changes = append(changes, Change{Paths: paths, Kind: k})
		}
	}
	return changes
}

func (w *Watcher) scan() map[string]time.Time {
	files := make(map[string]time.Time)
	for _, root := range w.paths {
		filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil || rel == "." {
				return nil
			}
			if d.IsDir() {
				if w.ignored(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if w.ignored(rel) {
				return nil
			}
			if info, err := d.Info(); err == nil {
				files[p] = info.ModTime()
			}
			return nil
		})
	}
	return files
}

// ignored reports whether p, relative to a watched root, matches an
// ignore pattern. Patterns without a slash match a file name or any path
// segment; patterns with one match the slash-separated path.
func (w *Watcher) ignored(p string) bool {
	name := filepath.Base(p)
	normalized := filepath.ToSlash(p)

	for _, pattern := range w.ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		hasSep := strings.Contains(pattern, "/")
		switch {
		case strings.ContainsAny(pattern, "*?["):
			target := name
			if hasSep {
				target = normalized
			}
			if ok, _ := path.Match(pattern, target); ok {
				return true
			}
		case hasSep:
			if strings.Contains("/"+normalized+"/", "/"+strings.Trim(pattern, "/")+"/") {
				return true
			}
		default:
			for _, seg := range strings.Split(normalized, "/") {
				if seg == pattern {
					return true
				}
			}
		}
	}
	return false
}

func classify(p string) Kind {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".go", ".mod", ".sum":
		return KindGo
	default:
		return KindAsset
	}
}
