package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"trackhost/internal/modules/host/domain"
	hostout "trackhost/internal/modules/host/port/out"
)

const defaultTableCacheSize = 64

// YAMLLocalizer reads flat key/value string tables from <root>/<language>.yaml.
// Parsed tables are kept in an LRU keyed by file path.
type YAMLLocalizer struct {
	language string
	hostRoot string

	mu     sync.RWMutex
	roots  map[string]string
	tables *lru.Cache[string, map[string]string]
}

var _ hostout.Localizer = (*YAMLLocalizer)(nil)

func NewYAMLLocalizer(hostRoot, language string, cacheSize int) (*YAMLLocalizer, error) {
	if language == "" {
		language = "en"
	}
	if cacheSize <= 0 {
		cacheSize = defaultTableCacheSize
	}
	tables, err := lru.New[string, map[string]string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create localization cache: %w", err)
	}
	return &YAMLLocalizer{
		language: language,
		hostRoot: hostRoot,
		roots:    map[string]string{},
		tables:   tables,
	}, nil
}

func (l *YAMLLocalizer) Lookup(_ context.Context, owner, key string) (string, error) {
	root, ok := l.rootFor(owner)
	if !ok {
		return "", fmt.Errorf("%w: %s has no localization root", domain.ErrStringNotFound, owner)
	}
	table, err := l.table(root)
	if err != nil {
		return "", err
	}
	value, ok := table[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrStringNotFound, key)
	}
	return value, nil
}

// SetRoot points owner at a new resource directory and drops any table
// cached for it.
func (l *YAMLLocalizer) SetRoot(_ context.Context, owner, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("localization root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("localization root %s is not a directory", path)
	}
	l.mu.Lock()
	l.roots[owner] = path
	l.mu.Unlock()
	l.tables.Remove(l.tablePath(path))
	return nil
}

func (l *YAMLLocalizer) rootFor(owner string) (string, bool) {
	if owner == "" {
		return l.hostRoot, l.hostRoot != ""
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	root, ok := l.roots[owner]
	return root, ok
}

func (l *YAMLLocalizer) tablePath(root string) string {
	return filepath.Join(root, l.language+".yaml")
}

func (l *YAMLLocalizer) table(root string) (map[string]string, error) {
	path := l.tablePath(root)
	if table, ok := l.tables.Get(path); ok {
		return table, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			table := map[string]string{}
			l.tables.Add(path, table)
			return table, nil
		}
		return nil, fmt.Errorf("read string table: %w", err)
	}
	table := map[string]string{}
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("decode string table %s: %w", path, err)
	}
	l.tables.Add(path, table)
	return table, nil
}
