package puzzle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Catalog is the source of published puzzles. IDs returns puzzles in
// publish order; the first one a pair has not played is dealt next.
type Catalog interface {
	Get(ctx context.Context, id string) (*Puzzle, error)
	IDs(ctx context.Context) ([]string, error)
}

// Decode reads and validates a JSON puzzle definition.
func Decode(r io.Reader) (*Puzzle, error) {
	var def Definition
	if err := json.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to decode puzzle: %w", err)
	}
	return New(def)
}

// MemoryCatalog holds puzzles in insertion order.
type MemoryCatalog struct {
	mu      sync.RWMutex
	order   []string
	puzzles map[string]*Puzzle
}

func NewMemoryCatalog(puzzles ...*Puzzle) *MemoryCatalog {
	c := &MemoryCatalog{puzzles: make(map[string]*Puzzle)}
	for _, p := range puzzles {
		c.Add(p)
	}
	return c
}

// Add publishes a puzzle. Re-adding an id replaces it in place.
func (c *MemoryCatalog) Add(p *Puzzle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.puzzles[p.ID()]; !ok {
		c.order = append(c.order, p.ID())
	}
	c.puzzles[p.ID()] = p
}

func (c *MemoryCatalog) Get(ctx context.Context, id string) (*Puzzle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.puzzles[id]
	if !ok {
		return nil, ErrPuzzleNotFound
	}
	return p, nil
}

func (c *MemoryCatalog) IDs(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out, nil
}

// DirCatalog serves puzzles from a directory of <id>.json files, ordered by
// id. Parsed puzzles are cached since definitions never change once published.
type DirCatalog struct {
	dir   string
	mu    sync.Mutex
	cache map[string]*Puzzle
}

func NewDirCatalog(dir string) *DirCatalog {
	return &DirCatalog{dir: dir, cache: make(map[string]*Puzzle)}
}

func (c *DirCatalog) Get(ctx context.Context, id string) (*Puzzle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.cache[id]; ok {
		return p, nil
	}

	f, err := os.Open(filepath.Join(c.dir, filepath.Base(id)+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPuzzleNotFound
		}
		return nil, fmt.Errorf("failed to open puzzle %s: %w", id, err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, err
	}
	if p.ID() != id {
		return nil, fmt.Errorf("%w: file %s.json declares id %q", ErrInvalidDefinition, id, p.ID())
	}
	c.cache[id] = p
	return p, nil
}

func (c *DirCatalog) IDs(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list puzzles: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
