// Package catalog is the artwork list scrolled by the simulator. It supplies
// preload items and their fingerprint state, and drops items found to be
// duplicates of one already listed.
package catalog

import (
	"sync"

	"listpreload"
)

// Artwork is one list item.
type Artwork struct {
	ID     string
	Source string

	cell listpreload.Cell
}

// Fingerprint returns the artwork's fingerprint once computed or restored.
func (a *Artwork) Fingerprint() (int32, bool) {
	return a.cell.Fingerprint()
}

// SubmitFunc starts an asynchronous fingerprint computation and reports
// whether it was accepted.
type SubmitFunc func(id string, req *listpreload.Request, cell *listpreload.Cell) bool

// Catalog is an ordered, mutable list of artworks with one item per position.
// It is safe for concurrent use: duplicates are removed from fingerprint
// worker goroutines while the preloader reads positions.
type Catalog struct {
	mu    sync.RWMutex
	items []*Artwork
	byID  map[string]*Artwork

	submit SubmitFunc
}

// New creates a catalog holding items in order. Items with an ID already
// present are ignored.
func New(items ...*Artwork) *Catalog {
	c := &Catalog{byID: make(map[string]*Artwork, len(items))}
	for _, a := range items {
		if _, ok := c.byID[a.ID]; ok {
			continue
		}
		c.items = append(c.items, a)
		c.byID[a.ID] = a
	}
	return c
}

// SetSubmit installs the fingerprint computation. Without one, triggered
// cells are reset and nothing is computed.
func (c *Catalog) SetSubmit(fn SubmitFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submit = fn
}

// Len returns the number of listed artworks.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the artwork with the given id.
func (c *Catalog) Get(id string) (*Artwork, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.byID[id]
	return a, ok
}

// Remove drops the artwork with the given id, shifting later positions down.
func (c *Catalog) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[id]; !ok {
		return false
	}
	delete(c.byID, id)
	for i, a := range c.items {
		if a.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	return true
}

// Restore marks the artwork's fingerprint as already known.
func (c *Catalog) Restore(id string, fp int32) bool {
	a, ok := c.Get(id)
	if !ok {
		return false
	}
	return a.cell.Restore(fp)
}

// PreloadItems implements listpreload.ModelProvider.
func (c *Catalog) PreloadItems(position int) []*Artwork {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if position < 0 || position >= len(c.items) {
		return nil
	}
	return []*Artwork{c.items[position]}
}

// PreloadRequest implements listpreload.ModelProvider. The artwork ID is the
// cache key so a view bound to the same artwork finds the preloaded resource.
func (c *Catalog) PreloadRequest(a *Artwork) *listpreload.Request {
	if a.Source == "" {
		return nil
	}
	return &listpreload.Request{Source: a.Source, Key: a.ID}
}

// FingerprintCell implements listpreload.Fingerprinter.
func (c *Catalog) FingerprintCell(a *Artwork) *listpreload.Cell {
	return &a.cell
}

// Fingerprint implements listpreload.Fingerprinter.
func (c *Catalog) Fingerprint(req *listpreload.Request, a *Artwork, cell *listpreload.Cell) {
	c.mu.RLock()
	submit := c.submit
	c.mu.RUnlock()

	if submit == nil {
		cell.Reset()
		return
	}
	submit(a.ID, req, cell)
}
