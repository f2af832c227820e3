package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/starford/pageindex/internal/models"
)

// PagesKey is the store key of the page snapshot.
const PagesKey = "dashboard.pages.cache"

// Pages reads and writes the page snapshot of one workspace.
type Pages struct {
	store Store
	scope string
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// NewPages creates a snapshot codec over store for scope.
func NewPages(store Store, scope string) (*Pages, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("cache: zstd reader: %w", err)
	}
	return &Pages{store: store, scope: scope, enc: enc, dec: dec}, nil
}

// Load returns the stored snapshot. A missing snapshot is an empty one.
func (p *Pages) Load(ctx context.Context) ([]models.Page, error) {
	data, ok, err := p.store.Get(ctx, p.scope, PagesKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	raw, err := p.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: decompress pages: %w", err)
	}
	var pages []models.Page
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, fmt.Errorf("cache: decode pages: %w", err)
	}
	return pages, nil
}

// Save replaces the stored snapshot.
func (p *Pages) Save(ctx context.Context, pages []models.Page) error {
	if pages == nil {
		pages = []models.Page{}
	}
	raw, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("cache: encode pages: %w", err)
	}
	return p.store.Set(ctx, p.scope, PagesKey, p.enc.EncodeAll(raw, nil))
}

// Clear removes the stored snapshot.
func (p *Pages) Clear(ctx context.Context) error {
	return p.store.Delete(ctx, p.scope, PagesKey)
}

// Close releases the codec. The store is closed by its owner.
func (p *Pages) Close() {
	p.enc.Close()
	p.dec.Close()
}
