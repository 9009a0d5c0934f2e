// Package search maintains an in-memory full-text index over the listed
// companies.
package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"tidder/internal/domain"
)

// DefaultLimit caps results when the caller gives no limit.
const DefaultLimit = 10

// Index is a bleve index over symbol, name, sector and industry. It is safe
// for concurrent use; Rebuild swaps in a fresh index atomically.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	order map[string]int // listing position, for tie-breaks
}

// New builds an index over companies.
func New(companies []domain.Company) (*Index, error) {
	ix := &Index{}
	if err := ix.Rebuild(companies); err != nil {
		return nil, err
	}
	return ix, nil
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	// Symbols are matched whole or by prefix, so they are not tokenised.
	sym := bleve.NewKeywordFieldMapping()
	sym.Store = true
	doc.AddFieldMappingsAt("symbol", sym)

	text := bleve.NewTextFieldMapping()
	text.Store = true
	doc.AddFieldMappingsAt("name", text)
	doc.AddFieldMappingsAt("sector", text)
	doc.AddFieldMappingsAt("industry", text)

	im.DefaultMapping = doc
	return im
}

// Rebuild replaces the indexed companies.
func (ix *Index) Rebuild(companies []domain.Company) error {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	batch := idx.NewBatch()
	order := make(map[string]int, len(companies))
	for i, c := range companies {
		order[c.Symbol] = i
		doc := map[string]interface{}{
			"symbol":   strings.ToLower(c.Symbol),
			"name":     c.Name,
			"sector":   c.Sector,
			"industry": c.Industry,
		}
		if err := batch.Index(c.Symbol, doc); err != nil {
			idx.Close()
			return fmt.Errorf("indexing %s: %w", c.Symbol, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		idx.Close()
		return fmt.Errorf("executing batch: %w", err)
	}

	ix.mu.Lock()
	old := ix.index
	ix.index = idx
	ix.order = order
	ix.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// Search returns up to limit companies matching q, best first: exact symbol,
// then symbol prefix, then name and sector words. A blank query returns
// nothing.
func (ix *Index) Search(q string, limit int) ([]domain.SymbolEntry, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	lower := strings.ToLower(q)

	exact := bleve.NewTermQuery(lower)
	exact.SetField("symbol")
	exact.SetBoost(10)

	prefix := bleve.NewPrefixQuery(lower)
	prefix.SetField("symbol")
	prefix.SetBoost(5)

	name := bleve.NewMatchQuery(q)
	name.SetField("name")
	name.SetBoost(3)

	namePrefix := bleve.NewPrefixQuery(lower)
	namePrefix.SetField("name")
	namePrefix.SetBoost(2)

	sector := bleve.NewMatchQuery(q)
	sector.SetField("sector")

	industry := bleve.NewMatchQuery(q)
	industry.SetField("industry")

	dq := bleve.NewDisjunctionQuery(exact, prefix, name, namePrefix, sector, industry)
	req := bleve.NewSearchRequestOptions(dq, limit, 0, false)
	req.Fields = []string{"name"}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	res, err := ix.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", q, err)
	}

	hits := res.Hits
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return ix.order[hits[i].ID] < ix.order[hits[j].ID]
	})

	out := make([]domain.SymbolEntry, 0, len(hits))
	for _, hit := range hits {
		nm, _ := hit.Fields["name"].(string)
		out = append(out, domain.SymbolEntry{Symbol: hit.ID, Name: nm})
	}
	return out, nil
}

// Len returns the number of indexed companies.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.order)
}

// Close releases the index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.index == nil {
		return nil
	}
	err := ix.index.Close()
	ix.index = nil
	return err
}
