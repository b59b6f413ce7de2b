package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/nurkhatq/connect/internal/model"
)

// Catalog is the on-disk format of CATALOG_PATH.
type Catalog struct {
	Tests     []model.CatalogTest     `json:"tests"`
	Questions []model.CatalogQuestion `json:"questions"`
}

// CatalogRepository serves tests and their question bank. It is read-only
// after construction.
type CatalogRepository struct {
	tests      map[string]model.CatalogTest
	order      []string
	byCategory map[model.TestCategory][]model.CatalogQuestion
	byID       map[string]model.CatalogQuestion
}

// NewCatalogRepository indexes cat.
func NewCatalogRepository(cat Catalog) *CatalogRepository {
	r := &CatalogRepository{
		tests:      make(map[string]model.CatalogTest, len(cat.Tests)),
		byCategory: make(map[model.TestCategory][]model.CatalogQuestion),
		byID:       make(map[string]model.CatalogQuestion, len(cat.Questions)),
	}
	for _, t := range cat.Tests {
		if t.PassingScore == 0 {
			t.PassingScore = 70
		}
		if _, dup := r.tests[t.ID]; !dup {
			r.order = append(r.order, t.ID)
		}
		r.tests[t.ID] = t
	}
	for _, q := range cat.Questions {
		r.byCategory[q.Category] = append(r.byCategory[q.Category], q)
		r.byID[q.ID] = q
	}
	return r
}

// LoadCatalog reads a catalog JSON file.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(cat.Tests) == 0 {
		return Catalog{}, fmt.Errorf("catalog %s has no tests", path)
	}
	return cat, nil
}

// ListTests returns active tests in catalog order, optionally filtered by category.
func (r *CatalogRepository) ListTests(category model.TestCategory) []model.CatalogTest {
	out := make([]model.CatalogTest, 0, len(r.order))
	for _, id := range r.order {
		t := r.tests[id]
		if !t.IsActive {
			continue
		}
		if category != "" && t.Category != category {
			continue
		}
		out = append(out, t)
	}
	return out
}

// GetTest returns an active test by ID.
func (r *CatalogRepository) GetTest(id string) (model.CatalogTest, bool) {
	t, ok := r.tests[id]
	if !ok || !t.IsActive {
		return model.CatalogTest{}, false
	}
	return t, true
}

// QuestionsFor returns the question bank of a category, sorted by ID.
func (r *CatalogRepository) QuestionsFor(category model.TestCategory) []model.CatalogQuestion {
	qs := append([]model.CatalogQuestion(nil), r.byCategory[category]...)
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	return qs
}

// Question returns a bank question by ID.
func (r *CatalogRepository) Question(id string) (model.CatalogQuestion, bool) {
	q, ok := r.byID[id]
	return q, ok
}
