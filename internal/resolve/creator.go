package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/platewise/platewise/internal/storage"
	"github.com/platewise/platewise/internal/textnorm"
)

// generationConcurrency bounds parallel generator calls per batch.
const generationConcurrency = 3

// MacroProfile is a validated nutrition card at the catalog reference mass.
type MacroProfile struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
}

// Generator produces a macro profile for an ingredient name. Implementations
// must return an error for incomplete profiles; the creator never inserts an
// unvalidated card.
type Generator interface {
	MacroProfile(ctx context.Context, name string) (MacroProfile, error)
}

// Catalog is the transactional slice of storage the creator needs.
// Implemented by storage.Store.
type Catalog interface {
	InCatalogTx(ctx context.Context, fn func(tx *storage.CatalogTx) error) error
}

// Creator stages new canonical ingredients for names the matcher missed.
type Creator struct {
	generator Generator
	catalog   Catalog
	logger    *slog.Logger
}

// NewCreator creates a Creator using the given generator and catalog.
func NewCreator(generator Generator, catalog Catalog) *Creator {
	return &Creator{
		generator: generator,
		catalog:   catalog,
		logger:    slog.Default(),
	}
}

// CreateMissing obtains macro profiles for the unknown names and commits new
// catalog rows for them in a single transaction. The returned map is keyed by
// normalized name (textnorm.Normalize) so near-duplicate spellings from one
// request converge on one key.
//
// Per-name generation failures are logged and dropped; the rest of the batch
// proceeds. Storage failures roll back the entire batch and are returned:
// creation is all-or-nothing per request.
func (c *Creator) CreateMissing(ctx context.Context, unknownNames []string) (map[string]int64, error) {
	created := make(map[string]int64)
	if len(unknownNames) == 0 {
		return created, nil
	}

	// One creation call per distinct name per request.
	type card struct {
		name    string
		profile MacroProfile
	}
	distinct := make([]string, 0, len(unknownNames))
	seen := make(map[string]struct{}, len(unknownNames))
	for _, name := range unknownNames {
		key := textnorm.Normalize(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		distinct = append(distinct, name)
	}

	var mu sync.Mutex
	var cards []card

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(generationConcurrency)
	for _, name := range distinct {
		g.Go(func() error {
			profile, err := c.generator.MacroProfile(gctx, name)
			if err != nil {
				// Not fatal: this name is dropped, the batch goes on.
				c.logger.Warn("nutrition generation failed, skipping ingredient",
					"name", name, "error", err)
				return nil
			}
			mu.Lock()
			cards = append(cards, card{name: name, profile: profile})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return created, nil
	}

	// One transaction for the whole batch. Each name is re-checked by
	// exact case-insensitive lookup first: fuzzy matching may have called
	// a name unknown that an earlier request already created.
	err := c.catalog.InCatalogTx(ctx, func(tx *storage.CatalogTx) error {
		for _, cd := range cards {
			key := textnorm.Normalize(cd.name)

			if id, found, err := tx.FindByExactName(cd.name); err != nil {
				return fmt.Errorf("re-checking %q: %w", cd.name, err)
			} else if found {
				created[key] = id
				continue
			}

			id, err := tx.InsertIngredient(cd.name,
				cd.profile.Calories, cd.profile.Protein, cd.profile.Carbs, cd.profile.Fat,
				storage.ReferenceMass)
			if err != nil {
				return fmt.Errorf("inserting %q: %w", cd.name, err)
			}
			created[key] = id
		}
		return nil
	})
	if err != nil {
		// Partial creation must never be silently swallowed: downstream
		// item lists would reference ids that do not exist.
		return nil, fmt.Errorf("creating ingredient batch: %w", err)
	}

	c.logger.Debug("ingredient batch committed", "created", len(created))
	return created, nil
}
