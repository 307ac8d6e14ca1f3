// Package catalog merges token lists from several providers into one
// searchable, read-mostly catalog.
package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aman-zulfiqar/omega-swap-engine/internal/metrics"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/models"
	"github.com/aman-zulfiqar/omega-swap-engine/internal/swaperr"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Warning reports a provider that could not contribute to a load.
type Warning struct {
	Provider string
	Err      error
}

func (w Warning) Error() string {
	return w.Provider + ": " + w.Err.Error()
}

// AsError returns the warning in the swap error taxonomy.
func (w Warning) AsError() *swaperr.Error {
	return swaperr.Wrap(swaperr.KindCatalogLoadWarning, "token list "+w.Provider+" unavailable", w.Err)
}

// Searcher looks tokens up remotely when the local catalog has no match.
type Searcher interface {
	SearchTokens(ctx context.Context, query string) ([]models.TokenDescriptor, error)
}

// Load fetches every provider concurrently and merges the results in
// provider order. A failing provider becomes a warning, never an error.
func Load(ctx context.Context, providers []ListProvider, logger *logrus.Logger) ([]models.TokenDescriptor, []Warning) {
	if logger == nil {
		logger = logrus.New()
	}

	lists := make([][]models.TokenDescriptor, len(providers))
	errs := make([]error, len(providers))

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			raw, err := p.Fetch(ctx)
			if err != nil {
				errs[i] = err
				return nil
			}
			tokens, err := p.Normalize(raw)
			if err != nil {
				errs[i] = err
				return nil
			}
			lists[i] = tokens
			return nil
		})
	}
	_ = g.Wait()

	var warnings []Warning
	byAddr := make(map[string]models.TokenDescriptor)
	// firstSeen records which provider listed an address first, so a list
	// repeating its own entry does not count as a second source.
	firstSeen := make(map[string]int)
	for i, p := range providers {
		if errs[i] != nil {
			w := Warning{Provider: p.Name(), Err: errs[i]}
			warnings = append(warnings, w)
			metrics.CatalogWarnings.WithLabelValues(p.Name()).Inc()
			logger.WithField("provider", p.Name()).WithError(errs[i]).Warn("token list load failed")
			continue
		}
		for _, t := range lists[i] {
			owner, seen := firstSeen[t.Address]
			switch {
			case !seen:
				firstSeen[t.Address] = i
			case owner != i:
				t.Provenance = models.ProvenanceBoth
			}
			byAddr[t.Address] = t
		}
	}

	out := make([]models.TokenDescriptor, 0, len(byAddr))
	for _, t := range byAddr {
		out = append(out, t)
	}
	sortTokens(out)
	return out, warnings
}

func sortTokens(tokens []models.TokenDescriptor) {
	sort.SliceStable(tokens, func(i, j int) bool {
		si, sj := strings.ToLower(tokens[i].Symbol), strings.ToLower(tokens[j].Symbol)
		if si != sj {
			return si < sj
		}
		return tokens[i].Address < tokens[j].Address
	})
}

// Catalog holds the merged token list. Reads never wait on a refresh;
// Refresh has a single writer.
type Catalog struct {
	providers []ListProvider
	searcher  Searcher
	logger    *logrus.Logger

	mu     sync.RWMutex
	tokens []models.TokenDescriptor
	index  map[string]models.TokenDescriptor

	refresh singleflight.Group
}

type Config struct {
	Providers []ListProvider
	Searcher  Searcher
	Logger    *logrus.Logger
}

func New(cfg Config) *Catalog {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Catalog{
		providers: cfg.Providers,
		searcher:  cfg.Searcher,
		logger:    cfg.Logger,
		index:     make(map[string]models.TokenDescriptor),
	}
}

// Refresh reloads every provider and swaps the catalog in one step.
// Concurrent callers share the load already in flight.
func (c *Catalog) Refresh(ctx context.Context) []Warning {
	v, _, _ := c.refresh.Do("refresh", func() (any, error) {
		tokens, warnings := Load(ctx, c.providers, c.logger)
		index := make(map[string]models.TokenDescriptor, len(tokens))
		for _, t := range tokens {
			index[t.Address] = t
		}

		c.mu.Lock()
		c.tokens = tokens
		c.index = index
		c.mu.Unlock()

		c.logger.WithFields(logrus.Fields{
			"tokens":   len(tokens),
			"warnings": len(warnings),
		}).Info("token catalog refreshed")
		return warnings, nil
	})
	warnings, _ := v.([]Warning)
	return warnings
}

// All returns the catalog sorted by symbol.
func (c *Catalog) All() []models.TokenDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.TokenDescriptor, len(c.tokens))
	copy(out, c.tokens)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}

func (c *Catalog) Lookup(address string) (models.TokenDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.index[address]
	return t, ok
}

// FindByQuery matches query case-insensitively against symbol and name.
// An empty query returns every token.
func (c *Catalog) FindByQuery(query string) []models.TokenDescriptor {
	return FindByQuery(c.All(), query)
}

// Search is FindByQuery with a remote fallback for queries the loaded
// lists do not cover. Remote hits are returned, not merged.
func (c *Catalog) Search(ctx context.Context, query string) ([]models.TokenDescriptor, error) {
	local := c.FindByQuery(query)
	if len(local) > 0 || c.searcher == nil || strings.TrimSpace(query) == "" {
		return local, nil
	}
	remote, err := c.searcher.SearchTokens(ctx, query)
	if err != nil {
		return nil, err
	}
	sortTokens(remote)
	return remote, nil
}

// FindByQuery filters tokens by a case-insensitive substring of symbol or
// name, sorted by symbol.
func FindByQuery(tokens []models.TokenDescriptor, query string) []models.TokenDescriptor {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.TokenDescriptor, 0)
	for _, t := range tokens {
		if q == "" ||
			strings.Contains(strings.ToLower(t.Symbol), q) ||
			strings.Contains(strings.ToLower(t.Name), q) {
			out = append(out, t)
		}
	}
	sortTokens(out)
	return out
}
