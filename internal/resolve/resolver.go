// Package resolve turns free-text commodity names from either source into
// durable registry codes, minting a new identity when no rule matches.
package resolve

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/mandi-pipeline/internal/model"
	"github.com/sells-group/mandi-pipeline/internal/registry"
)

// Resolver resolves commodity names against the registry through an ordered
// matcher cascade.
type Resolver struct {
	reg      *registry.Registry
	matchers []Matcher
}

// New creates a Resolver with the default matcher cascade.
func New(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg, matchers: DefaultMatchers()}
}

// NewWithMatchers creates a Resolver with a custom cascade. Matchers run in
// the given order; the first hit wins.
func NewWithMatchers(reg *registry.Registry, matchers []Matcher) *Resolver {
	return &Resolver{reg: reg, matchers: matchers}
}

// Resolve maps a free-text commodity name to a registry code. Each matcher
// is tried exhaustively against the full registry before falling through to
// the next; if none hit, a new identity is minted with the original,
// untrimmed input as its canonical name. Empty input resolves to nothing
// without minting.
func (r *Resolver) Resolve(name string) (string, bool) {
	if strings.TrimSpace(name) == "" {
		return "", false
	}

	ix := r.buildIndex()
	for _, m := range r.matchers {
		if code, ok := m.Match(ix, name); ok {
			return code, true
		}
	}

	id := r.reg.Mint(name)
	zap.L().Debug("resolve: minted identity for unmatched name",
		zap.String("name", name),
		zap.String("code", id.Code),
	)
	return id.Code, true
}

// buildIndex snapshots the registry names into lookup maps. Earlier
// registry entries win on collision so resolution is stable across runs.
func (r *Resolver) buildIndex() *index {
	commodities := r.reg.Commodities()
	ix := &index{
		byLower:   make(map[string]string, len(commodities)),
		byNoSpace: make(map[string]string, len(commodities)),
	}
	for _, c := range commodities {
		lower := strings.ToLower(c.Name)
		if _, seen := ix.byLower[lower]; !seen {
			ix.byLower[lower] = c.Code
		}
		noSpace := stripSpace(lower)
		if _, seen := ix.byNoSpace[noSpace]; !seen {
			ix.byNoSpace[noSpace] = c.Code
		}
	}
	return ix
}

// Identity returns the full registry identity for a code, if present.
func (r *Resolver) Identity(code string) (model.Identity, bool) {
	for _, c := range r.reg.Commodities() {
		if c.Code == code {
			return c, true
		}
	}
	return model.Identity{}, false
}
