// Package registry holds the durable commodity registry: the single source
// of truth mapping commodity identities to canonical names, groups and
// numeric ids.
package registry

import (
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/mandi-pipeline/internal/model"
)

// Registry is the in-process view of the commodity registry. All reads and
// mints go through it; the snapshot store provides durability. A single
// writer mutex serializes mints so two resolver calls racing on the same
// novel name cannot produce two identities.
type Registry struct {
	mu    sync.Mutex
	store SnapshotStore
	snap  *Snapshot
}

// Load reads the snapshot from the store and returns a ready Registry.
func Load(store SnapshotStore) (*Registry, error) {
	snap, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Registry{store: store, snap: snap}, nil
}

// Groups returns the group definitions in snapshot order.
func (r *Registry) Groups() []model.Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Group(nil), r.snap.Data.Groups...)
}

// Commodities returns the commodity definitions in snapshot order.
func (r *Registry) Commodities() []model.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Identity(nil), r.snap.Data.Commodities...)
}

// Lookup finds the identity whose canonical name matches the given name
// case-insensitively.
func (r *Registry) Lookup(name string) (model.Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lower := strings.ToLower(name)
	for _, c := range r.snap.Data.Commodities {
		if strings.ToLower(c.Name) == lower {
			return c, true
		}
	}
	return model.Identity{}, false
}

// Mint creates a new identity for a commodity name the registry has never
// seen, appends it to the snapshot and rewrites the snapshot durably. If
// the durable write fails, the identity is logged and still returned so
// the current run can use it: the mint guarantee is at-least-once, and a
// later run may re-mint the same name if this write was lost.
//
// The original, untrimmed name becomes the canonical name of the new entry.
func (r *Registry) Mint(name string) model.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	maxID := 0
	maxSuffix := 0
	for _, c := range r.snap.Data.Commodities {
		if c.NumericID > maxID {
			maxID = c.NumericID
		}
		if strings.HasPrefix(c.Code, model.CodePrefix) {
			if n, err := strconv.Atoi(strings.TrimPrefix(c.Code, model.CodePrefix)); err == nil && n > maxSuffix {
				maxSuffix = n
			}
		}
	}

	id := model.Identity{
		NumericID: maxID + 1,
		Name:      name,
		GroupID:   model.UnclassifiedGroupID,
		Code:      model.CodePrefix + strconv.Itoa(maxSuffix+1),
	}
	r.snap.Data.Commodities = append(r.snap.Data.Commodities, id)

	if err := r.store.Save(r.snap); err != nil {
		zap.L().Error("registry: snapshot write failed after mint; identity kept for this run",
			zap.String("name", name),
			zap.String("code", id.Code),
			zap.Error(err),
		)
	} else {
		zap.L().Info("registry: minted new commodity",
			zap.String("name", name),
			zap.String("code", id.Code),
		)
	}
	return id
}

// Replace swaps the whole snapshot (used by registry import) and persists it.
func (r *Registry) Replace(snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = snap
	return r.store.Save(snap)
}
