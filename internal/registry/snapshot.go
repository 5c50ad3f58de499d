package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mandi-pipeline/internal/model"
)

// Snapshot is the durable registry content: the ordered group and commodity
// definitions, in the same envelope the upstream metadata API serves.
type Snapshot struct {
	Data SnapshotData `json:"data"`
}

// SnapshotData carries the two definition lists.
type SnapshotData struct {
	Groups      []model.Group    `json:"cmdt_group_data"`
	Commodities []model.Identity `json:"cmdt_data"`
}

// SnapshotStore persists the registry snapshot. Every mint rewrites the
// full snapshot.
type SnapshotStore interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// FileStore is a SnapshotStore backed by a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and decodes the snapshot file. A missing file yields an empty
// snapshot rather than an error so a fresh deployment can mint from zero.
func (f *FileStore) Load() (*Snapshot, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{}, nil
		}
		return nil, eris.Wrapf(err, "registry: read snapshot %s", f.path)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, eris.Wrapf(err, "registry: decode snapshot %s", f.path)
	}
	return &snap, nil
}

// Save writes the snapshot atomically: encode to a temp file in the same
// directory, then rename over the target.
func (f *FileStore) Save(snap *Snapshot) error {
	raw, err := json.MarshalIndent(snap, "", "    ")
	if err != nil {
		return eris.Wrap(err, "registry: encode snapshot")
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return eris.Wrapf(err, "registry: create temp file in %s", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "registry: write snapshot")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "registry: close snapshot")
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "registry: rename snapshot to %s", f.path)
	}
	return nil
}
