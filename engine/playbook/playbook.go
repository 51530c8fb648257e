// Package playbook loads and routes named chunking/evaluation presets:
// a product declares a playbook id, and every default that would
// otherwise come from the content analyzer's general-purpose table is
// overridden by the playbook's own values.
package playbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/primedata-ai/aird/engine/domain"
	"gopkg.in/yaml.v3"
)

// Router resolves a playbook id to its loaded Playbook, preferring a YAML
// file on disk and falling back to the built-in presets.
type Router struct {
	dir       string
	builtins  map[string]domain.Playbook
	userCache map[string]domain.Playbook
}

// NewRouter builds a Router that looks for "{id}.yaml" under dir (a
// case-insensitive match on the file stem, per the original loader).
// dir may be empty, in which case only the built-ins are available.
func NewRouter(dir string) *Router {
	return &Router{
		dir:       dir,
		builtins:  builtinPlaybooks(),
		userCache: map[string]domain.Playbook{},
	}
}

// Resolve returns the playbook for id, loading it from dir on first use and
// caching it for subsequent calls. Falls back to the TECH playbook if id is
// empty or unknown and no file matches.
func (r *Router) Resolve(id string) (domain.Playbook, error) {
	if id == "" {
		id = domain.PlaybookTech
	}
	if pb, ok := r.userCache[id]; ok {
		return pb, nil
	}

	if r.dir != "" {
		if path := r.findPlaybookFile(id); path != "" {
			pb, err := loadFromFile(path)
			if err != nil {
				return domain.Playbook{}, fmt.Errorf("playbook: load %s: %w", path, err)
			}
			pb.ID = id
			r.userCache[id] = pb
			return pb, nil
		}
	}

	if pb, ok := r.builtins[strings.ToUpper(id)]; ok {
		return pb, nil
	}
	if pb, ok := r.builtins[id]; ok {
		return pb, nil
	}

	return r.builtins[domain.PlaybookTech], nil
}

// findPlaybookFile searches dir for "{id}.yaml", falling back to a
// case-insensitive stem match.
func (r *Router) findPlaybookFile(id string) string {
	direct := filepath.Join(r.dir, id+".yaml")
	if _, err := os.Stat(direct); err == nil {
		return direct
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".yaml") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if strings.EqualFold(stem, id) {
			return filepath.Join(r.dir, e.Name())
		}
	}
	return ""
}

func loadFromFile(path string) (domain.Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Playbook{}, err
	}
	var pb domain.Playbook
	if err := yaml.Unmarshal(data, &pb); err != nil {
		return domain.Playbook{}, err
	}
	return pb, nil
}
