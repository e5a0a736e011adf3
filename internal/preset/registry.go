package preset

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/supportdesk/intake-engine/internal/domain"
)

// DefaultMaxAge is how long a loaded preset file is trusted before being
// re-read from disk.
const DefaultMaxAge = 30 * time.Second

// Registry resolves preset ids to presets. It always knows the built-in
// presets and can additionally serve presets from a YAML file, cached with
// a max age and manual invalidation. The registry is injected into its
// consumers; there is no package-level instance.
type Registry struct {
	path   string
	maxAge time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	builtin  map[string]*Preset
	fromFile map[string]*Preset
	loadedAt time.Time
}

// NewRegistry creates a registry with the built-in presets. path may be
// empty, in which case only built-ins are served.
func NewRegistry(path string, maxAge time.Duration) *Registry {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Registry{
		path:   path,
		maxAge: maxAge,
		now:    time.Now,
		builtin: map[string]*Preset{
			ITSupportV1ID: ITSupportV1(),
		},
	}
}

// Get returns the preset for id. Unknown ids fail with ErrPresetNotFound;
// there is no silent fallback to a default preset.
func (r *Registry) Get(id string) (*Preset, error) {
	if err := r.refresh(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.fromFile[id]; ok {
		return p, nil
	}
	if p, ok := r.builtin[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrPresetNotFound, id)
}

// Invalidate drops the file cache so the next Get re-reads the preset file.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loadedAt = time.Time{}
}

func (r *Registry) refresh() error {
	if r.path == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loadedAt.IsZero() && r.now().Sub(r.loadedAt) < r.maxAge {
		return nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("reading preset file %s: %w", r.path, err)
	}

	var file struct {
		Presets []*Preset `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing preset file %s: %w", r.path, err)
	}

	loaded := make(map[string]*Preset, len(file.Presets))
	for _, p := range file.Presets {
		if p.ID == "" {
			return fmt.Errorf("preset file %s: preset without id", r.path)
		}
		loaded[p.ID] = p
	}

	r.fromFile = loaded
	r.loadedAt = r.now()
	return nil
}
