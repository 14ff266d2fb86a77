// Package profiles manages the calculator profile catalog for
// abacus-service: the built-in basic and extended profiles plus any defined
// in a TOML catalog file.
package profiles

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/ternarybob/abacus/pkg/calc"
	"github.com/ternarybob/abacus/pkg/keymap"
	"github.com/ternarybob/abacus/pkg/session"
)

// ErrUnknownProfile is returned for names missing from the catalog.
var ErrUnknownProfile = errors.New("unknown profile")

// catalogFile is the TOML catalog format:
//
//	[profiles.kiosk]
//	base = "extended"
//	max_digits = 12
//	grouping = " "
type catalogFile struct {
	Profiles map[string]toml.Primitive `toml:"profiles"`
}

type profileBase struct {
	Base string `toml:"base"`
}

// Registry holds the available profiles.
type Registry struct {
	mu         sync.RWMutex
	profiles   map[string]calc.Profile
	keymapFile string
}

// NewRegistry creates a registry holding the built-in profiles.
func NewRegistry() *Registry {
	r := &Registry{profiles: make(map[string]calc.Profile)}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.profiles = map[string]calc.Profile{
		calc.ProfileBasic:    calc.Basic(),
		calc.ProfileExtended: calc.Extended(),
	}
}

// SetKeymapFile makes new sessions load their bindings from a TOML keymap.
func (r *Registry) SetKeymapFile(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keymapFile = path
}

// LoadFile replaces the catalog with the built-ins plus the profiles in
// path. A missing file leaves only the built-ins. On error the previous
// catalog is kept.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.mu.Lock()
			r.reset()
			r.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read profiles: %w", err)
	}

	loaded, err := parseCatalog(string(data))
	if err != nil {
		return fmt.Errorf("parse profiles %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	for name, p := range loaded {
		r.profiles[name] = p
	}
	return nil
}

func parseCatalog(doc string) (map[string]calc.Profile, error) {
	var f catalogFile
	md, err := toml.Decode(doc, &f)
	if err != nil {
		return nil, err
	}

	out := make(map[string]calc.Profile, len(f.Profiles))
	for name, prim := range f.Profiles {
		var base profileBase
		if err := md.PrimitiveDecode(prim, &base); err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}

		var p calc.Profile
		switch base.Base {
		case "", calc.ProfileBasic:
			p = calc.Basic()
		case calc.ProfileExtended:
			p = calc.Extended()
		default:
			return nil, fmt.Errorf("profile %s: unknown base %q", name, base.Base)
		}

		if err := md.PrimitiveDecode(prim, &p); err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
		p.Name = name
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out[name] = p
	}
	return out, nil
}

// Get returns the named profile.
func (r *Registry) Get(name string) (calc.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[name]
	if !ok {
		return calc.Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// List returns all profiles sorted by name.
func (r *Registry) List() []calc.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]calc.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Factory returns a session factory resolving profile names against the
// registry. An empty name selects defaultProfile.
func (r *Registry) Factory(defaultProfile string) session.Factory {
	return func(name string) (*calc.Engine, *keymap.Keymap, error) {
		if name == "" {
			name = defaultProfile
		}
		p, err := r.Get(name)
		if err != nil {
			return nil, nil, err
		}

		r.mu.RLock()
		keymapFile := r.keymapFile
		r.mu.RUnlock()

		keys := keymap.Default(p)
		if keymapFile != "" {
			keys, err = keymap.LoadFile(keymapFile, p)
			if err != nil {
				return nil, nil, err
			}
		}
		return calc.New(p), keys, nil
	}
}
