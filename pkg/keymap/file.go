package keymap

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/ternarybob/abacus/pkg/calc"
)

// File is the TOML keymap format:
//
//	unbind = ["x"]
//
//	[bindings]
//	"q" = "clear"
//	"Numpad+" = "+"
type File struct {
	Unbind   []string          `toml:"unbind"`
	Bindings map[string]string `toml:"bindings"`
}

// LoadFile reads a TOML keymap and applies it on top of the profile's
// default bindings.
func LoadFile(path string, p calc.Profile) (*Keymap, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode keymap %s: %w", path, err)
	}
	return apply(Default(p), &f)
}

// Parse decodes a TOML keymap document on top of the profile defaults.
func Parse(doc string, p calc.Profile) (*Keymap, error) {
	var f File
	if _, err := toml.Decode(doc, &f); err != nil {
		return nil, fmt.Errorf("decode keymap: %w", err)
	}
	return apply(Default(p), &f)
}

func apply(m *Keymap, f *File) (*Keymap, error) {
	for _, tok := range f.Unbind {
		m.Unbind(tok)
	}
	for tok, action := range f.Bindings {
		k, err := ParseAction(action)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", tok, err)
		}
		m.Bind(tok, k)
	}
	return m, nil
}
