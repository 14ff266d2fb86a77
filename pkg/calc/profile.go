package calc

import "fmt"

// Delete-on-fresh policies, applied when DeleteLast is pressed while the
// engine is waiting for a new number.
const (
	DeleteReset  = "reset"
	DeleteIgnore = "ignore"
)

// Built-in profile names.
const (
	ProfileBasic    = "basic"
	ProfileExtended = "extended"
)

// Default tunables.
const (
	DefaultHistorySize = 10
	DefaultGrouping    = ","
)

// Profile holds the tunables that distinguish calculator variants.
type Profile struct {
	Name string `toml:"name" json:"name"`

	// Precision is the number of decimal places results are rounded to.
	Precision int `toml:"precision" json:"precision"`

	// MaxDigits caps typed numerals. Zero means unlimited.
	MaxDigits int `toml:"max_digits" json:"max_digits"`

	HistorySize   int    `toml:"history_size" json:"history_size"`
	DeleteOnFresh string `toml:"delete_on_fresh" json:"delete_on_fresh"`

	// Percent binds the percent key in translators.
	Percent bool `toml:"percent" json:"percent"`

	// HistoryPanel exposes clear-history to front ends.
	HistoryPanel bool   `toml:"history_panel" json:"history_panel"`
	Grouping     string `toml:"grouping" json:"grouping"`
}

// Basic returns the basic keypad profile.
func Basic() Profile {
	return Profile{
		Name:          ProfileBasic,
		Precision:     8,
		HistorySize:   DefaultHistorySize,
		DeleteOnFresh: DeleteReset,
		Grouping:      DefaultGrouping,
	}
}

// Extended returns the extended profile with keyboard input and a history
// panel.
func Extended() Profile {
	return Profile{
		Name:          ProfileExtended,
		Precision:     10,
		MaxDigits:     15,
		HistorySize:   DefaultHistorySize,
		DeleteOnFresh: DeleteIgnore,
		Percent:       true,
		HistoryPanel:  true,
		Grouping:      DefaultGrouping,
	}
}

// Validate checks the profile for values the engine cannot honour.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.Precision < 0 || p.Precision > 15 {
		return fmt.Errorf("profile %s: precision %d out of range 0-15", p.Name, p.Precision)
	}
	if p.MaxDigits < 0 {
		return fmt.Errorf("profile %s: max_digits must not be negative", p.Name)
	}
	if p.HistorySize < 0 {
		return fmt.Errorf("profile %s: history_size must not be negative", p.Name)
	}
	switch p.DeleteOnFresh {
	case "", DeleteReset, DeleteIgnore:
	default:
		return fmt.Errorf("profile %s: unknown delete_on_fresh policy %q", p.Name, p.DeleteOnFresh)
	}
	return nil
}

// withDefaults fills zero-valued fields that have non-zero defaults.
func (p Profile) withDefaults() Profile {
	if p.HistorySize == 0 {
		p.HistorySize = DefaultHistorySize
	}
	if p.DeleteOnFresh == "" {
		p.DeleteOnFresh = DeleteReset
	}
	return p
}
