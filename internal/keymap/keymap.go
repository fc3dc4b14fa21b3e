package keymap

import (
	"fmt"
	"strings"
)

// Mode selects how source keys are rewritten on the destination side.
type Mode string

const (
	// ModeIdentity keeps every key unchanged.
	ModeIdentity Mode = "identity"
	// ModePrefixRewrite replaces the first occurrence of a substring.
	ModePrefixRewrite Mode = "prefix-rewrite"
)

// Rule describes the key rewrite applied to every migrated object.
// The zero value behaves as the identity rule.
type Rule struct {
	Mode Mode   `yaml:"mode"`
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Map returns the destination key for a source key. It is pure and total:
// the same input always yields the same output and there are no error
// conditions. For prefix-rewrite, only the first occurrence of From is
// replaced; a key that does not contain From passes through unchanged.
func (r Rule) Map(key string) string {
	if r.Mode == ModePrefixRewrite {
		return strings.Replace(key, r.From, r.To, 1)
	}
	return key
}

// Remaps reports whether the rule would change the given key.
func (r Rule) Remaps(key string) bool {
	return r.Map(key) != key
}

// Validate checks that the rule is one of the recognized modes.
func (r Rule) Validate() error {
	switch r.Mode {
	case "", ModeIdentity:
		return nil
	case ModePrefixRewrite:
		if r.From == "" {
			return fmt.Errorf("rename rule %q requires a non-empty 'from'", ModePrefixRewrite)
		}
		return nil
	default:
		return fmt.Errorf("unknown rename mode %q", r.Mode)
	}
}
