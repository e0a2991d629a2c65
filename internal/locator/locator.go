package locator

import (
	"fmt"
	"sort"
	"strings"
)

// Strategy is how a selector string is interpreted
type Strategy string

const (
	ByID         Strategy = "id"
	ByCSS        Strategy = "css"
	ByAttrPrefix Strategy = "attr-prefix" // selector is "attribute=prefix"
)

// Locator identifies a DOM element or element set within the page
type Locator struct {
	Strategy Strategy `mapstructure:"strategy" yaml:"strategy"`
	Selector string   `mapstructure:"selector" yaml:"selector"`
}

// ID returns a locator matching an element id
func ID(id string) Locator { return Locator{Strategy: ByID, Selector: id} }

// CSS returns a locator for a CSS selector
func CSS(selector string) Locator { return Locator{Strategy: ByCSS, Selector: selector} }

// AttrPrefix returns a locator matching elements whose attribute starts with prefix
func AttrPrefix(attr, prefix string) Locator {
	return Locator{Strategy: ByAttrPrefix, Selector: attr + "=" + prefix}
}

// CSS converts the locator to an equivalent CSS selector. Every page backend
// queries through CSS so a locator resolves the same way everywhere.
func (l Locator) CSS() (string, error) {
	if strings.TrimSpace(l.Selector) == "" {
		return "", fmt.Errorf("empty %s selector", l.Strategy)
	}
	switch l.Strategy {
	case ByID:
		return `[id="` + escapeSelector(l.Selector) + `"]`, nil
	case ByCSS:
		return l.Selector, nil
	case ByAttrPrefix:
		attr, prefix, ok := strings.Cut(l.Selector, "=")
		if !ok || attr == "" {
			return "", fmt.Errorf("attr-prefix selector %q must be attribute=prefix", l.Selector)
		}
		return "[" + attr + `^="` + escapeSelector(prefix) + `"]`, nil
	default:
		return "", fmt.Errorf("unknown locator strategy: %q", l.Strategy)
	}
}

func (l Locator) String() string {
	return string(l.Strategy) + ":" + l.Selector
}

func escapeSelector(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Set maps semantic roles to their locators
type Set map[Role]Locator

// Get returns the locator for role
func (s Set) Get(role Role) (Locator, error) {
	l, ok := s[role]
	if !ok {
		return Locator{}, fmt.Errorf("no locator for role %q", role)
	}
	return l, nil
}

// Merge returns a copy of s with overrides applied on top
func (s Set) Merge(overrides Set) Set {
	out := make(Set, len(s)+len(overrides))
	for role, l := range s {
		out[role] = l
	}
	for role, l := range overrides {
		out[role] = l
	}
	return out
}

// Validate reports every role in roles that is missing from the set or does
// not translate to a selector.
func (s Set) Validate(roles ...Role) error {
	var problems []string
	for _, role := range roles {
		l, ok := s[role]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: unresolved", role))
			continue
		}
		if _, err := l.CSS(); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", role, err))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid locators: %s", strings.Join(problems, "; "))
}
