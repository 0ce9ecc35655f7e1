package pattern

import (
	"fmt"
	"path"
	"sort"
	"strconv"
)

// Matcher answers a yes/no question about a name.
type Matcher interface {
	MatchBool(text string) bool
}

// Mode combines the results of a Multimatcher's entries.
type Mode string

const (
	// ModeAny accepts when at least one entry matches.
	ModeAny Mode = "any"
	// ModeAll accepts when every entry matches.
	ModeAll Mode = "all"
)

// Multimatcher evaluates a list of filter rules into a single decision.
type Multimatcher struct {
	mode    Mode
	include []Rule
	exclude []Rule
}

// NewMultimatcher compiles include and exclude entries in filter context.
// Any matching exclude entry rejects the text.
func NewMultimatcher(mode Mode, include []Spec, exclude []Spec) (*Multimatcher, error) {
	if mode == "" {
		mode = ModeAny
	}
	if mode != ModeAny && mode != ModeAll {
		return nil, fmt.Errorf("unknown match mode %q", mode)
	}
	inc, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}
	return &Multimatcher{mode: mode, include: inc, exclude: exc}, nil
}

func compileAll(specs []Spec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for _, s := range specs {
		r, err := s.Compile(FilterContext)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// MatchBool implements Matcher.
func (m *Multimatcher) MatchBool(text string) bool {
	for _, r := range m.exclude {
		if _, ok := r.Match(text); ok {
			return false
		}
	}
	if len(m.include) == 0 {
		return false
	}
	for _, r := range m.include {
		_, ok := r.Match(text)
		if ok && m.mode == ModeAny {
			return true
		}
		if !ok && m.mode == ModeAll {
			return false
		}
	}
	return m.mode == ModeAll
}

// DigitSorter orders names by a numeric key extracted with a Group rule.
// Names without a key sort last. Ties fall back to plain string order.
type DigitSorter struct {
	key *Group
}

// NewDigitSorter returns a sorter keyed by the first run of digits in the base name.
func NewDigitSorter() *DigitSorter {
	return &DigitSorter{key: MustGroup(`(\d+)`, 1)}
}

// NewKeySorter returns a sorter keyed by group of pattern.
func NewKeySorter(pattern string, group int) (*DigitSorter, error) {
	g, err := NewGroup(pattern, group)
	if err != nil {
		return nil, err
	}
	return &DigitSorter{key: g}, nil
}

// Sort orders items in place.
func (d *DigitSorter) Sort(items []string) {
	type keyed struct {
		n  int64
		ok bool
	}
	keys := make(map[string]keyed, len(items))
	for _, it := range items {
		k := keyed{}
		if v, ok := d.key.Match(path.Base(it)); ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				k = keyed{n: n, ok: true}
			}
		}
		keys[it] = k
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := keys[items[i]], keys[items[j]]
		switch {
		case a.ok && b.ok && a.n != b.n:
			return a.n < b.n
		case a.ok != b.ok:
			return a.ok
		default:
			return items[i] < items[j]
		}
	})
}
