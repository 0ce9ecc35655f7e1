package pattern

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidRule is the sentinel wrapped by every RuleError.
var ErrInvalidRule = errors.New("invalid matching rule")

// RuleError reports a rule that could not be compiled.
type RuleError struct {
	// Pattern is the offending pattern text.
	Pattern string
	// Reason describes what is wrong with it.
	Reason string
	// Err is the underlying compile error, if any.
	Err error
}

func (e *RuleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid rule %q: %s: %v", e.Pattern, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid rule %q: %s", e.Pattern, e.Reason)
}

// Unwrap returns the compile error.
func (e *RuleError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidRule
}

// Is reports whether target is ErrInvalidRule.
func (e *RuleError) Is(target error) bool {
	return target == ErrInvalidRule
}

// Rule evaluates a single matching rule against a text.
// An empty captured value is reported as no match.
type Rule interface {
	Match(text string) (string, bool)
}

// Evaluate applies rule to text.
func Evaluate(rule Rule, text string) (string, bool) {
	if rule == nil {
		return "", false
	}
	return rule.Match(text)
}

// Literal matches when the whole text matches its pattern.
type Literal struct {
	pattern string
	re      *regexp.Regexp
}

// NewLiteral compiles a full-string match rule.
func NewLiteral(pattern string) (*Literal, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, &RuleError{Pattern: pattern, Reason: "compile", Err: err}
	}
	return &Literal{pattern: pattern, re: re}, nil
}

// Match returns text when it fully matches.
func (l *Literal) Match(text string) (string, bool) {
	if text == "" || !l.re.MatchString(text) {
		return "", false
	}
	return text, true
}

// String returns the source pattern.
func (l *Literal) String() string { return l.pattern }

// Group searches its pattern anywhere in the text and captures one group.
type Group struct {
	pattern string
	group   int
	re      *regexp.Regexp
}

// NewGroup compiles a search rule returning capture group index group (0 = whole match).
func NewGroup(pattern string, group int) (*Group, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &RuleError{Pattern: pattern, Reason: "compile", Err: err}
	}
	if group < 0 || group > re.NumSubexp() {
		return nil, &RuleError{
			Pattern: pattern,
			Reason:  fmt.Sprintf("group %d out of range (pattern has %d groups)", group, re.NumSubexp()),
		}
	}
	return &Group{pattern: pattern, group: group, re: re}, nil
}

// Match returns the captured group of the leftmost match.
func (g *Group) Match(text string) (string, bool) {
	loc := g.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", false
	}
	start, end := loc[2*g.group], loc[2*g.group+1]
	// group did not take part in the match
	if start < 0 || start == end {
		return "", false
	}
	return text[start:end], true
}

// String returns the source pattern.
func (g *Group) String() string { return g.pattern }

// All requires every sub-rule to match.
type All struct {
	rules []Rule
}

// NewAll builds an AND-group. At least one sub-rule is required.
func NewAll(rules ...Rule) (*All, error) {
	if len(rules) == 0 {
		return nil, &RuleError{Reason: "empty AND-group"}
	}
	return &All{rules: rules}, nil
}

// Match returns the first sub-rule value when all sub-rules match.
func (a *All) Match(text string) (string, bool) {
	var first string
	for i, r := range a.rules {
		v, ok := r.Match(text)
		if !ok {
			return "", false
		}
		if i == 0 {
			first = v
		}
	}
	return first, true
}

// FirstOf tries its sub-rules in order.
type FirstOf struct {
	rules []Rule
}

// NewFirstOf builds an ordered alternation. At least one sub-rule is required.
func NewFirstOf(rules ...Rule) (*FirstOf, error) {
	if len(rules) == 0 {
		return nil, &RuleError{Reason: "empty alternation"}
	}
	return &FirstOf{rules: rules}, nil
}

// Match returns the value of the first matching sub-rule.
func (f *FirstOf) Match(text string) (string, bool) {
	for _, r := range f.rules {
		if v, ok := r.Match(text); ok {
			return v, true
		}
	}
	return "", false
}

// MustLiteral is like NewLiteral but panics on error. Intended for tests and static tables.
func MustLiteral(pattern string) *Literal {
	l, err := NewLiteral(pattern)
	if err != nil {
		panic(err)
	}
	return l
}

// MustGroup is like NewGroup but panics on error.
func MustGroup(pattern string, group int) *Group {
	g, err := NewGroup(pattern, group)
	if err != nil {
		panic(err)
	}
	return g
}
