package pattern

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Context decides how a list Spec is compiled.
type Context int

const (
	// SchemeContext compiles lists as ordered alternations (first match wins).
	SchemeContext Context = iota
	// FilterContext compiles lists as AND-groups.
	FilterContext
)

// Spec is the declarative form of a rule.
//
// Exactly one shape is set: a plain Pattern (full match), a Pattern with Group
// (search and capture), or Items (a list of plain or grouped specs).
type Spec struct {
	Pattern string
	Group   *int
	Items   []Spec
}

// Full returns a full-match spec.
func Full(pattern string) Spec {
	return Spec{Pattern: pattern}
}

// Search returns a search spec capturing group.
func Search(pattern string, group int) Spec {
	return Spec{Pattern: pattern, Group: &group}
}

// List returns a list spec.
func List(items ...Spec) Spec {
	return Spec{Items: items}
}

// IsZero reports whether the spec is unset.
func (s Spec) IsZero() bool {
	return s.Pattern == "" && s.Group == nil && len(s.Items) == 0
}

// IsList reports whether the spec is a list.
func (s Spec) IsList() bool {
	return len(s.Items) > 0
}

// Compile builds the rule described by the spec.
func (s Spec) Compile(ctx Context) (Rule, error) {
	if s.IsList() {
		rules := make([]Rule, 0, len(s.Items))
		for _, item := range s.Items {
			if item.IsList() {
				return nil, &RuleError{Pattern: item.String(), Reason: "nested lists are not supported"}
			}
			r, err := item.Compile(ctx)
			if err != nil {
				return nil, err
			}
			rules = append(rules, r)
		}
		if ctx == FilterContext {
			return NewAll(rules...)
		}
		return NewFirstOf(rules...)
	}
	if s.Pattern == "" {
		return nil, &RuleError{Reason: "empty pattern"}
	}
	if s.Group != nil {
		return NewGroup(s.Pattern, *s.Group)
	}
	return NewLiteral(s.Pattern)
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholders returns the names referenced as {name} in the spec patterns.
func (s Spec) Placeholders() []string {
	seen := map[string]bool{}
	var out []string
	var walk func(Spec)
	walk = func(sp Spec) {
		for _, m := range placeholderRe.FindAllStringSubmatch(sp.Pattern, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
		for _, item := range sp.Items {
			walk(item)
		}
	}
	walk(s)
	return out
}

// Expand substitutes {name} placeholders with the quoted values.
// A placeholder without a value is an error.
func (s Spec) Expand(values map[string]string) (Spec, error) {
	out := Spec{Group: s.Group}
	var missing string
	out.Pattern = placeholderRe.ReplaceAllStringFunc(s.Pattern, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := values[name]
		if !ok {
			missing = name
			return m
		}
		return regexp.QuoteMeta(v)
	})
	if missing != "" {
		return Spec{}, &RuleError{Pattern: s.Pattern, Reason: fmt.Sprintf("no value for placeholder {%s}", missing)}
	}
	for _, item := range s.Items {
		e, err := item.Expand(values)
		if err != nil {
			return Spec{}, err
		}
		out.Items = append(out.Items, e)
	}
	return out, nil
}

func (s Spec) String() string {
	switch {
	case s.IsList():
		parts := make([]string, len(s.Items))
		for i, item := range s.Items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case s.Group != nil:
		return fmt.Sprintf("(%q, %d)", s.Pattern, *s.Group)
	default:
		return fmt.Sprintf("%q", s.Pattern)
	}
}

// UnmarshalYAML decodes a string, a [pattern, group] pair or a list of those.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = Spec{Pattern: node.Value}
		return nil
	case yaml.SequenceNode:
		if pair, ok := yamlPair(node); ok {
			*s = pair
			return nil
		}
		items := make([]Spec, 0, len(node.Content))
		for _, child := range node.Content {
			var item Spec
			if err := item.UnmarshalYAML(child); err != nil {
				return err
			}
			items = append(items, item)
		}
		if len(items) == 0 {
			return fmt.Errorf("line %d: empty rule list", node.Line)
		}
		*s = Spec{Items: items}
		return nil
	default:
		return fmt.Errorf("line %d: rule must be a string or a list", node.Line)
	}
}

func yamlPair(node *yaml.Node) (Spec, bool) {
	if len(node.Content) != 2 {
		return Spec{}, false
	}
	p, g := node.Content[0], node.Content[1]
	if p.Kind != yaml.ScalarNode || g.Kind != yaml.ScalarNode || g.ShortTag() != "!!int" {
		return Spec{}, false
	}
	var group int
	if err := g.Decode(&group); err != nil {
		return Spec{}, false
	}
	return Search(p.Value, group), true
}

// MarshalYAML encodes the spec in the same shape it is decoded from.
func (s Spec) MarshalYAML() (interface{}, error) {
	return s.plain(), nil
}

// UnmarshalJSON decodes the JSON form of the DSL.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	spec, err := specFromAny(raw)
	if err != nil {
		return err
	}
	*s = spec
	return nil
}

// MarshalJSON encodes the spec in the same shape it is decoded from.
func (s Spec) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.plain())
}

func (s Spec) plain() interface{} {
	switch {
	case s.IsList():
		items := make([]interface{}, len(s.Items))
		for i, item := range s.Items {
			items[i] = item.plain()
		}
		return items
	case s.Group != nil:
		return []interface{}{s.Pattern, *s.Group}
	default:
		return s.Pattern
	}
}

func specFromAny(raw interface{}) (Spec, error) {
	switch v := raw.(type) {
	case string:
		return Full(v), nil
	case []interface{}:
		if len(v) == 2 {
			p, okP := v[0].(string)
			g, okG := v[1].(float64)
			if okP && okG && g == float64(int(g)) {
				return Search(p, int(g)), nil
			}
		}
		if len(v) == 0 {
			return Spec{}, fmt.Errorf("empty rule list")
		}
		items := make([]Spec, 0, len(v))
		for _, el := range v {
			item, err := specFromAny(el)
			if err != nil {
				return Spec{}, err
			}
			items = append(items, item)
		}
		return List(items...), nil
	default:
		return Spec{}, fmt.Errorf("rule must be a string or a list, got %T", raw)
	}
}
