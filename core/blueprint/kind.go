package blueprint

import (
	"errors"
	"fmt"
	"path/filepath"

	"files-kraken/core/utils"
)

// Kind is the storage kind of a field.
type Kind uint8

const (
	Scalar Kind = iota
	Path
	ScalarList
	PathList
	Derived
	numKinds
)

var kindNames = [numKinds]string{
	Scalar:     "scalar",
	Path:       "path",
	ScalarList: "scalar_list",
	PathList:   "path_list",
	Derived:    "derived",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Mode tells whether an observation comes from a created or a deleted path.
type Mode string

const (
	Created Mode = "created"
	Deleted Mode = "deleted"
)

// Outcome tells whether a merge changed the field.
type Outcome uint8

const (
	NoChange Outcome = iota
	Changed
)

// ErrConflict is matched by every *ConflictError.
var ErrConflict = errors.New("field conflict")

// ConflictError reports a second, differing observation of a single-valued field.
type ConflictError struct {
	Schema string
	ID     string
	Field  string
	Mode   Mode
	Old    Value
	New    Value
}

func (e *ConflictError) Error() string {
	target := e.Field
	if e.Schema != "" {
		target = fmt.Sprintf("%s[%s].%s", e.Schema, e.ID, e.Field)
	}
	return fmt.Sprintf("conflict on %s (%s): old value %q, new value %q", target, e.Mode, e.Old, e.New)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// WarnFunc receives non-fatal merge diagnostics.
type WarnFunc func(msg string, old, new Value)

// behaviour implements one Kind.
type behaviour interface {
	afterMatch(f *FieldDef, file, captured string) (Value, error)
	merge(old, new Value, mode Mode, warn WarnFunc) (Value, Outcome, error)
	toDB(v Value) any
	fromDB(raw any) (Value, error)
}

var behaviours = [numKinds]behaviour{
	Scalar:     scalarBehaviour{},
	Path:       scalarBehaviour{path: true},
	ScalarList: listBehaviour{},
	PathList:   listBehaviour{path: true},
	Derived:    derivedBehaviour{},
}

func behaviourOf(k Kind) (behaviour, error) {
	if k >= numKinds {
		return nil, fmt.Errorf("unknown field kind %d", k)
	}
	return behaviours[k], nil
}

// AfterMatch converts a captured value into the field's storage form.
// file must be the path the capture came from.
func AfterMatch(f *FieldDef, file, captured string) (Value, error) {
	b, err := behaviourOf(f.Kind)
	if err != nil {
		return Value{}, err
	}
	return b.afterMatch(f, file, captured)
}

// Merge combines the current value with a new observation.
func Merge(k Kind, old, new Value, mode Mode, warn WarnFunc) (Value, Outcome, error) {
	b, err := behaviourOf(k)
	if err != nil {
		return old, NoChange, err
	}
	if warn == nil {
		warn = func(string, Value, Value) {}
	}
	switch mode {
	case Created, Deleted:
	default:
		return old, NoChange, fmt.Errorf("unknown merge mode %q", mode)
	}
	return b.merge(old, new, mode, warn)
}

// ToDB returns the storage form of v.
func ToDB(k Kind, v Value) any {
	b, err := behaviourOf(k)
	if err != nil || v.IsEmpty() {
		return nil
	}
	return b.toDB(v)
}

// FromDB decodes a stored value.
func FromDB(k Kind, raw any) (Value, error) {
	b, err := behaviourOf(k)
	if err != nil {
		return Value{}, err
	}
	if raw == nil {
		return Value{}, nil
	}
	return b.fromDB(raw)
}

type scalarBehaviour struct{ path bool }

func (b scalarBehaviour) afterMatch(_ *FieldDef, file, captured string) (Value, error) {
	if b.path {
		abs, err := filepath.Abs(file)
		if err != nil {
			return Value{}, err
		}
		return String(abs), nil
	}
	return String(captured), nil
}

func (scalarBehaviour) merge(old, new Value, mode Mode, _ WarnFunc) (Value, Outcome, error) {
	conflict := &ConflictError{Mode: mode, Old: old, New: new}
	if mode == Created {
		switch {
		case new.IsEmpty(), old.Equal(new):
			return old, NoChange, nil
		case old.IsEmpty():
			return new, Changed, nil
		default:
			return old, NoChange, conflict
		}
	}
	switch {
	case old.IsEmpty() && new.IsEmpty():
		return old, NoChange, nil
	case old.Equal(new):
		return Empty(), Changed, nil
	default:
		return old, NoChange, conflict
	}
}

func (scalarBehaviour) toDB(v Value) any { return v.str }

func (scalarBehaviour) fromDB(raw any) (Value, error) {
	switch s := raw.(type) {
	case string:
		return String(s), nil
	case []byte:
		return String(string(s)), nil
	default:
		return Value{}, fmt.Errorf("expected a string, got %T", raw)
	}
}

type listBehaviour struct{ path bool }

func (b listBehaviour) afterMatch(_ *FieldDef, file, captured string) (Value, error) {
	if b.path {
		abs, err := filepath.Abs(file)
		if err != nil {
			return Value{}, err
		}
		return List(abs), nil
	}
	return List(captured), nil
}

func (listBehaviour) merge(old, new Value, mode Mode, _ WarnFunc) (Value, Outcome, error) {
	if mode == Created {
		switch {
		case new.IsEmpty(), old.Equal(new):
			return old, NoChange, nil
		case old.IsEmpty():
			return new, Changed, nil
		}
		merged := old.Items()
		for _, item := range new.list {
			if !contains(merged, item) {
				merged = append(merged, item)
			}
		}
		if len(merged) == len(old.list) {
			return old, NoChange, nil
		}
		return List(merged...), Changed, nil
	}

	if old.IsEmpty() {
		return old, NoChange, nil
	}
	if old.Equal(new) {
		return Empty(), Changed, nil
	}
	kept := make([]string, 0, len(old.list))
	for _, item := range old.list {
		if !new.contains(item) {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(old.list) {
		return old, NoChange, nil
	}
	return List(kept...), Changed, nil
}

func (listBehaviour) toDB(v Value) any { return v.Items() }

func (listBehaviour) fromDB(raw any) (Value, error) {
	items, err := utils.ToStrings(raw)
	if err != nil {
		return Value{}, err
	}
	return List(items...), nil
}

type derivedBehaviour struct{}

func (derivedBehaviour) afterMatch(f *FieldDef, file, _ string) (Value, error) {
	if f.Parser == nil {
		return Value{}, fmt.Errorf("derived field %s has no parser", f.Name)
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return Value{}, err
	}
	v, err := f.Parser.Parse(String(abs))
	if err != nil {
		return Value{}, fmt.Errorf("field %s: %w", f.Name, err)
	}
	return DerivedValue(v), nil
}

func (derivedBehaviour) merge(old, new Value, mode Mode, warn WarnFunc) (Value, Outcome, error) {
	if mode == Created {
		switch {
		case new.IsEmpty(), old.Equal(new):
			return old, NoChange, nil
		case old.IsEmpty():
			return new, Changed, nil
		default:
			warn("derived value changed, keeping the newest", old, new)
			return new, Changed, nil
		}
	}
	if !new.IsEmpty() && !old.Equal(new) {
		warn("comparison of differing derived values on deletion is not supported", old, new)
	}
	return old, NoChange, nil
}

func (derivedBehaviour) toDB(v Value) any { return v.data }

func (derivedBehaviour) fromDB(raw any) (Value, error) {
	if b, ok := raw.([]byte); ok {
		return DerivedValue(utils.ToString(b)), nil
	}
	return DerivedValue(raw), nil
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
