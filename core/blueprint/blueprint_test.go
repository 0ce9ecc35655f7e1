package blueprint

import (
	"errors"
	"testing"

	"files-kraken/core/docstore"
	"files-kraken/core/pattern"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_Scalar(t *testing.T) {
	for _, k := range []Kind{Scalar, Path} {
		t.Run(k.String(), func(t *testing.T) {
			a, b := String("/x/a"), String("/x/b")

			v, out, err := Merge(k, Empty(), a, Created, nil)
			require.NoError(t, err)
			assert.Equal(t, Changed, out)
			assert.True(t, v.Equal(a))

			_, out, err = Merge(k, a, a, Created, nil)
			require.NoError(t, err)
			assert.Equal(t, NoChange, out)

			_, out, err = Merge(k, a, Empty(), Created, nil)
			require.NoError(t, err)
			assert.Equal(t, NoChange, out, "empty observation never changes a field")

			_, _, err = Merge(k, a, b, Created, nil)
			assert.ErrorIs(t, err, ErrConflict)

			v, out, err = Merge(k, a, a, Deleted, nil)
			require.NoError(t, err)
			assert.Equal(t, Changed, out)
			assert.True(t, v.IsEmpty())

			_, _, err = Merge(k, a, b, Deleted, nil)
			var conflict *ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, Deleted, conflict.Mode)
		})
	}
}

func TestMerge_List(t *testing.T) {
	old := List("a", "b")
	next := List("b", "c")

	merged, out, err := Merge(PathList, old, next, Created, nil)
	require.NoError(t, err)
	assert.Equal(t, Changed, out)
	assert.Equal(t, []string{"a", "b", "c"}, merged.Items())

	t.Run("idempotent", func(t *testing.T) {
		again, out, err := Merge(PathList, merged, next, Created, nil)
		require.NoError(t, err)
		assert.Equal(t, NoChange, out)
		assert.True(t, again.Equal(merged))
	})

	t.Run("delete removes exactly new", func(t *testing.T) {
		removed, out, err := Merge(PathList, merged, next, Deleted, nil)
		require.NoError(t, err)
		assert.Equal(t, Changed, out)
		assert.Equal(t, []string{"a"}, removed.Items())
	})

	t.Run("delete superset clears", func(t *testing.T) {
		v, _, err := Merge(ScalarList, List("a"), List("a", "z"), Deleted, nil)
		require.NoError(t, err)
		assert.True(t, v.IsEmpty())

		v, out, err := Merge(ScalarList, old, old, Deleted, nil)
		require.NoError(t, err)
		assert.Equal(t, Changed, out)
		assert.True(t, v.IsEmpty())
	})

	t.Run("adopt into empty", func(t *testing.T) {
		v, out, err := Merge(ScalarList, Empty(), List("x"), Created, nil)
		require.NoError(t, err)
		assert.Equal(t, Changed, out)
		assert.Equal(t, []string{"x"}, v.Items())
	})
}

func TestMerge_Derived(t *testing.T) {
	var warnings []string
	warn := func(msg string, _, _ Value) { warnings = append(warnings, msg) }

	v, out, err := Merge(Derived, DerivedValue(1.0), DerivedValue(2.0), Created, warn)
	require.NoError(t, err)
	assert.Equal(t, Changed, out)
	assert.Equal(t, 2.0, v.Data())
	assert.Len(t, warnings, 1)

	v, out, err = Merge(Derived, DerivedValue(1.0), DerivedValue(2.0), Deleted, warn)
	require.NoError(t, err)
	assert.Equal(t, NoChange, out)
	assert.Equal(t, 1.0, v.Data())
	assert.Len(t, warnings, 2)

	_, out, err = Merge(Derived, DerivedValue("x"), DerivedValue("x"), Deleted, warn)
	require.NoError(t, err)
	assert.Equal(t, NoChange, out)
	assert.Len(t, warnings, 2)
}

func TestMerge_DerivedAfterStoreRoundTrip(t *testing.T) {
	var warnings int
	warn := func(string, Value, Value) { warnings++ }

	// a fresh parse yields int64 while a decoded document carries float64
	v, out, err := Merge(Derived, DerivedValue(float64(42)), DerivedValue(int64(42)), Created, warn)
	require.NoError(t, err)
	assert.Equal(t, NoChange, out)
	assert.Equal(t, float64(42), v.Data())
	assert.Zero(t, warnings)

	assert.True(t, DerivedValue([]any{"a", float64(1)}).Equal(DerivedValue([]any{"a", 1})))
	assert.False(t, DerivedValue(int64(42)).Equal(DerivedValue(float64(43))))
}

func TestMerge_UnknownMode(t *testing.T) {
	_, _, err := Merge(Scalar, Empty(), String("a"), "renamed", nil)
	assert.Error(t, err)
}

func TestAfterMatch(t *testing.T) {
	file := "/data/run_1.sample_4.vcf"

	v, err := AfterMatch(&FieldDef{Name: "s", Kind: Scalar}, file, "4")
	require.NoError(t, err)
	assert.Equal(t, "4", v.Str())

	v, err = AfterMatch(&FieldDef{Name: "p", Kind: Path}, file, "4")
	require.NoError(t, err)
	assert.Equal(t, file, v.Str())

	v, err = AfterMatch(&FieldDef{Name: "l", Kind: PathList}, file, "4")
	require.NoError(t, err)
	assert.Equal(t, []string{file}, v.Items())

	parser := ParserFunc(func(args ...Value) (any, error) { return "parsed:" + args[0].Str(), nil })
	v, err = AfterMatch(&FieldDef{Name: "d", Kind: Derived, Parser: parser}, file, "4")
	require.NoError(t, err)
	assert.Equal(t, "parsed:"+file, v.Data())

	failing := ParserFunc(func(...Value) (any, error) { return nil, errors.New("boom") })
	_, err = AfterMatch(&FieldDef{Name: "d", Kind: Derived, Parser: failing}, file, "4")
	assert.Error(t, err)
}

func TestToFromDB(t *testing.T) {
	assert.Nil(t, ToDB(PathList, Empty()))
	assert.Equal(t, []string{"a"}, ToDB(PathList, List("a")))
	assert.Equal(t, "x", ToDB(Scalar, String("x")))

	v, err := FromDB(PathList, []any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v.Items())

	_, err = FromDB(PathList, []any{1})
	assert.Error(t, err)

	_, err = FromDB(Scalar, 12)
	assert.Error(t, err)

	v, err = FromDB(Derived, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v.Data())
}

func TestKindText(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("path_list")))
	assert.Equal(t, PathList, k)
	assert.Error(t, k.UnmarshalText([]byte("blob")))
}

func sampleSchema() *Schema {
	return &Schema{
		Name: "Sample",
		Required: pattern.FieldSpecs{
			{Field: "run", Spec: pattern.Search(`run_\d+`, 0)},
			{Field: "sample", Spec: pattern.Search(`sample_(\w+?)\.`, 1)},
		},
		Fields: []FieldDef{
			{Name: "fastqs", Kind: PathList, Rule: pattern.Full(`{run}\.sample_{sample}\.lane_\d+\.R[12]\.fastq\.gz`)},
			{Name: "vcf", Kind: Path, Rule: pattern.Full(`{run}\.sample_{sample}\.vcf`)},
			{Name: "date", Kind: Derived, DependsOn: []string{"vcf"},
				Parser: ParserFunc(func(args ...Value) (any, error) { return "d:" + args[0].Str(), nil })},
		},
	}
}

func TestSchema_Validate(t *testing.T) {
	require.NoError(t, sampleSchema().Validate())

	tests := []struct {
		name   string
		mutate func(s *Schema)
	}{
		{"derived with both", func(s *Schema) { s.Fields[2].Rule = pattern.Full("x") }},
		{"derived with neither", func(s *Schema) { s.Fields[2].DependsOn = nil }},
		{"unknown dependency", func(s *Schema) { s.Fields[2].DependsOn = []string{"nope"} }},
		{"no parser", func(s *Schema) { s.Fields[2].Parser = nil }},
		{"missing rule", func(s *Schema) { s.Fields[0].Rule = pattern.Spec{} }},
		{"reserved name", func(s *Schema) { s.Fields[0].Name = "id" }},
		{"duplicate name", func(s *Schema) { s.Fields[0].Name = "run" }},
		{"unknown placeholder", func(s *Schema) { s.Fields[1].Rule = pattern.Full(`{lane}\.vcf`) }},
		{"broken rule", func(s *Schema) { s.Fields[1].Rule = pattern.Full(`{run}(`) }},
		{"no required", func(s *Schema) { s.Required = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleSchema()
			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestSchema_Identify(t *testing.T) {
	s := sampleSchema()
	require.NoError(t, s.Validate())

	req, id, ok := s.Identify("run_1.sample_42.lane_1.R1.fastq.gz")
	require.True(t, ok)
	assert.Equal(t, "run_1__42", id)
	assert.Equal(t, map[string]string{"run": "run_1", "sample": "42"}, req)

	_, _, ok = s.Identify("run_1.log")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(sampleSchema()))
	assert.Error(t, r.Register(sampleSchema()))
	assert.Len(t, r.Schemas(), 1)

	s, ok := r.Get("Sample")
	require.True(t, ok)
	assert.Equal(t, "Sample", s.Name)
}

func TestRecord(t *testing.T) {
	s := sampleSchema()
	r, err := NewRecord(s, map[string]string{"run": "run_1", "sample": "42"})
	require.NoError(t, err)
	assert.Equal(t, "run_1__42", r.ID)

	m, err := r.Match("run_1.sample_42.lane_1.R1.fastq.gz")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"fastqs": "run_1.sample_42.lane_1.R1.fastq.gz"}, m)

	m, err = r.Match("run_1.sample_43.lane_1.R1.fastq.gz")
	require.NoError(t, err)
	assert.Empty(t, m, "optional rules are bound to the record's own required values")

	date, _ := s.Field("date")
	assert.False(t, r.Ready(date))
	r.Set("vcf", String("/d/run_1.sample_42.vcf"))
	assert.True(t, r.Ready(date))
	v, err := r.Compute(date)
	require.NoError(t, err)
	r.Set("date", v)
	assert.False(t, r.Ready(date), "computed fields are not recomputed")

	doc := r.Document()
	assert.Equal(t, docstore.Document{
		"schema": "Sample",
		"id":     "run_1__42",
		"run":    "run_1",
		"sample": "42",
		"fastqs": nil,
		"vcf":    "/d/run_1.sample_42.vcf",
		"date":   "d:/d/run_1.sample_42.vcf",
	}, doc)

	back, err := FromDocument(s, doc)
	require.NoError(t, err)
	assert.Equal(t, r.ID, back.ID)
	assert.True(t, back.Computed("date"))
	assert.Equal(t, "/d/run_1.sample_42.vcf", back.Get("vcf").Str())

	t.Run("records own their values", func(t *testing.T) {
		other, err := NewRecord(s, map[string]string{"run": "run_2", "sample": "1"})
		require.NoError(t, err)
		assert.True(t, other.Get("vcf").IsEmpty())
	})

	t.Run("missing required", func(t *testing.T) {
		_, err := NewRecord(s, map[string]string{"run": "run_1"})
		assert.Error(t, err)
	})
}
