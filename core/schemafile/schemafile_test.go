package schemafile

import (
	"testing"
	"time"

	"files-kraken/core/blueprint"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
schemas:
  - name: Sample
    required:
      run: ['run_\d+', 0]
      sample: ['sample_(\w+?)\.', 1]
    fields:
      fastqs: {kind: path_list, rule: '{run}\.sample_{sample}\.lane_\d+\.R[12]\.fastq\.gz'}
      vcf:    {kind: path, rule: ['^{run}\.sample_{sample}.*\.vcf$', 0]}
      metric: {kind: derived, rule: ['{run}\.sample_{sample}\.metric$', 0], parser: file_number}
      date:   {kind: derived, depends_on: [vcf], parser: file_mtime}
  - name: Run
    required:
      run: ['^(run_\d+)$', 1]
    fields:
      notes: {kind: scalar, rule: ['^{run}$', 0]}
`

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/kraken/schemas.yaml", []byte(sampleYAML), 0o644))

	reg := blueprint.NewRegistry()
	schemas, err := Load(fs, "/etc/kraken/schemas.yaml", reg)
	require.NoError(t, err)
	require.Len(t, schemas, 2)

	s, ok := reg.Get("Sample")
	require.True(t, ok)
	assert.Equal(t, []string{"run", "sample"}, s.RequiredFields())

	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"fastqs", "vcf", "metric", "date"}, names, "declaration order is kept")

	date, ok := s.Field("date")
	require.True(t, ok)
	assert.Equal(t, blueprint.Derived, date.Kind)
	assert.True(t, date.Dependent())
	assert.NotNil(t, date.Parser)

	_, id, ok := s.Identify("run_1.sample_42.lane_1.R1.fastq.gz")
	require.True(t, ok)
	assert.Equal(t, "run_1__42", id)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown key",
			yaml: "schemas:\n  - name: A\n    requird: {}\n",
			want: "requird",
		},
		{
			name: "unknown kind",
			yaml: "schemas:\n  - name: A\n    required: {id: ['(\\d+)', 1]}\n    fields:\n      x: {kind: blob, rule: 'x'}\n",
			want: "blob",
		},
		{
			name: "fields not a mapping",
			yaml: "schemas:\n  - name: A\n    required: {id: ['(\\d+)', 1]}\n    fields: [x]\n",
			want: "mapping",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuildErrors(t *testing.T) {
	parsers := DefaultParsers(afero.NewMemMapFs())

	t.Run("unknown parser", func(t *testing.T) {
		f, err := Parse([]byte(`
schemas:
  - name: A
    required: {id: ['(\d+)', 1]}
    fields:
      x: {kind: derived, rule: 'x', parser: telepathy}
`))
		require.NoError(t, err)
		_, err = f.Build(parsers)
		assert.ErrorContains(t, err, "telepathy")
	})

	t.Run("invalid schema", func(t *testing.T) {
		f, err := Parse([]byte(`
schemas:
  - name: A
    required: {id: ['(\d+)', 1]}
    fields:
      x: {kind: path, rule: '{nope}'}
`))
		require.NoError(t, err)
		_, err = f.Build(parsers)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(afero.NewMemMapFs(), "/nope.yaml", blueprint.NewRegistry())
		assert.Error(t, err)
	})
}

func TestDefaultParsers(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/d/metric.txt", []byte(" 1534.5\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/d/report.txt", []byte("header line\nbody\n"), 0o644))
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("/d/report.txt", mtime, mtime))

	p := DefaultParsers(fs)
	parse := func(name string, args ...blueprint.Value) any {
		t.Helper()
		v, err := p[name].Parse(args...)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "1534.5", parse("file_content", blueprint.String("/d/metric.txt")))
	assert.Equal(t, 1534.5, parse("file_number", blueprint.String("/d/metric.txt")))
	assert.Equal(t, "header line", parse("first_line", blueprint.String("/d/report.txt")))
	assert.Equal(t, "2024-03-01T12:00:00Z", parse("file_mtime", blueprint.String("/d/report.txt")))
	assert.Equal(t, float64(len("header line\nbody\n")), parse("file_size", blueprint.String("/d/report.txt")))
	assert.Equal(t, "report.txt", parse("basename", blueprint.List("/d/report.txt", "/d/metric.txt")),
		"lists use their first item")

	_, err := p["file_number"].Parse(blueprint.String("/d/report.txt"))
	assert.Error(t, err)
	_, err = p["file_content"].Parse()
	assert.Error(t, err)
	_, err = p["file_size"].Parse(blueprint.String("/d/missing"))
	assert.Error(t, err)
}
