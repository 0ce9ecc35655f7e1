package reconcile

import (
	"context"
	"errors"
	"testing"

	"files-kraken/core/blueprint"
	"files-kraken/core/docstore"
	"files-kraken/core/pattern"
	"files-kraken/core/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const (
	dir = "/data/raw"
	r1  = dir + "/run_1.sample_42.lane_1.R1.fastq.gz"
	r2  = dir + "/run_1.sample_42.lane_1.R2.fastq.gz"
	vcf = dir + "/run_1.sample_42.vcf"
)

// sampleSchema mirrors a sequencing layout: fastq pairs, one vcf and a date derived from it.
func sampleSchema(dateCalls *int) *blueprint.Schema {
	return &blueprint.Schema{
		Name: "Sample",
		Required: pattern.FieldSpecs{
			{Field: "run", Spec: pattern.Search(`run_\d+`, 0)},
			{Field: "sample", Spec: pattern.Search(`sample_(\w+?)\.`, 1)},
		},
		Fields: []blueprint.FieldDef{
			{Name: "fastqs", Kind: blueprint.PathList, Rule: pattern.Full(`{run}\.sample_{sample}\.lane_\d+\.R[12]\.fastq\.gz`)},
			{Name: "vcf", Kind: blueprint.Path, Rule: pattern.Search(`^{run}\.sample_{sample}.*\.vcf$`, 0)},
			{Name: "date", Kind: blueprint.Derived, DependsOn: []string{"vcf"},
				Parser: blueprint.ParserFunc(func(args ...blueprint.Value) (any, error) {
					*dateCalls++
					return "2024-01-01", nil
				})},
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, docstore.Store, *int) {
	t.Helper()
	calls := new(int)
	reg := blueprint.NewRegistry()
	require.NoError(t, reg.Register(sampleSchema(calls)))
	store := docstore.NewMemoryStore()
	return NewEngine(store, reg, zap.NewNop()), store, calls
}

func fastqs(t *testing.T, store docstore.Store) []string {
	t.Helper()
	doc, err := store.Get(context.Background(), "Sample", "run_1__42")
	require.NoError(t, err)
	require.NotNil(t, doc)
	switch v := doc["fastqs"].(type) {
	case nil:
		return nil
	case []string:
		return v
	default:
		t.Fatalf("unexpected fastqs type %T", v)
		return nil
	}
}

func TestEngine_ListLifecycle(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newTestEngine(t)

	plan, err := e.Process(ctx, snapshot.Changes{Created: []string{r1}})
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, ActionInsert, plan.Actions[0].Type)
	assert.Equal(t, "run_1__42", plan.Actions[0].ID)
	assert.Equal(t, []string{r1}, fastqs(t, store))

	plan, err = e.Process(ctx, snapshot.Changes{Created: []string{r2}})
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, ActionUpdate, plan.Actions[0].Type)
	assert.Equal(t, map[string]any{"fastqs": []string{r1, r2}}, plan.Actions[0].Fields)
	assert.Equal(t, []string{r1, r2}, fastqs(t, store))

	t.Run("re-observing a file is a no-op", func(t *testing.T) {
		plan, err := e.Process(ctx, snapshot.Changes{Created: []string{r2}})
		require.NoError(t, err)
		assert.Empty(t, plan.Actions)
	})

	_, err = e.Process(ctx, snapshot.Changes{Deleted: []string{r1}})
	require.NoError(t, err)
	assert.Equal(t, []string{r2}, fastqs(t, store))
}

func TestEngine_CreatedBeforeDeletedInOneBatch(t *testing.T) {
	e, store, _ := newTestEngine(t)

	// the deletion is applied after the creation even though it is listed in the same batch
	_, err := e.Process(context.Background(), snapshot.Changes{
		Created: []string{r1, r2},
		Deleted: []string{r1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{r2}, fastqs(t, store))
}

func TestEngine_ScalarConflict(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newTestEngine(t)

	_, err := e.Process(ctx, snapshot.Changes{Created: []string{vcf}})
	require.NoError(t, err)

	other := dir + "/run_1.sample_42.filtered.vcf"
	_, err = e.Process(ctx, snapshot.Changes{Created: []string{r1, other}})
	require.Error(t, err)

	var conflict *blueprint.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "Sample", conflict.Schema)
	assert.Equal(t, "run_1__42", conflict.ID)
	assert.Equal(t, "vcf", conflict.Field)
	assert.ErrorIs(t, err, blueprint.ErrConflict)

	// nothing from the failed batch was flushed
	assert.Empty(t, fastqs(t, store))
}

func TestEngine_DerivedComputedOnce(t *testing.T) {
	ctx := context.Background()
	e, store, calls := newTestEngine(t)

	_, err := e.Process(ctx, snapshot.Changes{Created: []string{r1}})
	require.NoError(t, err)
	doc, _ := store.Get(ctx, "Sample", "run_1__42")
	assert.Nil(t, doc["date"], "dependency not set yet")
	assert.Equal(t, 0, *calls)

	plan, err := e.Process(ctx, snapshot.Changes{Created: []string{vcf}})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Summary.Derived)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, map[string]any{"vcf": vcf, "date": "2024-01-01"}, plan.Actions[0].Fields)
	assert.Equal(t, 1, *calls)

	for i := 0; i < 3; i++ {
		_, err = e.Process(ctx, snapshot.Changes{Created: []string{vcf, r2}})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, *calls, "derived value is never recomputed")

	doc, _ = store.Get(ctx, "Sample", "run_1__42")
	assert.Equal(t, "2024-01-01", doc["date"])
}

func TestEngine_DerivedInSameBatchAsDependency(t *testing.T) {
	ctx := context.Background()
	e, store, calls := newTestEngine(t)

	// the vcf arrives after the fastq within one batch; the readiness pass still sees it
	plan, err := e.Process(ctx, snapshot.Changes{Created: []string{r1, vcf}})
	require.NoError(t, err)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, ActionInsert, plan.Actions[0].Type)
	assert.Equal(t, 1, *calls)

	doc, _ := store.Get(ctx, "Sample", "run_1__42")
	assert.Equal(t, "2024-01-01", doc["date"])
	assert.Equal(t, vcf, doc["vcf"])
}

func TestEngine_ParserFailureRetriesNextBatch(t *testing.T) {
	ctx := context.Background()
	fail := true
	calls := 0
	schema := sampleSchema(&calls)
	schema.Fields[2].Parser = blueprint.ParserFunc(func(...blueprint.Value) (any, error) {
		calls++
		if fail {
			return nil, errors.New("unreadable")
		}
		return "ok", nil
	})
	reg := blueprint.NewRegistry()
	require.NoError(t, reg.Register(schema))

	core, logs := observer.New(zap.WarnLevel)
	store := docstore.NewMemoryStore()
	e := NewEngine(store, reg, zap.New(core))

	plan, err := e.Process(ctx, snapshot.Changes{Created: []string{vcf}})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Summary.Warnings)
	assert.Equal(t, 1, logs.FilterMessageSnippet("derived").Len())

	fail = false
	_, err = e.Process(ctx, snapshot.Changes{Created: []string{r1}})
	require.NoError(t, err)
	doc, _ := store.Get(ctx, "Sample", "run_1__42")
	assert.Equal(t, "ok", doc["date"])
	assert.Equal(t, 2, calls)
}

func TestEngine_UnmatchedAndRelativePaths(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newTestEngine(t)
	e.BaseDir = dir

	plan, err := e.Process(ctx, snapshot.Changes{Created: []string{
		"notes.txt",
		"run_1.sample_42.lane_1.R1.fastq.gz",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Summary.Matched)
	assert.Equal(t, []string{r1}, fastqs(t, store))
}

func TestEngine_DryRun(t *testing.T) {
	ctx := context.Background()
	e, store, _ := newTestEngine(t)

	plan, err := e.Build(ctx, snapshot.Changes{Created: []string{r1}})
	require.NoError(t, err)
	executed, err := e.Apply(ctx, plan, Options{DryRun: true})
	require.NoError(t, err)
	assert.Zero(t, executed)

	doc, err := store.Get(ctx, "Sample", "run_1__42")
	require.NoError(t, err)
	assert.Nil(t, doc)

	executed, err = e.Apply(ctx, plan, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, executed)
}

// batchStore records AddBatch calls on top of the memory store.
type batchStore struct {
	*docstore.MemoryStore
	batches int
}

func (b *batchStore) AddBatch(ctx context.Context, schema string, docs []docstore.Document) error {
	b.batches++
	for _, doc := range docs {
		if err := b.Add(ctx, schema, doc); err != nil {
			return err
		}
	}
	return nil
}

func TestEngine_ApplyUsesBatchInserts(t *testing.T) {
	ctx := context.Background()
	calls := 0
	reg := blueprint.NewRegistry()
	require.NoError(t, reg.Register(sampleSchema(&calls)))
	store := &batchStore{MemoryStore: docstore.NewMemoryStore()}
	e := NewEngine(store, reg, nil)

	plan, err := e.Process(ctx, snapshot.Changes{Created: []string{
		r1,
		dir + "/run_2.sample_7.lane_1.R1.fastq.gz",
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, plan.Summary.Inserts)
	assert.Equal(t, 1, store.batches)

	list, err := store.List(ctx, "Sample")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
