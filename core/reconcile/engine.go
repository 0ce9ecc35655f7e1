package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"files-kraken/core/blueprint"
	"files-kraken/core/docstore"
	"files-kraken/core/metrics"
	"files-kraken/core/snapshot"

	"go.uber.org/zap"
)

// Engine turns change batches into record writes.
// It holds no record state between batches; only the document store persists.
type Engine struct {
	Store    docstore.Store
	Registry *blueprint.Registry
	Logger   *zap.Logger
	Metrics  *metrics.Metrics

	// BaseDir resolves relative batch paths. The working directory is used when empty.
	BaseDir string
}

// NewEngine returns an engine over store and registry.
func NewEngine(store docstore.Store, registry *blueprint.Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{Store: store, Registry: registry, Logger: logger}
}

// entry is a record touched by the current batch.
type entry struct {
	record  *blueprint.Record
	isNew   bool
	pending []string
	changed map[string]bool
}

func (e *entry) touch(field string) {
	if e.changed[field] {
		return
	}
	e.changed[field] = true
	e.pending = append(e.pending, field)
}

// batch is the scratch state of one Build call.
type batch struct {
	entries map[string]*entry
	order   []*entry
	summary PlanSummary
}

func batchKey(schema, id string) string { return schema + "\x00" + id }

// Build processes every path of the batch and returns the writes to perform.
// Created paths are processed before deleted ones. A field conflict aborts the batch.
func (e *Engine) Build(ctx context.Context, changes snapshot.Changes) (*Plan, error) {
	if e.Logger == nil {
		e.Logger = zap.NewNop()
	}
	b := &batch{entries: make(map[string]*entry)}
	b.summary.Created = len(changes.Created)
	b.summary.Deleted = len(changes.Deleted)

	for _, path := range changes.Created {
		if err := e.processPath(ctx, b, path, blueprint.Created); err != nil {
			return nil, err
		}
	}
	for _, path := range changes.Deleted {
		if err := e.processPath(ctx, b, path, blueprint.Deleted); err != nil {
			return nil, err
		}
	}

	e.computeDerived(b)

	plan := &Plan{Summary: b.summary}
	plan.Summary.Records = len(b.order)
	for _, en := range b.order {
		rec := en.record
		if en.isNew {
			plan.Actions = append(plan.Actions, Action{
				Type:   ActionInsert,
				Schema: rec.Schema.Name,
				ID:     rec.ID,
				Fields: rec.Document(),
			})
			plan.Summary.Inserts++
			continue
		}
		if len(en.pending) == 0 {
			continue
		}
		fields := make(map[string]any, len(en.pending))
		for _, name := range en.pending {
			fields[name] = rec.Encode(name)
		}
		plan.Actions = append(plan.Actions, Action{
			Type:   ActionUpdate,
			Schema: rec.Schema.Name,
			ID:     rec.ID,
			Fields: fields,
		})
		plan.Summary.Updates++
	}
	return plan, nil
}

func (e *Engine) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if e.BaseDir != "" {
		return filepath.Join(e.BaseDir, path), nil
	}
	return filepath.Abs(path)
}

func (e *Engine) processPath(ctx context.Context, b *batch, path string, mode blueprint.Mode) error {
	abs, err := e.resolve(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	name := filepath.Base(abs)

	for _, schema := range e.Registry.Schemas() {
		required, id, ok := schema.Identify(name)
		if !ok {
			continue
		}
		b.summary.Matched++

		en, err := e.lookup(ctx, b, schema, required, id)
		if err != nil {
			return err
		}

		matches, err := en.record.Match(name)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			continue
		}
		if err := e.mergeFields(b, en, abs, matches, mode); err != nil {
			return err
		}
	}
	return nil
}

// lookup returns the scratch entry, hydrating from the store or creating a new record.
func (e *Engine) lookup(ctx context.Context, b *batch, schema *blueprint.Schema, required map[string]string, id string) (*entry, error) {
	key := batchKey(schema.Name, id)
	if en, ok := b.entries[key]; ok {
		return en, nil
	}

	doc, err := e.Store.Get(ctx, schema.Name, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", schema.Name, id, err)
	}

	en := &entry{changed: make(map[string]bool)}
	if doc != nil {
		en.record, err = blueprint.FromDocument(schema, doc)
	} else {
		en.isNew = true
		en.record, err = blueprint.NewRecord(schema, required)
	}
	if err != nil {
		return nil, err
	}

	b.entries[key] = en
	b.order = append(b.order, en)
	return en, nil
}

func (e *Engine) mergeFields(b *batch, en *entry, file string, matches map[string]string, mode blueprint.Mode) error {
	rec := en.record
	for i := range rec.Schema.Fields {
		field := &rec.Schema.Fields[i]
		captured, ok := matches[field.Name]
		if !ok {
			continue
		}

		log := e.Logger.With(
			zap.String("schema", rec.Schema.Name),
			zap.String("id", rec.ID),
			zap.String("field", field.Name),
			zap.String("path", file),
		)

		value, err := blueprint.AfterMatch(field, file, captured)
		if err != nil {
			log.Warn("failed to convert matched value", zap.Error(err))
			b.summary.Warnings++
			e.Metrics.Warning()
			continue
		}

		warn := func(msg string, prev, next blueprint.Value) {
			log.Warn(msg, zap.Stringer("old", prev), zap.Stringer("new", next), zap.String("mode", string(mode)))
			b.summary.Warnings++
			e.Metrics.Warning()
		}

		merged, outcome, err := blueprint.Merge(field.Kind, rec.Get(field.Name), value, mode, warn)
		if err != nil {
			var conflict *blueprint.ConflictError
			if errors.As(err, &conflict) {
				conflict.Schema = rec.Schema.Name
				conflict.ID = rec.ID
				conflict.Field = field.Name
				e.Metrics.Conflict(rec.Schema.Name)
				log.Error("field conflict", zap.Error(conflict))
				return conflict
			}
			return err
		}
		if outcome == blueprint.NoChange {
			continue
		}
		rec.Set(field.Name, merged)
		en.touch(field.Name)
	}
	return nil
}

// computeDerived runs once per batch after every path has been merged.
func (e *Engine) computeDerived(b *batch) {
	for _, en := range b.order {
		rec := en.record
		for i := range rec.Schema.Fields {
			field := &rec.Schema.Fields[i]
			if !rec.Ready(field) {
				continue
			}
			value, err := rec.Compute(field)
			if err != nil {
				e.Logger.Warn("failed to compute derived field, will retry next batch",
					zap.String("schema", rec.Schema.Name),
					zap.String("id", rec.ID),
					zap.String("field", field.Name),
					zap.Error(err))
				b.summary.Warnings++
				e.Metrics.Warning()
				continue
			}
			if value.IsEmpty() {
				continue
			}
			rec.Set(field.Name, value)
			en.touch(field.Name)
			b.summary.Derived++
		}
	}
}

// Process builds and applies the plan for one batch.
func (e *Engine) Process(ctx context.Context, changes snapshot.Changes) (*Plan, error) {
	e.Metrics.ObserveBatch(len(changes.Created), len(changes.Deleted))

	plan, err := e.Build(ctx, changes)
	if err != nil {
		return nil, err
	}
	if _, err := e.Apply(ctx, plan, Options{}); err != nil {
		return plan, err
	}

	e.Logger.Info("batch reconciled",
		zap.Int("created", plan.Summary.Created),
		zap.Int("deleted", plan.Summary.Deleted),
		zap.Int("records", plan.Summary.Records),
		zap.Int("inserts", plan.Summary.Inserts),
		zap.Int("updates", plan.Summary.Updates),
		zap.Int("derived", plan.Summary.Derived),
		zap.Int("warnings", plan.Summary.Warnings),
	)
	return plan, nil
}
