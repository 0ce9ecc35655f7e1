package reconcile

import (
	"context"
	"fmt"

	"files-kraken/core/docstore"
)

// BatchAdder is implemented by stores that insert many documents at once.
type BatchAdder interface {
	AddBatch(ctx context.Context, schema string, docs []docstore.Document) error
}

// Apply executes the actions in a plan.
// Returns the number of actions executed and any error encountered.
func (e *Engine) Apply(ctx context.Context, plan *Plan, opts Options) (executed int, err error) {
	if opts.DryRun || plan == nil {
		return 0, nil
	}

	// Group inserts by schema, keeping schema order stable
	var (
		schemas []string
		inserts = make(map[string][]docstore.Document)
		updates []Action
	)
	for _, action := range plan.Actions {
		switch action.Type {
		case ActionInsert:
			if _, ok := inserts[action.Schema]; !ok {
				schemas = append(schemas, action.Schema)
			}
			inserts[action.Schema] = append(inserts[action.Schema], docstore.Document(action.Fields))
		case ActionUpdate:
			updates = append(updates, action)
		default:
			return executed, fmt.Errorf("unknown action type %q", action.Type)
		}
	}

	batcher, canBatch := e.Store.(BatchAdder)
	for _, schema := range schemas {
		docs := inserts[schema]
		if canBatch {
			if err := batcher.AddBatch(ctx, schema, docs); err != nil {
				return executed, fmt.Errorf("failed to batch insert %s records: %w", schema, err)
			}
			executed += len(docs)
			for range docs {
				e.Metrics.RecordWrite(schema, string(ActionInsert))
			}
			continue
		}
		// Fallback to one-at-a-time
		for _, doc := range docs {
			if err := e.Store.Add(ctx, schema, doc); err != nil {
				return executed, fmt.Errorf("failed to insert %s/%s: %w", schema, doc.ID(), err)
			}
			executed++
			e.Metrics.RecordWrite(schema, string(ActionInsert))
		}
	}

	for _, action := range updates {
		if err := e.Store.Update(ctx, action.Schema, action.ID, docstore.Document(action.Fields)); err != nil {
			return executed, fmt.Errorf("failed to update %s/%s: %w", action.Schema, action.ID, err)
		}
		executed++
		e.Metrics.RecordWrite(action.Schema, string(ActionUpdate))
	}

	return executed, nil
}
