// Package reconcile turns change batches into record documents.
//
// For every batch the Engine runs a fixed sequence over all registered schemas:
//
//  1. Every created path, then every deleted path, is matched against each schema's
//     required fields using the file's base name.
//  2. A full match yields an identity (required values joined with "__"). The record
//     is taken from the batch scratch state, hydrated from the document store, or
//     created fresh.
//  3. The record's optional rules, bound to its required values, are matched against
//     the same name and every matched field is merged according to its kind.
//  4. After all paths, derived fields whose dependencies are all set and which hold
//     no value yet are computed once.
//  5. The result is a Plan: an insert of the full document for new records and a
//     partial update of changed fields for existing ones.
//
// Scratch state lives in the Build call and is dropped afterwards, so nothing leaks
// between batches. A scalar or path conflict stops the batch with a
// *blueprint.ConflictError naming the schema, identity and field; nothing is written.
//
// # Usage
//
//	engine := reconcile.NewEngine(store, registry, logger)
//	plan, err := engine.Process(ctx, changes)
//
// Build and Apply can be called separately to inspect a plan before writing it.
package reconcile
