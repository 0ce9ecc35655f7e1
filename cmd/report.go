package cmd

import (
	"fmt"
	"io"
	"sort"

	"files-kraken/core/reconcile"
	"files-kraken/core/snapshot"

	"github.com/fatih/color"
)

// printChanges writes created paths in green and deleted paths in red.
func printChanges(w io.Writer, changes snapshot.Changes) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	cyan.Fprintf(w, "\n=== Changes (%d created, %d deleted) ===\n", len(changes.Created), len(changes.Deleted))
	for _, p := range changes.Created {
		green.Fprintf(w, "+ %s\n", p)
	}
	for _, p := range changes.Deleted {
		red.Fprintf(w, "- %s\n", p)
	}
}

// printPlan writes the plan summary and up to limit actions.
func printPlan(w io.Writer, plan *reconcile.Plan, limit int) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	s := plan.Summary
	cyan.Fprintf(w, "\n=== Reconciliation Plan ===\n")
	fmt.Fprintf(w, "Paths:    %d created, %d deleted\n", s.Created, s.Deleted)
	fmt.Fprintf(w, "Matched:  %d\n", s.Matched)
	fmt.Fprintf(w, "Records:  %d\n", s.Records)
	fmt.Fprintf(w, "Inserts:  ")
	green.Fprintf(w, "%d\n", s.Inserts)
	fmt.Fprintf(w, "Updates:  ")
	yellow.Fprintf(w, "%d\n", s.Updates)
	fmt.Fprintf(w, "Derived:  %d\n", s.Derived)
	fmt.Fprintf(w, "Warnings: %d\n", s.Warnings)

	shown := len(plan.Actions)
	if limit > 0 && shown > limit {
		shown = limit
	}
	for _, action := range plan.Actions[:shown] {
		fields := make([]string, 0, len(action.Fields))
		for name := range action.Fields {
			fields = append(fields, name)
		}
		sort.Strings(fields)
		fmt.Fprintf(w, "  %-6s %s/%s %v\n", action.Type, action.Schema, action.ID, fields)
	}
	if shown < len(plan.Actions) {
		fmt.Fprintf(w, "  ... %d more\n", len(plan.Actions)-shown)
	}
}
