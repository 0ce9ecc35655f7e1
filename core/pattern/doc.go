// Package pattern implements the rule engine used to recognise project files by name.
//
// A rule is evaluated against a single string (usually a base file name) and either
// yields a captured value or reports no match. Four rule shapes exist:
//
//   - Literal: the whole text must match the pattern. The value is the text itself.
//   - Group: the pattern may match anywhere. The value is the requested capture group.
//   - All: every sub-rule must match. The value is the first sub-rule's value.
//   - FirstOf: sub-rules are tried in order and the first match wins.
//
// Rules are compiled once. A malformed pattern or an out-of-range capture group is reported
// by the constructor as a *RuleError, never at match time.
//
// # Rule DSL
//
// Schema authors describe rules with Spec values which decode from YAML or JSON:
//
//	run: 'run_\d+'                     # Literal
//	sample: ['sample_(\w+)', 1]        # Group
//	vcf: [['\.vcf$', 0], 'run_.*']     # list: FirstOf in a scheme, All in a filter
//
// Optional-field specs may reference already matched required values with {name}
// placeholders. The values are quoted before substitution, see Spec.Expand.
//
// # Schemes and filters
//
// A Scheme binds field names to rules and returns every field that matched (a partial map).
// A Multimatcher combines rules into a single boolean decision and is used to filter files
// and directories while scanning.
package pattern
