// Package schemafile loads record schemas from YAML.
//
// A file lists schemas with their required fields and optional fields:
//
//	schemas:
//	  - name: Sample
//	    required:
//	      run: ['run_\d+', 0]
//	      sample: ['sample_(\w+)', 1]
//	    fields:
//	      fastqs: {kind: path_list, rule: '{run}\.sample_{sample}\.lane_\d+\.R[12]\.fastq\.gz'}
//	      vcf:    {kind: path, rule: ['{run}\.sample_{sample}.*\.vcf$', 0]}
//	      date:   {kind: derived, depends_on: [vcf], parser: file_mtime}
//
// Rules use the pattern DSL: a string is a full match, a [pattern, group] pair a search,
// a list of those an alternation. Field order is kept; the order of required fields
// defines the record identity.
//
// Derived fields name a parser from the set returned by DefaultParsers.
package schemafile
