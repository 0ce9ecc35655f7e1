package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"files-kraken/core/blueprint"
	"files-kraken/core/config"
	"files-kraken/core/schemafile"

	"github.com/spf13/afero"
)

// Prints, for each file name given, the record every schema would file it under
// and the optional fields its name matches.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: debug_identify <file>...")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	registry := blueprint.NewRegistry()
	if _, err := schemafile.Load(afero.NewOsFs(), cfg.Schemas, registry); err != nil {
		log.Fatal(err)
	}

	for _, arg := range os.Args[1:] {
		name := filepath.Base(arg)
		fmt.Printf("\n=== %s ===\n", name)

		hits := 0
		for _, schema := range registry.Schemas() {
			required, id, ok := schema.Identify(name)
			if !ok {
				continue
			}
			hits++
			fmt.Printf("%s -> id %q %v\n", schema.Name, id, required)

			rec, err := blueprint.NewRecord(schema, required)
			if err != nil {
				log.Fatal(err)
			}
			matches, err := rec.Match(name)
			if err != nil {
				log.Fatal(err)
			}
			fields := make([]string, 0, len(matches))
			for field := range matches {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			for _, field := range fields {
				fmt.Printf("  %s = %q\n", field, matches[field])
			}
			if len(fields) == 0 {
				fmt.Println("  ⚠️  required fields match but no optional field does")
			}
		}
		if hits == 0 {
			fmt.Println("no schema matches")
		}
	}
}
