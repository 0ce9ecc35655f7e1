package cmd

import (
	"fmt"

	"files-kraken/feature/catalog"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var catalogLimit int

// catalogCmd groups read commands over the document store.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Read reconciled records",
}

var catalogSchemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List the schemas declared in the schema file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(svc *catalog.Service) error {
			for _, name := range svc.Schemas() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

var catalogGetCmd = &cobra.Command{
	Use:   "get [schema] [id]",
	Short: "Print one record as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(svc *catalog.Service) error {
			doc, err := svc.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, doc)
		})
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list [schema]",
	Short: "Print every record of a schema as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(svc *catalog.Service) error {
			docs, err := svc.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if catalogLimit > 0 && len(docs) > catalogLimit {
				docs = docs[:catalogLimit]
			}
			return printJSON(cmd, docs)
		})
	},
}

// withCatalog runs fn against an uncached catalog service.
func withCatalog(fn func(svc *catalog.Service) error) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()
	return fn(catalog.NewService(a.store, a.registry, 0, a.logger))
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	catalogListCmd.Flags().IntVar(&catalogLimit, "limit", 0, "Print at most this many records")
	catalogCmd.AddCommand(catalogSchemasCmd, catalogGetCmd, catalogListCmd)
	RootCmd.AddCommand(catalogCmd)
}
