package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

const inspectIndexName = "inspect"

func newInspectCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <dump>",
		Short: "Print statistics of an index dump",
		Long: `Print statistics of an index dump as JSON.

Examples:
  hora inspect index.hora
  hora inspect --config hora.yaml indexes/products.hora | jq '.levels'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := root.setup(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = e.close() }()

			if err := e.registry.LoadContext(cmd.Context(), inspectIndexName, args[0]); err != nil {
				return err
			}

			st, err := e.registry.Stats(inspectIndexName)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
}
