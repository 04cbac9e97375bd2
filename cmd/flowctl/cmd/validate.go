package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowmaestro/flowmaestro-go/flow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <workflow.json>",
	Short: "Validate a workflow definition without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read workflow file: %w", err)
		}

		def, err := flow.ParseDefinition(data)
		if err != nil {
			return err
		}
		g, err := def.BuildGraph()
		if err != nil {
			return err
		}

		logger.Infow("workflow is valid",
			"name", def.Name,
			"nodes", len(g.NodeIDs()),
			"edges", len(g.EdgeIDs()),
			"triggers", g.Triggers(),
			"outputs", g.OutputNodeIDs(),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
