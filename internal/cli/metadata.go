package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/relmark/internal/schema"
)

var metadataYAML bool

// metadataCmd represents the metadata command
var metadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Print the service metadata envelope",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		meta := a.service.Metadata()

		if metadataYAML {
			data, err := yaml.Marshal(meta)
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		out, err := meta.Envelope()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for LIF documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := schema.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	rootCmd.AddCommand(metadataCmd)
	rootCmd.AddCommand(schemaCmd)

	metadataCmd.Flags().BoolVar(&metadataYAML, "yaml", false, "print the metadata as YAML instead of an envelope")
}
