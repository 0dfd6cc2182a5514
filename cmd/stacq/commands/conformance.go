package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stacq-io/stacq/pkg/stac"
)

// capabilityOrder fixes the table row order.
var capabilityOrder = []stac.ConformanceClass{
	stac.ConformanceCore,
	stac.ConformanceItemSearch,
	stac.ConformanceFeatures,
	stac.ConformanceCollections,
	stac.ConformanceCollectionSearch,
	stac.ConformanceContext,
	stac.ConformanceQuery,
	stac.ConformanceFilter,
	stac.ConformanceSort,
	stac.ConformanceFields,
	stac.ConformanceFreeText,
}

// NewConformanceCommand creates the conformance command.
func NewConformanceCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "conformance",
		Short: "Show the capabilities a catalog advertises",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			conformance, err := client.Conformance(cmd.Context())
			if err != nil {
				return err
			}

			if raw {
				done, err := renderStructured(conformance.URIs())
				if done {
					return err
				}

				for _, uri := range conformance.URIs() {
					fmt.Fprintln(os.Stdout, uri)
				}

				return nil
			}

			capabilities := make(map[string]bool, len(capabilityOrder))
			for _, class := range capabilityOrder {
				capabilities[string(class)] = conformance.Implements(class)
			}

			done, err := renderStructured(capabilities)
			if done {
				return err
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Capability", "Supported")

			for _, class := range capabilityOrder {
				supported := "no"
				if capabilities[string(class)] {
					supported = "yes"
				}

				_ = table.Append(string(class), supported)
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the advertised conformance URIs instead of the capability summary")

	return cmd
}
