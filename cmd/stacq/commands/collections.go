package commands

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/stacq-io/stacq/internal/constants"
	"github.com/stacq-io/stacq/pkg/stac"
)

// NewCollectionsCommand creates the collections command group.
func NewCollectionsCommand() *cobra.Command {
	var flags collectionsFlags

	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection"},
		Short:   "List and search catalog collections",
		Long: `List a catalog's collections, optionally filtered by free text, a
bounding box, or a time range. Servers without the collection-search
capability are filtered client-side.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCollections(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.freeText, "query", "q", "", "free-text query against titles, descriptions, and keywords")
	cmd.Flags().StringVar(&flags.bbox, "bbox", "", "bounding box: minx,miny,maxx,maxy")
	cmd.Flags().StringVar(&flags.datetime, "datetime", "", "instant or interval, e.g. 2024-06 or 2024-01-01/..")
	cmd.Flags().StringSliceVar(&flags.sort, "sort", nil, "sort fields with +/- prefix, e.g. -id")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "page size suggested to the server")
	cmd.Flags().IntVar(&flags.maxCollections, "max-collections", -1, "stop after this many collections (negative for no cap)")

	cmd.AddCommand(newCollectionsGetCommand())

	return cmd
}

type collectionsFlags struct {
	freeText       string
	bbox           string
	datetime       string
	sort           []string
	limit          int
	maxCollections int
}

func (f collectionsFlags) filtered() bool {
	return f.freeText != "" || f.bbox != "" || f.datetime != "" ||
		len(f.sort) > 0 || f.limit > 0 || f.maxCollections >= 0
}

func buildCollectionSearchSpec(flags collectionsFlags) (*stac.CollectionSearchSpec, error) {
	bbox, err := parseBBox(flags.bbox)
	if err != nil {
		return nil, err
	}

	var sort stac.SortSpec

	if len(flags.sort) > 0 {
		sort, err = stac.SortFromStrings(flags.sort)
		if err != nil {
			return nil, err
		}
	}

	spec := &stac.CollectionSearchSpec{
		Limit:    flags.limit,
		BBox:     bbox,
		Datetime: flags.datetime,
		FreeText: flags.freeText,
		Sort:     sort,
	}

	if flags.maxCollections >= 0 {
		maxCollections := flags.maxCollections
		spec.MaxCollections = &maxCollections
	}

	return spec, nil
}

func listCollections(cmd *cobra.Command, flags collectionsFlags) error {
	client, err := newClient()
	if err != nil {
		return err
	}

	var collections []*stac.Collection

	if flags.filtered() {
		spec, err := buildCollectionSearchSpec(flags)
		if err != nil {
			return err
		}

		search, err := client.SearchCollections(cmd.Context(), spec)
		if err != nil {
			return err
		}

		collections, err = search.Collect(cmd.Context())
		if err != nil {
			return err
		}
	} else {
		collections, err = client.Collections(cmd.Context())
		if err != nil {
			return err
		}
	}

	done, err := renderStructured(collections)
	if done {
		return err
	}

	descWidth := terminalWidth() / 2
	if descWidth > constants.TableMaxColumnWidth {
		descWidth = constants.TableMaxColumnWidth
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Title", "License")

	for _, collection := range collections {
		title := collection.Title
		if title == "" {
			title = NotAvailable
		}

		_ = table.Append(collection.ID, truncate(title, descWidth), collection.License)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func newCollectionsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get COLLECTION_ID",
		Short: "Show a single collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			collection, err := client.GetCollection(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			done, err := renderStructured(collection)
			if done {
				return err
			}

			return renderCollectionTable(collection)
		},
	}
}

func renderCollectionTable(collection *stac.Collection) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	_ = table.Append("ID", collection.ID)
	_ = table.Append("Title", collection.Title)
	_ = table.Append("License", collection.License)
	_ = table.Append("Description", truncate(collection.Description, constants.TableMaxColumnWidth*2))

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
