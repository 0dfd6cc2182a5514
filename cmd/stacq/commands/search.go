package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacq-io/stacq/pkg/stac"
)

// NewSearchCommand creates the search command.
//
//nolint:funlen // flag wiring dominates the length
func NewSearchCommand() *cobra.Command {
	var (
		collections []string
		ids         []string
		bboxFlag    string
		datetime    string
		queries     []string
		filterFlag  string
		filterLang  string
		sortFlag    []string
		fieldsFlag  string
		freeText    string
		limit       int
		maxItems    int
		method      string
		showURL     bool
		matchedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search a catalog for items",
		Long: `Search a catalog for items matching spatial, temporal, and property
filters, following pagination until --max-items results are collected.

Property filters use a comparison shorthand, one expression per --query
flag: "eo:cloud_cover<10", "platform=sentinel-2a". Multiple expressions
combine with AND. Full CQL2 filters (text or JSON) go through --filter.`,
		Example: `  stacq search --collections sentinel-2-l2a --bbox -72.5,40.5,-72,41 --datetime 2024-06
  stacq search --collections landsat-c2l2-sr --query "eo:cloud_cover<10" --sort -datetime
  stacq search --ids S2A_MSIL2A_20240601T154941 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := buildSearchSpec(searchFlags{
				collections: collections,
				ids:         ids,
				bbox:        bboxFlag,
				datetime:    datetime,
				queries:     queries,
				filter:      filterFlag,
				filterLang:  filterLang,
				sort:        sortFlag,
				fields:      fieldsFlag,
				freeText:    freeText,
				limit:       limit,
				maxItems:    maxItems,
				method:      method,
			})
			if err != nil {
				return err
			}

			client, err := newClient()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			search, err := client.Search(ctx, spec)
			if err != nil {
				return err
			}

			if showURL {
				fmt.Fprintln(os.Stdout, search.URLWithParameters())

				return nil
			}

			if matchedOnly {
				matched, known, err := search.Matched(ctx)
				if err != nil {
					return err
				}

				if !known {
					fmt.Fprintln(os.Stdout, NotAvailable)

					return nil
				}

				fmt.Fprintln(os.Stdout, matched)

				return nil
			}

			return renderSearch(cmd, search)
		},
	}

	cmd.Flags().StringSliceVar(&collections, "collections", nil, "collection IDs to search")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "item IDs to fetch")
	cmd.Flags().StringVar(&bboxFlag, "bbox", "", "bounding box: minx,miny,maxx,maxy")
	cmd.Flags().StringVar(&datetime, "datetime", "", "instant or interval, e.g. 2024-06 or 2024-01-01/..")
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "property comparison, e.g. \"eo:cloud_cover<10\" (repeatable)")
	cmd.Flags().StringVar(&filterFlag, "filter", "", "CQL2 filter, text or JSON")
	cmd.Flags().StringVar(&filterLang, "filter-lang", "", "filter language override (cql2-text, cql2-json)")
	cmd.Flags().StringSliceVar(&sortFlag, "sort", nil, "sort fields with +/- prefix, e.g. -datetime")
	cmd.Flags().StringVar(&fieldsFlag, "fields", "", "item fields to include/exclude, e.g. +id,-geometry")
	cmd.Flags().StringVar(&freeText, "free-text", "", "free-text query")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size suggested to the server")
	cmd.Flags().IntVar(&maxItems, "max-items", 100, "stop after this many items (negative for no cap)")
	cmd.Flags().StringVar(&method, "method", "", "force GET or POST")
	cmd.Flags().BoolVar(&showURL, "show-url", false, "print the request URL instead of searching")
	cmd.Flags().BoolVar(&matchedOnly, "matched", false, "print the match-count estimate instead of items")

	return cmd
}

type searchFlags struct {
	collections []string
	ids         []string
	bbox        string
	datetime    string
	queries     []string
	filter      string
	filterLang  string
	sort        []string
	fields      string
	freeText    string
	limit       int
	maxItems    int
	method      string
}

func buildSearchSpec(flags searchFlags) (*stac.SearchSpec, error) {
	bbox, err := parseBBox(flags.bbox)
	if err != nil {
		return nil, err
	}

	filter, err := buildFilter(flags)
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

	var fields *stac.FieldsSpec
	if flags.fields != "" {
		fields = stac.FieldsFromString(flags.fields)
	}

	spec := &stac.SearchSpec{
		Limit:       flags.limit,
		Collections: flags.collections,
		IDs:         flags.ids,
		BBox:        bbox,
		Datetime:    flags.datetime,
		Filter:      filter,
		Sort:        sort,
		Fields:      fields,
		FreeText:    flags.freeText,
		Method:      strings.ToUpper(flags.method),
	}

	if flags.maxItems >= 0 {
		maxItems := flags.maxItems
		spec.MaxItems = &maxItems
	}

	return spec, nil
}

func buildFilter(flags searchFlags) (*stac.Filter, error) {
	if len(flags.queries) > 0 {
		if flags.filter != "" {
			return nil, stac.ErrConflictingFilter
		}

		return stac.ParseShorthand(flags.queries...)
	}

	if flags.filter == "" {
		return nil, nil
	}

	if flags.filterLang == stac.FilterLangJSON || strings.HasPrefix(strings.TrimSpace(flags.filter), "{") {
		return stac.NewJSONFilter(json.RawMessage(flags.filter)), nil
	}

	return stac.NewTextFilter(flags.filter), nil
}

func renderSearch(cmd *cobra.Command, search *stac.Search) error {
	ctx := cmd.Context()
	pages := search.Pages(ctx)

	var items []*stac.Item

	for pages.HasNext() {
		page, err := pages.Next()
		if errors.Is(err, stac.ErrNoMorePages) {
			break
		}

		if err != nil {
			return err
		}

		items = append(items, page.Features...)
	}

	if viper.GetString("output") == OutputFormatJSON {
		page := &stac.ItemCollection{Type: "FeatureCollection", Features: items}
		_, err := renderStructured(page)

		return err
	}

	done, err := renderStructured(items)
	if done {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Collection", "Datetime")

	for _, item := range items {
		_ = table.Append(item.ID, item.Collection, itemDatetime(item))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	if matched, known := pages.Matched(); known {
		fmt.Fprintf(os.Stdout, "\nMatched: %d, returned: %d\n", matched, len(items))
	} else {
		fmt.Fprintf(os.Stdout, "\nReturned: %d\n", len(items))
	}

	return nil
}
