package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fivetwenty-io/pocketbase-go/internal/constants"
	"github.com/fivetwenty-io/pocketbase-go/pkg/pocketbase"
	"github.com/spf13/cobra"
)

// NewRecordsCommand creates the records command group.
func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "rec"},
		Short:   "Manage collection records",
		Long:    "List, get, create, update, and delete records of a PocketBase collection",
	}

	cmd.AddCommand(newRecordsListCommand())
	cmd.AddCommand(newRecordsGetCommand())
	cmd.AddCommand(newRecordsCreateCommand())
	cmd.AddCommand(newRecordsUpdateCommand())
	cmd.AddCommand(newRecordsDeleteCommand())

	return cmd
}

type listOptions struct {
	filter    string
	sort      string
	page      int
	perPage   int
	expand    []string
	skipTotal bool
	all       bool
}

func (o listOptions) query() pocketbase.ListQuery {
	query := pocketbase.NewListQuery()

	if o.filter != "" {
		query = query.Filter(o.filter)
	}

	if o.sort != "" {
		query = query.Sort(o.sort)
	}

	if o.page != 0 {
		query = query.Page(o.page)
	}

	if o.perPage != 0 {
		query = query.PerPage(o.perPage)
	}

	if len(o.expand) > 0 {
		query = query.Expand(o.expand...)
	}

	return query.SkipTotal(o.skipTotal)
}

func newRecordsListCommand() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list COLLECTION",
		Short: "List records",
		Long:  "List one page of records, or every page with --all",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecordsListCommand(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.filter, "filter", "", "filter expression, e.g. \"views > 10\"")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "comma-separated sort fields, \"-\" for descending")
	cmd.Flags().IntVar(&opts.page, "page", 0, "page number")
	cmd.Flags().IntVar(&opts.perPage, "per-page", 0, "results per page")
	cmd.Flags().StringSliceVar(&opts.expand, "expand", nil, "relations to expand")
	cmd.Flags().BoolVar(&opts.skipTotal, "skip-total", false, "skip counting the total")
	cmd.Flags().BoolVar(&opts.all, "all", false, "fetch all pages")

	return cmd
}

func runRecordsListCommand(cmd *cobra.Command, collection string, opts listOptions) error {
	records, err := recordsFor(collection)
	if err != nil {
		return err
	}

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if opts.all {
		items, err := records.GetFullList(ctx, opts.query())
		if err != nil {
			return fmt.Errorf("failed to list %s records: %w", collection, err)
		}

		return render(out, items, func(w io.Writer) error {
			return renderRecordTable(w, items)
		})
	}

	result, err := records.List(ctx, opts.query())
	if err != nil {
		return fmt.Errorf("failed to list %s records: %w", collection, err)
	}

	return render(out, result, func(w io.Writer) error {
		err := renderRecordTable(w, result.Items)
		if err == nil && len(result.Items) > 0 {
			renderListFooter(w, result)
		}

		return err
	})
}

func newRecordsGetCommand() *cobra.Command {
	var expand []string

	cmd := &cobra.Command{
		Use:   "get COLLECTION RECORD_ID",
		Short: "Get record details",
		Long:  "Display every field of a single record",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := recordsFor(args[0])
			if err != nil {
				return err
			}

			record, err := records.GetOne(context.Background(), args[1], expand...)
			if err != nil {
				return fmt.Errorf("failed to get record %s: %w", args[1], err)
			}

			return renderRecord(cmd.OutOrStdout(), *record)
		},
	}

	cmd.Flags().StringSliceVar(&expand, "expand", nil, "relations to expand")

	return cmd
}

func newRecordsCreateCommand() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "create COLLECTION",
		Short: "Create a record",
		Long:  "Create a record from a JSON object given inline or as @FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseData(data)
			if err != nil {
				return err
			}

			records, err := recordsFor(args[0])
			if err != nil {
				return err
			}

			created, err := records.Create(context.Background(), fields)
			if err != nil {
				return fmt.Errorf("failed to create %s record: %w", args[0], err)
			}

			return renderRecord(cmd.OutOrStdout(), *created)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "record fields as a JSON object, or @FILE")

	return cmd
}

func newRecordsUpdateCommand() *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "update COLLECTION RECORD_ID",
		Short: "Update a record",
		Long:  "Change the given fields of a record; fields not mentioned are left as they are",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseData(data)
			if err != nil {
				return err
			}

			records, err := recordsFor(args[0])
			if err != nil {
				return err
			}

			updated, err := records.Update(context.Background(), args[1], fields)
			if err != nil {
				return fmt.Errorf("failed to update record %s: %w", args[1], err)
			}

			return renderRecord(cmd.OutOrStdout(), *updated)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "fields to change as a JSON object, or @FILE")

	return cmd
}

func newRecordsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete COLLECTION RECORD_ID",
		Short: "Delete a record",
		Long:  "Permanently delete a record",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := recordsFor(args[0])
			if err != nil {
				return err
			}

			err = records.Delete(context.Background(), args[1])
			if err != nil {
				return fmt.Errorf("failed to delete record %s: %w", args[1], err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %s from %s\n", args[1], args[0])

			return nil
		},
	}
}

func recordsFor(collection string) (*pocketbase.Records[pocketbase.Record], error) {
	client, err := CreateClient()
	if err != nil {
		return nil, err
	}

	return pocketbase.CollectionOf[pocketbase.Record](client, collection)
}

func renderRecord(w io.Writer, record pocketbase.Record) error {
	return render(w, record, func(w io.Writer) error {
		return renderRecordDetails(w, record)
	})
}

// parseData reads a --data value: an inline JSON object or @path to a file
// holding one.
func parseData(data string) (pocketbase.Record, error) {
	if data == "" {
		return nil, constants.ErrDataRequired
	}

	raw := []byte(data)

	if path, ok := strings.CutPrefix(data, "@"); ok {
		// #nosec G304 -- the path is supplied by the user on purpose
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}

		raw = content
	}

	var fields pocketbase.Record

	err := json.Unmarshal(raw, &fields)
	if err != nil || fields == nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrInvalidDataArg, strings.TrimSpace(string(raw)))
	}

	return fields, nil
}
