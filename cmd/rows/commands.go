package rows

import (
	"fmt"
	"github.com/ValentinKolb/otsc/cmd/util"
	"github.com/ValentinKolb/otsc/lib/row"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/spf13/cobra"
	"strings"
)

var (
	getCmd = &cobra.Command{
		Use:   "get --pk name=value...",
		Short: "Reads a row",
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := itemsFlag(cmd, "pk")
			if err != nil {
				return err
			}
			columns, _ := cmd.Flags().GetStringSlice("columns")
			r, err := rpcStore.GetRow(cmd.Context(), table(), pk, store.GetOptions{Columns: columns, TransactionID: transactionID()})
			if err != nil {
				return err
			}
			if r == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "row not found")
				return nil
			}
			return util.PrintJSON(cmd.OutOrStdout(), r)
		},
	}
	putCmd = &cobra.Command{
		Use:   "put --pk name=value... --col name[:TYPE]=value...",
		Short: "Writes a row",
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := itemsFlag(cmd, "pk")
			if err != nil {
				return err
			}
			cols, err := itemsFlag(cmd, "col")
			if err != nil {
				return err
			}
			checking, _ := cmd.Flags().GetString("checking")
			opts := store.PutOptions{Checking: row.Checking(strings.ToUpper(checking)), TransactionID: transactionID()}
			if err := rpcStore.PutRow(cmd.Context(), table(), pk, cols, opts); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del --pk name=value...",
		Short: "Deletes a row, or only some of its columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := itemsFlag(cmd, "pk")
			if err != nil {
				return err
			}
			columns, _ := cmd.Flags().GetStringSlice("columns")
			if err := rpcStore.DeleteRow(cmd.Context(), table(), pk, store.DeleteOptions{Columns: columns, TransactionID: transactionID()}); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	rangeCmd = &cobra.Command{
		Use:   "range --key name --begin value --end value",
		Short: "Scans a primary key range (end exclusive)",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, err := itemsFlag(cmd, "prefix")
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			q := row.RangeQuery{PrimaryKeyPrefix: prefix}
			q.KeyName, _ = flags.GetString("key")
			begin, _ := flags.GetString("begin")
			end, _ := flags.GetString("end")
			q.Begin, q.End = util.ParseBound(begin), util.ParseBound(end)
			q.Type, _ = flags.GetString("type")
			q.Columns, _ = flags.GetStringSlice("columns")
			q.Reverse, _ = flags.GetBool("reverse")
			q.Limit, _ = flags.GetInt("limit")
			q.NextToken, _ = flags.GetString("next-token")

			res, err := rpcStore.GetRowsByRange(cmd.Context(), table(), q, transactionID())
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), res)
		},
	}
	offsetCmd = &cobra.Command{
		Use:   "offset --paging name=value... --top n",
		Short: "Pages through the rows sharing the paging keys (legacy protocol only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			paging, err := itemsFlag(cmd, "paging")
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			q := row.OffsetQuery{PagingKeys: paging}
			q.Columns, _ = flags.GetStringSlice("columns")
			q.Offset, _ = flags.GetInt("offset")
			q.Top, _ = flags.GetInt("top")

			rows, err := rpcStore.GetRowsByOffset(cmd.Context(), table(), q, transactionID())
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), rows)
		},
	}
	multiGetCmd = &cobra.Command{
		Use:   "multiget --row 'name=value;...'...",
		Short: "Reads up to 100 rows in one request",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := batchFlag(cmd, false)
			if err != nil {
				return err
			}
			columns, _ := cmd.Flags().GetStringSlice("columns")
			for i := range items {
				items[i].ColumnNames = columns
			}
			results, err := rpcStore.MultiGetRow(cmd.Context(), table(), items)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), results)
		},
	}
	multiPutCmd = &cobra.Command{
		Use:   "multiput --row 'pk=value;col[:TYPE]=value;...'...",
		Short: "Writes up to 1000 rows in one request",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := batchFlag(cmd, true)
			if err != nil {
				return err
			}
			checking, _ := cmd.Flags().GetString("checking")
			for i := range items {
				items[i].Checking = row.Checking(strings.ToUpper(checking))
			}
			results, err := rpcStore.MultiPutRow(cmd.Context(), table(), items)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), results)
		},
	}
	multiDelCmd = &cobra.Command{
		Use:   "multidel --row 'name=value;...'...",
		Short: "Deletes up to 1000 rows in one request",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := batchFlag(cmd, false)
			if err != nil {
				return err
			}
			results, err := rpcStore.MultiDeleteRow(cmd.Context(), table(), items)
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), results)
		},
	}
	batchCmd = &cobra.Command{
		Use:   "batch --put 'pk=value;col=value'... --del 'pk=value'...",
		Short: "Applies puts and deletes in one transaction (legacy generation)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mods []store.Modification
			for _, m := range []struct {
				flag string
				typ  store.ModifyType
			}{{"put", store.ModifyPut}, {"del", store.ModifyDelete}} {
				specs, _ := cmd.Flags().GetStringArray(m.flag)
				for _, spec := range specs {
					it, err := parseBatchRow(cmd, spec, m.typ == store.ModifyPut)
					if err != nil {
						return err
					}
					mods = append(mods, store.Modification{Type: m.typ, Item: it})
				}
			}
			if err := rpcStore.BatchModifyRow(cmd.Context(), table(), mods, transactionID()); err != nil {
				return err
			}
			fmt.Printf("%d modifications applied\n", len(mods))
			return nil
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{getCmd, putCmd, delCmd} {
		c.Flags().StringArray("pk", nil, util.WrapString("Primary key component as name[:TYPE]=value, repeat in key order"))
	}
	for _, c := range []*cobra.Command{getCmd, delCmd, rangeCmd, offsetCmd, multiGetCmd} {
		c.Flags().StringSlice("columns", nil, util.WrapString("Only these columns (comma-separated)"))
	}
	for _, c := range []*cobra.Command{putCmd, multiPutCmd} {
		c.Flags().String("checking", "NO", util.WrapString("Whether the row may or must exist (NO, INSERT, UPDATE)"))
	}
	for _, c := range []*cobra.Command{multiGetCmd, multiPutCmd, multiDelCmd} {
		c.Flags().StringArray("row", nil, util.WrapString("One row as ';' separated name[:TYPE]=value items, repeat for every row"))
	}
	for _, c := range []*cobra.Command{multiPutCmd, batchCmd} {
		c.Flags().Int("pk-len", 1, util.WrapString("How many leading items of a row form the primary key"))
	}

	putCmd.Flags().StringArray("col", nil, util.WrapString("Attribute column as name[:TYPE]=value, repeat for every column"))

	rangeCmd.Flags().StringArray("prefix", nil, util.WrapString("Fixed leading primary key component as name[:TYPE]=value"))
	rangeCmd.Flags().String("key", "", util.WrapString("Name of the primary key component that is scanned"))
	rangeCmd.Flags().String("begin", "", util.WrapString("Inclusive start of the scan, a literal or a bound like STR_MIN"))
	rangeCmd.Flags().String("end", "", util.WrapString("Exclusive end of the scan, a literal or a bound like STR_MAX"))
	rangeCmd.Flags().String("type", "STRING", util.WrapString("Type of the scanned component (STRING, INTEGER, BOOLEAN)"))
	rangeCmd.Flags().Bool("reverse", false, util.WrapString("Scan from begin downwards"))
	rangeCmd.Flags().Int("limit", 0, util.WrapString("Maximum number of rows (0 for the service default)"))
	rangeCmd.Flags().String("next-token", "", util.WrapString("Continue a previous scan"))

	offsetCmd.Flags().StringArray("paging", nil, util.WrapString("Paging key component as name[:TYPE]=value, repeat in key order"))
	offsetCmd.Flags().Int("offset", 0, util.WrapString("Number of rows to skip"))
	offsetCmd.Flags().Int("top", 100, util.WrapString("Maximum number of rows"))

	batchCmd.Flags().StringArray("put", nil, util.WrapString("Row to put as ';' separated items"))
	batchCmd.Flags().StringArray("del", nil, util.WrapString("Primary key to delete as ';' separated items"))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func itemsFlag(cmd *cobra.Command, name string) ([]row.Item, error) {
	args, _ := cmd.Flags().GetStringArray(name)
	return util.ParseItems(args)
}

// batchFlag parses the --row flags. Rows with columns split after --pk-len items.
func batchFlag(cmd *cobra.Command, withColumns bool) ([]row.BatchItem, error) {
	specs, _ := cmd.Flags().GetStringArray("row")
	items := make([]row.BatchItem, 0, len(specs))
	for _, spec := range specs {
		it, err := parseBatchRow(cmd, spec, withColumns)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func parseBatchRow(cmd *cobra.Command, spec string, withColumns bool) (row.BatchItem, error) {
	parsed, err := util.ParseItems(strings.Split(spec, ";"))
	if err != nil {
		return row.BatchItem{}, err
	}
	if !withColumns {
		return row.BatchItem{PrimaryKey: parsed}, nil
	}
	n, _ := cmd.Flags().GetInt("pk-len")
	if n < 1 || n > len(parsed) {
		return row.BatchItem{}, fmt.Errorf("row %q has fewer than %d primary key items", spec, n)
	}
	return row.BatchItem{PrimaryKey: parsed[:n], Columns: parsed[n:]}, nil
}
