package table

import (
	"fmt"
	"github.com/ValentinKolb/otsc/cmd/util"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/spf13/cobra"
	"strings"
)

var (
	createCmd = &cobra.Command{
		Use:   "create [name] --pk name:TYPE...",
		Short: "Creates a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, _ := cmd.Flags().GetStringSlice("pk")
			pk, err := ParseSchema(specs)
			if err != nil {
				return err
			}
			meta := store.TableMeta{Name: args[0], PrimaryKey: pk}
			meta.PagingKeyLen, _ = cmd.Flags().GetInt("paging-key-len")
			meta.TableGroupName, _ = cmd.Flags().GetString("group")
			if err := rpcStore.CreateTable(cmd.Context(), meta); err != nil {
				return err
			}
			fmt.Printf("table %s created\n", meta.Name)
			return nil
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [name]",
		Short: "Deletes a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.DeleteTable(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("table %s deleted\n", args[0])
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := rpcStore.ListTable(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	metaCmd = &cobra.Command{
		Use:   "meta [name]",
		Short: "Prints the schema of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := rpcStore.GetTableMeta(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return util.PrintJSON(cmd.OutOrStdout(), meta)
		},
	}

	groupCreateCmd = &cobra.Command{
		Use:   "create [name] [partition key type]",
		Short: "Creates a table group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := value.ParseKind(args[1])
			if err != nil {
				return err
			}
			if err := rpcStore.CreateTableGroup(cmd.Context(), args[0], kind); err != nil {
				return err
			}
			fmt.Printf("table group %s created\n", args[0])
			return nil
		},
	}
	groupDeleteCmd = &cobra.Command{
		Use:   "delete [name]",
		Short: "Deletes a table group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.DeleteTableGroup(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("table group %s deleted\n", args[0])
			return nil
		},
	}
	groupListCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all table groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := rpcStore.ListTableGroup(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
)

func init() {
	createCmd.Flags().StringSlice("pk", nil, util.WrapString("Primary key columns in key order as name:TYPE (comma-separated)"))
	createCmd.Flags().Int("paging-key-len", 0, util.WrapString("Number of leading primary key columns used for paging"))
	createCmd.Flags().String("group", "", util.WrapString("Table group the table belongs to"))
}

// ParseSchema parses column declarations of the form name:TYPE
func ParseSchema(specs []string) ([]store.ColumnSchema, error) {
	out := make([]store.ColumnSchema, 0, len(specs))
	for _, spec := range specs {
		name, typ, ok := strings.Cut(spec, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid column %q (expected name:TYPE)", spec)
		}
		kind, err := value.ParseKind(typ)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		out = append(out, store.ColumnSchema{Name: name, Type: kind})
	}
	return out, nil
}
