package tx

import (
	"fmt"
	"github.com/ValentinKolb/otsc/cmd/util"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/lib/value"
	"github.com/spf13/cobra"
	"strconv"
)

var (
	rpcStore store.ITableStore

	// TxCommands represents the transaction command group
	TxCommands = &cobra.Command{
		Use:               "tx",
		Short:             "Start, commit and abort transactions",
		Long:              "A transaction locks one partition of a table or table group. Pass the printed transaction id to row commands with --tx and finish it with commit or abort.",
		PersistentPreRunE: setupTxClient,
	}

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Starts a transaction and prints its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			entity, _ := flags.GetString("entity")
			literal, _ := flags.GetString("pk-value")
			typ, _ := flags.GetString("pk-type")
			pk, err := ParsePartitionKey(literal, typ)
			if err != nil {
				return err
			}
			id, err := rpcStore.StartTransaction(cmd.Context(), entity, pk)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	commitCmd = &cobra.Command{
		Use:   "commit [transaction id]",
		Short: "Commits a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.CommitTransaction(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("committed")
			return nil
		},
	}
	abortCmd = &cobra.Command{
		Use:   "abort [transaction id]",
		Short: "Aborts a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.AbortTransaction(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("aborted")
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the tx command
	util.SetupRPCClientFlags(TxCommands)

	TxCommands.AddCommand(startCmd)
	TxCommands.AddCommand(commitCmd)
	TxCommands.AddCommand(abortCmd)

	startCmd.Flags().String("entity", "", util.WrapString("Table or table group the transaction belongs to"))
	startCmd.Flags().String("pk-value", "", util.WrapString("Value of the partition key (first primary key column)"))
	startCmd.Flags().String("pk-type", "STRING", util.WrapString("Type of the partition key (STRING, INTEGER, BOOLEAN)"))
	_ = startCmd.MarkFlagRequired("entity")
	_ = startCmd.MarkFlagRequired("pk-value")
}

// setupTxClient initializes the RPC store client
func setupTxClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	rpcStore, _, err = util.NewTableStore()
	return err
}

// ParsePartitionKey converts the literal of a partition key to a value of kind typ
func ParsePartitionKey(literal, typ string) (any, error) {
	kind, err := value.ParseKind(typ)
	if err != nil {
		return nil, err
	}
	switch kind {
	case value.KindInteger:
		return strconv.ParseInt(literal, 10, 64)
	case value.KindBoolean:
		return strconv.ParseBool(literal)
	case value.KindString:
		return literal, nil
	default:
		return nil, fmt.Errorf("%s cannot be a partition key", kind)
	}
}
