package rows

import (
	"fmt"
	"github.com/ValentinKolb/otsc/cmd/util"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	rpcStore store.ITableStore

	// RowCommands represents the row command group
	RowCommands = &cobra.Command{
		Use:               "row",
		Short:             "Read and write rows of a table",
		PersistentPreRunE: setupRowClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the row command
	util.SetupRPCClientFlags(RowCommands)

	RowCommands.PersistentFlags().String("table", "", util.WrapString("Name of the table to operate on"))
	RowCommands.PersistentFlags().String("tx", "", util.WrapString("Transaction id to run the operation in (see otsc tx start)"))

	// Add subcommands
	RowCommands.AddCommand(getCmd)
	RowCommands.AddCommand(putCmd)
	RowCommands.AddCommand(delCmd)
	RowCommands.AddCommand(rangeCmd)
	RowCommands.AddCommand(offsetCmd)
	RowCommands.AddCommand(multiGetCmd)
	RowCommands.AddCommand(multiPutCmd)
	RowCommands.AddCommand(multiDelCmd)
	RowCommands.AddCommand(batchCmd)
	RowCommands.AddCommand(perfTestCmd)
}

// setupRowClient initializes the RPC store client
func setupRowClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if viper.GetString("table") == "" {
		return fmt.Errorf("--table is required")
	}

	// Create the table store client
	var err error
	rpcStore, _, err = util.NewTableStore()
	return err
}

func table() string { return viper.GetString("table") }

func transactionID() string { return viper.GetString("tx") }
