package table

import (
	"github.com/ValentinKolb/otsc/cmd/util"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/spf13/cobra"
)

var (
	rpcStore store.ITableStore

	// TableCommands represents the table command group
	TableCommands = &cobra.Command{
		Use:               "table",
		Short:             "Manage tables and table groups",
		PersistentPreRunE: setupTableClient,
	}

	groupCmd = &cobra.Command{
		Use:   "group",
		Short: "Manage table groups",
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common RPC flags to the table command
	util.SetupRPCClientFlags(TableCommands)

	// Add subcommands
	TableCommands.AddCommand(createCmd)
	TableCommands.AddCommand(deleteCmd)
	TableCommands.AddCommand(listCmd)
	TableCommands.AddCommand(metaCmd)
	TableCommands.AddCommand(groupCmd)

	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupDeleteCmd)
	groupCmd.AddCommand(groupListCmd)
}

// setupTableClient initializes the RPC store client
func setupTableClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	rpcStore, _, err = util.NewTableStore()
	return err
}
