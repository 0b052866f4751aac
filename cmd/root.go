package cmd

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/otsc/cmd/rows"
	"github.com/ValentinKolb/otsc/cmd/serve"
	"github.com/ValentinKolb/otsc/cmd/sign"
	"github.com/ValentinKolb/otsc/cmd/table"
	"github.com/ValentinKolb/otsc/cmd/tx"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "otsc",
		Short: "table service client and emulator",
		Long: fmt.Sprintf(`otsc (v%s)

A client for the Open Table Service written in Go. It speaks both protocol
generations, signs every request and ships an in-memory emulator for tests.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of otsc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("otsc v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(table.TableCommands)
	RootCmd.AddCommand(rows.RowCommands)
	RootCmd.AddCommand(tx.TxCommands)
	RootCmd.AddCommand(sign.SignCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
