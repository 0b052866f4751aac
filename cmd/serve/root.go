package serve

import (
	"fmt"
	cmdUtil "github.com/ValentinKolb/otsc/cmd/util"
	"github.com/ValentinKolb/otsc/rpc/common"
	"github.com/ValentinKolb/otsc/rpc/server"
	"github.com/ValentinKolb/otsc/rpc/transport/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the protocol emulator",
		Long:    `Start an in-memory emulator of the table service. It answers both protocol generations and verifies every signature against the configured credentials. The configuration can be set via command line flags or environment variables. The format of the environment variables is OTSC_<flag> (e.g. OTSC_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the emulator will listen (e.g. localhost:8080)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Read and write timeout of a request in seconds"))

	key = "host-id"
	ServeCmd.PersistentFlags().String(key, "otsc-emulator", cmdUtil.WrapString("Value of the x-ots-hostid header of every response"))

	key = "credentials"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Comma-separated list of accepted access keys in the format 'id=secret,id2=secret2'"))

	key = "metrics-path"
	ServeCmd.PersistentFlags().String(key, "/metrics", cmdUtil.WrapString("Path of the Prometheus metrics endpoint (empty disables it)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse credentials
	credentials, err := ParseCredentials(viper.GetString("credentials"))
	if err != nil {
		return err
	}
	if len(credentials) == 0 {
		return fmt.Errorf("at least one access key is required (--credentials id=secret)")
	}
	serveCmdConfig.Credentials = credentials

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.HostID = viper.GetString("host-id")
	serveCmdConfig.MetricsPath = viper.GetString("metrics-path")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// serve starts the emulator
func run(_ *cobra.Command, _ []string) error {
	serv := server.NewRPCServer(
		*serveCmdConfig,
		http.NewHttpServerTransport(),
	)

	return serv.Serve()
}

// ParseCredentials parses a list of access keys in the format id=secret,id2=secret2
func ParseCredentials(s string) (map[string]string, error) {
	credentials := make(map[string]string)
	for _, pair := range cmdUtil.SplitList(s) {
		id, secret, ok := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" || secret == "" {
			return nil, fmt.Errorf("invalid credential format: %s (expected id=secret)", pair)
		}
		credentials[id] = secret
	}
	return credentials, nil
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("otsc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
