package util

import (
	"fmt"
	"github.com/ValentinKolb/otsc/lib/store"
	"github.com/ValentinKolb/otsc/rpc/client"
	"github.com/ValentinKolb/otsc/rpc/common"
	"github.com/ValentinKolb/otsc/rpc/serializer"
	"github.com/ValentinKolb/otsc/rpc/transport/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "access-key-id"
	cmd.PersistentFlags().String(key, "", WrapString("The access key id used to sign requests"))

	key = "access-key-secret"
	cmd.PersistentFlags().String(key, "", WrapString("The access key secret used to sign requests (prefer OTSC_ACCESS_KEY_SECRET)"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, common.DefaultEndpoint, WrapString("The address of the service. Multiple endpoints can be specified as a comma-separated list and are used round robin"))

	key = "generation"
	cmd.PersistentFlags().String(key, string(common.Generation2013), WrapString("The protocol generation to speak (2013, legacy)"))

	key = "api-version"
	cmd.PersistentFlags().String(key, "", WrapString("The API version sent with every request (default depends on the generation)"))

	key = "signature-method"
	cmd.PersistentFlags().String(key, "HmacSHA1", WrapString("The keyed hash used for signatures (HmacSHA1, HmacSHA256)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, common.DefaultTimeoutMillisecond, WrapString("The timeout in milliseconds of a request"))

	key = "dns-cache"
	cmd.PersistentFlags().Int(key, common.DefaultDNSCacheMillisecond, WrapString("How long resolved addresses are reused in milliseconds (negative disables the cache)"))

	key = "retries"
	cmd.PersistentFlags().Int(key, common.DefaultRetryCount, WrapString("How many times a request is sent if no response was received"))

	key = "conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Idle connections kept per endpoint"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("otsc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() (*common.ClientConfig, error) {
	gen, err := common.ParseGeneration(viper.GetString("generation"))
	if err != nil {
		return nil, err
	}

	conf := &common.ClientConfig{
		AccessKeyID:            viper.GetString("access-key-id"),
		AccessKeySecret:        viper.GetString("access-key-secret"),
		Endpoints:              SplitList(viper.GetString("endpoints")),
		Generation:             gen,
		APIVersion:             viper.GetString("api-version"),
		SignatureMethod:        viper.GetString("signature-method"),
		TimeoutMillisecond:     viper.GetInt("timeout"),
		DNSCacheMillisecond:    viper.GetInt("dns-cache"),
		RetryCount:             viper.GetInt("retries"),
		ConnectionsPerEndpoint: viper.GetInt("conn-per-endpoint"),
	}
	conf.ApplyDefaults()

	return conf, nil
}

// NewTableStore creates the client of the configured generation over HTTP
func NewTableStore() (store.ITableStore, *common.ClientConfig, error) {
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return nil, nil, err
	}
	config, err := GetClientConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := client.NewRPCStore(
		*config,
		http.NewHttpClientTransport(),
		serializer.ForGeneration(config.Generation),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return st, config, nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
