package common

import (
	"fmt"
	"github.com/ValentinKolb/otsc/lib/sign"
	"github.com/ValentinKolb/otsc/lib/value"
	"sort"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Protocol generations
// --------------------------------------------------------------------------

// Generation selects the wire encoding, the signing variant and the decoding rules of
// a protocol generation.
type Generation string

const (
	// Generation2013 uses binary framed bodies, header signatures and returns safe
	// integers as numbers.
	Generation2013 Generation = "2013"
	// GenerationLegacy uses URL-encoded parameters, parameter signatures and XML
	// results, and returns every integer as decimal text.
	GenerationLegacy Generation = "legacy"
)

// ParseGeneration parses a generation name. "" means Generation2013.
func ParseGeneration(s string) (Generation, error) {
	switch Generation(strings.ToLower(strings.TrimSpace(s))) {
	case "", Generation2013, "2013-05-10":
		return Generation2013, nil
	case GenerationLegacy:
		return GenerationLegacy, nil
	default:
		return "", fmt.Errorf("unknown protocol generation %q (must be one of 2013, legacy)", s)
	}
}

// Precision returns the integer decoding mode of the generation.
func (g Generation) Precision() value.PrecisionMode {
	if g == GenerationLegacy {
		return value.PrecisionLiteral
	}
	return value.PrecisionSafe
}

// DefaultAPIVersion returns the API version sent by the generation.
func (g Generation) DefaultAPIVersion() string {
	if g == GenerationLegacy {
		return "1"
	}
	return DefaultAPIVersion
}

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultEndpoint            = "http://service.ots.aliyun.com"
	DefaultAPIVersion          = "2013-05-10"
	DefaultTimeoutMillisecond  = 5000
	DefaultDNSCacheMillisecond = 10000
	DefaultRetryCount          = 1
)

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds everything a client needs to reach and authenticate against the
// table storage service.
type ClientConfig struct {
	// credentials
	AccessKeyID     string
	AccessKeySecret string

	// protocol
	Endpoints        []string
	Generation       Generation
	APIVersion       string
	SignatureMethod  string
	SignatureVersion string

	// transport
	TimeoutMillisecond     int
	DNSCacheMillisecond    int
	RetryCount             int
	ConnectionsPerEndpoint int
}

// DefaultClientConfig returns a configuration with all defaults applied and no credentials.
func DefaultClientConfig() ClientConfig {
	c := ClientConfig{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every unset field with its default.
func (c *ClientConfig) ApplyDefaults() {
	if len(c.Endpoints) == 0 {
		c.Endpoints = []string{DefaultEndpoint}
	}
	if c.Generation == "" {
		c.Generation = Generation2013
	}
	if c.APIVersion == "" {
		c.APIVersion = c.Generation.DefaultAPIVersion()
	}
	if c.SignatureMethod == "" {
		c.SignatureMethod = sign.MethodHmacSHA1
	}
	if c.SignatureVersion == "" {
		c.SignatureVersion = "1"
	}
	if c.TimeoutMillisecond <= 0 {
		c.TimeoutMillisecond = DefaultTimeoutMillisecond
	}
	if c.DNSCacheMillisecond == 0 {
		c.DNSCacheMillisecond = DefaultDNSCacheMillisecond
	}
	if c.RetryCount <= 0 {
		c.RetryCount = DefaultRetryCount
	}
	if c.ConnectionsPerEndpoint <= 0 {
		c.ConnectionsPerEndpoint = 1
	}
}

// Validate checks the fields that have no sensible default.
func (c *ClientConfig) Validate() error {
	if c.AccessKeyID == "" || c.AccessKeySecret == "" {
		return fmt.Errorf("access key id and secret are required")
	}
	if _, err := ParseGeneration(string(c.Generation)); err != nil {
		return err
	}
	switch c.SignatureMethod {
	case sign.MethodHmacSHA1, sign.MethodHmacSHA256:
	default:
		return fmt.Errorf("unsupported signature method %q", c.SignatureMethod)
	}
	return nil
}

// Signer returns the request signer of the configuration.
func (c *ClientConfig) Signer() sign.Signer {
	return sign.Signer{
		AccessKeyID:      c.AccessKeyID,
		AccessKeySecret:  c.AccessKeySecret,
		APIVersion:       c.APIVersion,
		SignatureMethod:  c.SignatureMethod,
		SignatureVersion: c.SignatureVersion,
	}
}

// Timeout returns the request timeout.
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillisecond) * time.Millisecond
}

// DNSCacheTime returns how long resolved addresses are reused. A negative value disables the cache.
func (c *ClientConfig) DNSCacheTime() time.Duration {
	return time.Duration(c.DNSCacheMillisecond) * time.Millisecond
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Credentials")
	addField("Access Key ID", c.AccessKeyID)
	addField("Access Key Secret", mask(c.AccessKeySecret))

	addSection("Protocol")
	addField("Generation", string(c.Generation))
	addField("API Version", c.APIVersion)
	addField("Signature Method", c.SignatureMethod)
	addField("Signature Version", c.SignatureVersion)

	addSection("Transport")
	addField("Timeout", fmt.Sprintf("%d ms", c.TimeoutMillisecond))
	addField("DNS Cache Time", fmt.Sprintf("%d ms", c.DNSCacheMillisecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(max(1, c.ConnectionsPerEndpoint)))

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Emulator server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds the configuration of the protocol emulator.
type ServerConfig struct {
	// HTTP api settings
	Endpoint      string
	TimeoutSecond int64

	// identity reported in the x-ots-hostid header
	HostID string

	// access key id -> access key secret
	Credentials map[string]string

	// Logging configuration
	LogLevel string

	// MetricsPath exposes the Prometheus metrics of the process, "" disables it
	MetricsPath string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Emulator")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Host ID", c.HostID)
	addField("Metrics Path", c.MetricsPath)

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Sort keys for consistent output
	addSection("Credentials")
	ids := make([]string, 0, len(c.Credentials))
	for id := range c.Credentials {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		addField(id, mask(c.Credentials[id]))
	}
	return sb.String()
}

// mask hides all but the last two characters of a secret
func mask(secret string) string {
	if len(secret) <= 2 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-2) + secret[len(secret)-2:]
}
