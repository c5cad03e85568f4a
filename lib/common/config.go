package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultHostname        = "localhost"
	DefaultPort            = 27017
	DefaultCollection      = "invoices"
	DefaultProbeCollection = "presidents"
	DefaultFactory         = "invoice"
	DefaultStore           = "mongo"
	DefaultWriteAck        = "acknowledged"
	DefaultDataDir         = "data"
	DefaultSampleEncoding  = "UTF-8"
	DefaultTimeoutSecond   = 10
	DefaultPollInterval    = 250 * time.Millisecond
	DefaultLogLevel        = "info"

	// MaxPort is the largest valid TCP port
	MaxPort = 65535
)

// --------------------------------------------------------------------------
// Load configuration struct
// --------------------------------------------------------------------------

// LoadConfig holds everything needed to run a load job.
// Absent string fields are empty; call WithDefaults to fill in defaults.
type LoadConfig struct {
	// Connection parameters
	Hostname string
	Port     int
	TargetDB string
	AuthDB   string
	Username string
	Password string

	// Job parameters
	DocumentCount   int
	Collection      string
	ProbeCollection string
	Factory         string
	SamplePath      string
	SampleEncoding  string
	WriteAck        string // Confirmation each write waits for, see store.ParseAckLevel

	// Store selection
	Store   string
	DataDir string

	// Tuning
	Seed          uint64
	WriteRetries  uint
	TimeoutSecond int
	PollInterval  time.Duration

	// Logging configuration
	LogLevel string
}

// WithDefaults returns a copy of the configuration in which empty optional
// fields are replaced by their defaults. The port is not defaulted, a zero
// port is rejected by Validate.
func (c LoadConfig) WithDefaults() LoadConfig {
	if c.Hostname == "" {
		c.Hostname = DefaultHostname
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.ProbeCollection == "" {
		c.ProbeCollection = DefaultProbeCollection
	}
	if c.Factory == "" {
		c.Factory = DefaultFactory
	}
	if c.SampleEncoding == "" {
		c.SampleEncoding = DefaultSampleEncoding
	}
	if c.WriteAck == "" {
		c.WriteAck = DefaultWriteAck
	}
	if c.Store == "" {
		c.Store = DefaultStore
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.TimeoutSecond <= 0 {
		c.TimeoutSecond = DefaultTimeoutSecond
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return c
}

// Validate checks the connection parameters. All failures are configuration
// errors and are reported before any connection is attempted.
func (c *LoadConfig) Validate() error {
	if c.Port <= 0 || c.Port > MaxPort {
		return NewError(ErrCConfiguration, "invalid port %d, must be in (0, %d]", c.Port, MaxPort)
	}
	if c.TargetDB == "" {
		return NewError(ErrCConfiguration, "target database name missing")
	}
	if c.Username != "" && c.AuthDB == "" {
		return NewError(ErrCConfiguration, "username %q given but no authentication database provided", c.Username)
	}
	if c.DocumentCount < 0 {
		return NewError(ErrCConfiguration, "document count must not be negative (got %d)", c.DocumentCount)
	}
	return nil
}

// Timeout returns the configured timeout as a duration
func (c *LoadConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the configuration.
// The password is never printed.
func (c *LoadConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Store")
	addField("Store", c.Store)
	if c.Store == "bolt" {
		addField("Data Directory", c.DataDir)
	} else {
		addField("Hostname", c.Hostname)
		addField("Port", strconv.Itoa(c.Port))
	}
	addField("Target Database", c.TargetDB)
	if c.Username != "" {
		addField("Username", c.Username)
		addField("Auth Database", c.AuthDB)
		addField("Password", strings.Repeat("*", len(c.Password)))
	}
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	addSection("Job")
	addField("Collection", c.Collection)
	addField("Documents", strconv.Itoa(c.DocumentCount))
	addField("Factory", c.Factory)
	if c.Factory == "sample" {
		addField("Sample", c.SamplePath)
		addField("Sample Encoding", c.SampleEncoding)
	}
	addField("Write Ack", c.WriteAck)
	addField("Write Retries", strconv.FormatUint(uint64(c.WriteRetries), 10))
	if c.Seed != 0 {
		addField("Seed", strconv.FormatUint(c.Seed, 10))
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
