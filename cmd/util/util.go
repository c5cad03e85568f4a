package util

import (
	"fmt"
	"github.com/ValentinKolb/dLoad/lib/common"
	"github.com/ValentinKolb/dLoad/lib/factory"
	"github.com/ValentinKolb/dLoad/lib/random"
	"github.com/ValentinKolb/dLoad/lib/store"
	"github.com/ValentinKolb/dLoad/lib/store/bstore"
	"github.com/ValentinKolb/dLoad/lib/store/lstore"
	"github.com/ValentinKolb/dLoad/lib/store/mstore"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// AppName is announced to servers that support client names
	AppName = "dload"
)

var log = logger.GetLogger("cmd")

// ConfigFile is the optional configuration file given with --config
var ConfigFile string

// legacyKeys maps the property names of MongoLoader configuration files to flag names
var legacyKeys = map[string]string{
	"userdb":         "target-db",
	"authdb":         "auth-db",
	"numdocs":        "documents",
	"samplepath":     "sample-path",
	"sampleencoding": "sample-encoding",
}

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

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupConnectionFlags adds the store connection flags to a command
func SetupConnectionFlags(cmd *cobra.Command) {
	key := "store"
	cmd.PersistentFlags().String(key, common.DefaultStore, WrapString("The store to load into (mongo, bolt, memory)"))

	key = "hostname"
	cmd.PersistentFlags().String(key, common.DefaultHostname, WrapString("Hostname of the MongoDB server"))

	key = "port"
	cmd.PersistentFlags().Int(key, common.DefaultPort, WrapString("Port of the MongoDB server"))

	key = "target-db"
	cmd.PersistentFlags().String(key, "", WrapString("Name of the database to load into (required)"))

	key = "auth-db"
	cmd.PersistentFlags().String(key, "", WrapString("Database the user is defined in (required with --username)"))

	key = "username"
	cmd.PersistentFlags().String(key, "", WrapString("User to authenticate as, leave empty to connect without authentication"))

	key = "password"
	cmd.PersistentFlags().String(key, "", WrapString("Password of the user. Prefer the DLOAD_PASSWORD environment variable"))

	key = "data-dir"
	cmd.PersistentFlags().String(key, common.DefaultDataDir, WrapString("Directory of the database files (bolt store only)"))

	key = "probe-collection"
	cmd.PersistentFlags().String(key, common.DefaultProbeCollection, WrapString("Collection read to test the connection"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, common.DefaultTimeoutSecond, WrapString("The connection timeout in seconds"))
}

// SetupGeneratorFlags adds the document generation flags to a command
func SetupGeneratorFlags(cmd *cobra.Command) {
	key := "factory"
	cmd.PersistentFlags().String(key, common.DefaultFactory, WrapString(factoryHelp()))

	key = "sample-path"
	cmd.PersistentFlags().String(key, "", WrapString("Path of the JSON or YAML sample mirrored by the sample factory"))

	key = "sample-encoding"
	cmd.PersistentFlags().String(key, common.DefaultSampleEncoding, WrapString("Character encoding of the sample file (IANA name, e.g. ISO-8859-1)"))

	key = "seed"
	cmd.PersistentFlags().Uint64(key, 0, WrapString("Seed of the random generator, 0 seeds from the clock"))
}

// factoryHelp lists the registered factories with their descriptions
func factoryHelp() string {
	var sb strings.Builder
	sb.WriteString("The document factory to use.")
	for _, name := range factory.Names() {
		sb.WriteString(fmt.Sprintf(" %s: %s.", name, factory.Describe(name)))
	}
	return sb.String()
}

// InitConfig loads .env files, the optional configuration file and the
// environment variables into viper
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dload")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	if ConfigFile != "" {
		viper.SetConfigFile(ConfigFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Errorf("failed to read config file %s: %v", ConfigFile, err)
		}
	}

	// aliases move values read from the file, so they are registered after reading it
	for alias, key := range legacyKeys {
		viper.RegisterAlias(alias, key)
	}
}

// GetLoadConfig reads the load configuration from viper
func GetLoadConfig() common.LoadConfig {
	return common.LoadConfig{
		Hostname:        viper.GetString("hostname"),
		Port:            viper.GetInt("port"),
		TargetDB:        viper.GetString("target-db"),
		AuthDB:          viper.GetString("auth-db"),
		Username:        viper.GetString("username"),
		Password:        viper.GetString("password"),
		DocumentCount:   viper.GetInt("documents"),
		Collection:      viper.GetString("collection"),
		ProbeCollection: viper.GetString("probe-collection"),
		Factory:         viper.GetString("factory"),
		SamplePath:      viper.GetString("sample-path"),
		SampleEncoding:  viper.GetString("sample-encoding"),
		WriteAck:        viper.GetString("write-ack"),
		Store:           viper.GetString("store"),
		DataDir:         viper.GetString("data-dir"),
		Seed:            viper.GetUint64("seed"),
		WriteRetries:    viper.GetUint("write-retries"),
		TimeoutSecond:   viper.GetInt("timeout"),
		PollInterval:    viper.GetDuration("poll-interval"),
		LogLevel:        viper.GetString("log-level"),
	}.WithDefaults()
}

// GetStore creates the store selected by the configuration
func GetStore(cfg common.LoadConfig) (store.IStore, error) {
	switch cfg.Store {
	case "mongo":
		return mstore.NewMongoStore(AppName), nil
	case "bolt":
		return bstore.NewBoltStore(cfg.DataDir), nil
	case "memory":
		return lstore.NewLocalStore(), nil
	default:
		return nil, common.NewError(common.ErrCConfiguration, "invalid store %s (expected one of: mongo, bolt, memory)", cfg.Store)
	}
}

// GetFactory creates the document factory selected by the configuration
func GetFactory(cfg common.LoadConfig, rand *random.Allocator) (factory.IDocumentFactory, error) {
	return factory.New(cfg.Factory, rand, factory.Options{
		SamplePath:     cfg.SamplePath,
		SampleEncoding: cfg.SampleEncoding,
	})
}

// BindCommandFlags binds a command's flags to viper and applies the log level.
// It is used as PreRunE of all commands.
func BindCommandFlags(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}
