package config

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/netfault/internal/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel            = LogLevelWarning
	DefaultFormat              = FormatSimple
	DefaultTimeout             = 10 * time.Second
	DefaultInterval            = 30 * time.Second
	DefaultJournalDB           = "/var/lib/netfault/journal.db"
	DefaultJournalBatchSize    = 16
	DefaultJournalBatchTimeout = 5 * time.Second

	defaultEnvPrefix  = "NETFAULT"
	defaultEnvFile    = ".env"
	defaultConfigName = "netfault"
	defaultConfigDir  = "/etc"
)

type Config struct {
	LogLevel            LogLevel      `mapstructure:"log_level" validate:"oneof=debug info warning error"`
	Format              Format        `mapstructure:"format" validate:"oneof=simple full"`
	CaptureTrace        bool          `mapstructure:"capture_trace"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Interval            time.Duration `mapstructure:"interval" validate:"gt=0"`
	Journal             bool          `mapstructure:"journal"`
	JournalDB           string        `mapstructure:"journal_db" validate:"required_if=Journal true"`
	JournalBatchSize    int           `mapstructure:"journal_batch_size" validate:"gte=0"`
	JournalBatchTimeout time.Duration `mapstructure:"journal_batch_timeout" validate:"gte=0"`
	MetricsAddr         string        `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`

	// Args holds the positional arguments left after flag parsing
	Args []string `mapstructure:"-"`
}

var validate = validator.New()

// Load reads configuration from flags, environment, an optional dotenv file
// and an optional TOML file, in that order of precedence.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{
		envPrefix: defaultEnvPrefix,
		envFile:   defaultEnvFile,
	}
	for _, opt := range opts {
		opt(&o)
	}

	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return nil, errFactory.WrapWithCode(errors.ErrParameterError, err)
	}

	if o.envFile != "" {
		err := godotenv.Load(o.envFile)
		switch {
		case err == nil, errors.Is(err, fs.ErrNotExist):
		case errors.As(err, new(*fs.PathError)):
			return nil, errFactory.Wrap(err)
		default:
			return nil, errFactory.Wrap(errors.NewSerializationError("dotenv", err))
		}
	}

	v := viper.New()
	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, name := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, errFactory.WrapWithCode(errors.ErrParameterError, err)
		}
	}

	if err := readConfigFile(v, configPath(flags, o)); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.NewSerializationError("config", err))
	}
	cfg.Args = flags.Args()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks every field against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.New().Wrap(err)
	}
	return nil
}

// flagKeys maps configuration keys to their command line flags
var flagKeys = map[string]string{
	"log_level":             "log-level",
	"format":                "format",
	"capture_trace":         "capture-trace",
	"timeout":               "timeout",
	"interval":              "interval",
	"journal":               "journal",
	"journal_db":            "journal-db",
	"journal_batch_size":    "journal-batch-size",
	"journal_batch_timeout": "journal-batch-timeout",
	"metrics_addr":          "metrics-addr",
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("netfault", pflag.ContinueOnError)
	flags.String("config", "", "Path to a TOML configuration file")
	flags.String("log-level", DefaultLogLevel.String(), "Log level: debug, info, warning or error")
	flags.String("format", string(DefaultFormat), "Error output format: simple or full")
	flags.Bool("capture-trace", false, "Capture a stack trace on every classified error")
	flags.Duration("timeout", DefaultTimeout, "Timeout for a single probe")
	flags.Duration("interval", DefaultInterval, "Interval between probe rounds in watch mode")
	flags.Bool("journal", false, "Record classified errors in the journal")
	flags.String("journal-db", DefaultJournalDB, "Path to the journal database")
	flags.Int("journal-batch-size", DefaultJournalBatchSize, "Entries buffered before the journal flushes")
	flags.Duration("journal-batch-timeout", DefaultJournalBatchTimeout, "Interval between journal flushes")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	return flags
}

func configPath(flags *pflag.FlagSet, o options) string {
	if path, _ := flags.GetString("config"); path != "" {
		return path
	}
	if o.configPath != "" {
		return o.configPath
	}
	return os.Getenv(o.envPrefix + "_CONFIG")
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("toml")
		v.AddConfigPath(defaultConfigDir)
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if path == "" && errors.As(err, &notFound) {
		return nil
	}

	var parseErr viper.ConfigParseError
	if errors.As(err, &parseErr) {
		return errFactory.Wrap(errors.NewSerializationError("toml", err))
	}

	return errFactory.Wrap(errors.NewIOError("read config file", err))
}
