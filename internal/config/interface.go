package config

// Option defines a configuration option that can be passed to Load
type Option func(*options)

// options holds internal configuration options
type options struct {
	configPath string
	envPrefix  string
	envFile    string
}

// WithConfigFile specifies an explicit configuration file path
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "NETFAULT"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithEnvFile specifies a dotenv file to load before reading the environment.
// A missing file is not an error.
func WithEnvFile(path string) Option {
	return func(o *options) {
		o.envFile = path
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

// String implements the Stringer interface
func (l LogLevel) String() string {
	return string(l)
}

// Format selects how classified errors are rendered on output
type Format string

const (
	FormatSimple Format = "simple"
	FormatFull   Format = "full"
)
