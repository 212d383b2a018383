// Package config resolves one run's settings from flags, SCHEDSIM_*
// environment variables, and an optional YAML file, in that precedence,
// via Viper — built as a constructor rather than one global instance so
// tests can build isolated configs.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is everything a `schedsim run` invocation needs.
type Config struct {
	Policy       string        `mapstructure:"policy"`
	ManifestPath string        `mapstructure:"manifest"`
	OutputDir    string        `mapstructure:"output-dir"`
	TickPeriod   time.Duration `mapstructure:"tick-period"`
	Speed        float64       `mapstructure:"speed"`
	Net           bool   `mapstructure:"net"`
	Host          string `mapstructure:"host"`
	ClockPort     int    `mapstructure:"clock-port"`
	EmitterPort   int    `mapstructure:"emitter-port"`
	SchedulerPort int    `mapstructure:"scheduler-port"`

	MetricsAddr string `mapstructure:"metrics-addr"`
	LiveAddr    string `mapstructure:"live-addr"`
	RedisAddr   string `mapstructure:"redis-addr"`
	PostgresDSN string `mapstructure:"postgres-dsn"`

	LogLevel  string `mapstructure:"log-level"`
	LogFile   string `mapstructure:"log-file"`
	LogFormat string `mapstructure:"log-format"`
}

// BindFlags registers every setting as a pflag on flags and binds it into
// v.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	flags.String("policy", "fcfs", "scheduling policy: fcfs, rr, sjf, srtf, prioc, priop, priod")
	flags.String("manifest", "", "path to the workload manifest (text or .yaml)")
	flags.String("output-dir", ".", "directory to write algoritmo_<policy>.txt into")
	flags.Duration("tick-period", 100*time.Millisecond, "wall-clock duration of one simulated tick")
	flags.Float64("speed", 1.0, "tick-rate multiplier; 2.0 runs twice as fast as the reference period")
	flags.Bool("net", false, "use the networked three-process transport instead of in-process channels")
	flags.String("host", "localhost", "host for the networked transport's endpoints")
	flags.Int("clock-port", 4000, "networked transport: Clock's listening port")
	flags.Int("emitter-port", 4001, "networked transport: Emitter's listening port")
	flags.Int("scheduler-port", 4002, "networked transport: Scheduler's listening port")
	flags.String("metrics-addr", "", "address to serve /metrics on; empty disables Prometheus export")
	flags.String("live-addr", "", "address to serve the live WebSocket feed on; empty disables it")
	flags.String("redis-addr", "", "Redis address for the ephemeral run registry; empty disables it")
	flags.String("postgres-dsn", "", "Postgres DSN for the durable run archive; empty disables it")
	flags.String("log-level", "info", "logrus level: trace, debug, info, warn, error")
	flags.String("log-file", "", "path to a rotated log file; empty logs to stderr only")
	flags.String("log-format", "text", "logrus formatter: text or json")

	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("config: bind flags: %w", err)
	}
	return nil
}

// Load builds a Viper instance layered flags > env > YAML file > defaults,
// and decodes it into a Config. path may be empty to skip the file layer.
// Load registers its own flags via BindFlags, so it always operates on a
// fresh FlagSet — callers that already registered flags on a long-lived
// FlagSet (a Cobra command's, parsed once at startup) should use Decode
// against the same Viper instance BindFlags bound to, instead of calling
// Load a second time and re-registering.
func Load(flags *pflag.FlagSet, path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("schedsim")
	v.AutomaticEnv()

	if err := BindFlags(v, flags); err != nil {
		return Config{}, err
	}
	return Decode(v, path)
}

// Decode layers an optional YAML file over whatever v already has bound
// (flags, env) and unmarshals the result. Use this when flags were
// registered once, earlier, via BindFlags — e.g. at a Cobra command's
// init time — to avoid BindFlags' "flag redefined" panic on a second call
// against the same FlagSet.
func Decode(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}
