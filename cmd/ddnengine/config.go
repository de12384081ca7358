package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds everything needed to build and serve one engine instance.
// Precedence, highest to lowest: command-line flags, environment variables
// (DDNENGINE_ prefixed), config file, defaults.
type Config struct {
	Metadata      MetadataConfig      `mapstructure:"metadata"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// MetadataConfig locates the OpenDD metadata this instance serves.
type MetadataConfig struct {
	// Root is a directory tree whose *.json files are the metadata
	// fragments, loaded with opendd.NewFSLoader.
	Root string `mapstructure:"root"`
}

// ServerConfig holds HTTP listener and request-handling parameters.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Pretty          bool          `mapstructure:"pretty"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	GraphiQL        bool          `mapstructure:"graphiql"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	MetadataHeaders []string      `mapstructure:"metadata_headers"`
	// ConnectorTimeout bounds every outbound NDC request.
	ConnectorTimeout time.Duration `mapstructure:"connector_timeout"`
}

// ObservabilityConfig configures the OTLP trace exporter and the
// Prometheus metrics endpoint.
type ObservabilityConfig struct {
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

var defineFlagsOnce sync.Once

// defineFlags registers every flag once; repeated Load calls (as in tests)
// must not panic on re-registration.
func defineFlags() {
	defineFlagsOnce.Do(func() {
		pflag.String("metadata.root", "", "Directory of OpenDD metadata fragments")
		pflag.String("server.addr", ":8080", "HTTP listen address")
		pflag.Bool("server.pretty", false, "Pretty-print JSON responses")
		pflag.Duration("server.timeout", 10*time.Second, "Per-request timeout")
		pflag.Int64("server.max_body_bytes", 10<<20, "Maximum request body size in bytes")
		pflag.Bool("server.graphiql", true, "Serve the GraphiQL IDE on browser GET /graphql")
		pflag.StringSlice("server.cors_origins", nil, "Allowed CORS origins (repeatable, or comma-separated)")
		pflag.StringSlice("server.metadata_headers", nil, "Inbound HTTP headers forwarded on outbound NDC requests")
		pflag.Duration("server.connector_timeout", 10*time.Second, "Timeout for each outbound NDC request")
		pflag.String("observability.otlp_endpoint", "", "OTLP collector endpoint (empty disables tracing)")
		pflag.String("observability.service_name", "ddnengine", "OpenTelemetry service name")
		pflag.Bool("observability.metrics_enabled", true, "Serve Prometheus metrics on GET /metrics")
		pflag.StringP("config", "c", "", "Config file path")
	})
}

// LoadConfig reads configuration from flags, env vars, a config file, and
// defaults, in that precedence order, grounded on the pack's viper+pflag
// loader shape.
func LoadConfig(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	defineFlags()
	fs := pflag.NewFlagSet("ddnengine", pflag.ContinueOnError)
	fs.AddFlagSet(pflag.CommandLine)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfgPath, _ := fs.GetString("config"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", cfgPath, err)
		}
	}

	v.SetEnvPrefix("DDNENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fs.Visit(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		v.Set(f.Name, f.Value.String())
	})

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Metadata.Root == "" {
		return nil, fmt.Errorf("metadata.root is required")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("metadata.root", "")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.pretty", false)
	v.SetDefault("server.timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", int64(10<<20))
	v.SetDefault("server.graphiql", true)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.metadata_headers", []string{})
	v.SetDefault("server.connector_timeout", 10*time.Second)
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.service_name", "ddnengine")
	v.SetDefault("observability.metrics_enabled", true)
}
