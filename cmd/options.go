package main

import (
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"gopkg.in/yaml.v3"

	"skabillium/memo/cmd/db"
)

const (
	MemoVersion            = "0.1.0"
	DefaultHost            = "localhost"
	DefaultPort            = "5678"
	DefaultUser            = "default"
	DefaultPassword        = "password"
	DefaultCleanupLimit    = 100
	DefaultCleanupInterval = time.Second
	DefaultWalPath         = "wal.log"
)

type ServerOptions struct {
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	AuthEnabled        bool          `yaml:"auth"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	WalEnabled         bool          `yaml:"wal"`
	WalPath            string        `yaml:"wal-path"`
	AutoCleanupEnabled bool          `yaml:"cleanup"`
	CleanupLimit       int           `yaml:"cleanup-limit"`
	CleanupInterval    time.Duration `yaml:"cleanup-interval"`
	NodeCapacity       int           `yaml:"node-capacity"`
	MetricsAddr        string        `yaml:"metrics-addr"`
	LoggingConfig      string        `yaml:"logging-config"`
}

func defaultOptions() *ServerOptions {
	return &ServerOptions{
		Host:               DefaultHost,
		Port:               DefaultPort,
		AuthEnabled:        true,
		User:               DefaultUser,
		Password:           DefaultPassword,
		WalPath:            DefaultWalPath,
		AutoCleanupEnabled: true,
		CleanupLimit:       DefaultCleanupLimit,
		CleanupInterval:    DefaultCleanupInterval,
		NodeCapacity:       db.DefaultNodeCapacity,
		LoggingConfig:      "<root>=INFO",
	}
}

// Addr is the address the server listens on.
func (o *ServerOptions) Addr() string {
	return o.Host + ":" + o.Port
}

func (o *ServerOptions) Validate() error {
	if o.Port == "" {
		return errors.NotValidf("empty port")
	}
	if o.CleanupInterval <= 0 {
		return errors.NotValidf("cleanup interval %v", o.CleanupInterval)
	}
	if o.CleanupLimit < 0 {
		return errors.NotValidf("cleanup limit %d", o.CleanupLimit)
	}
	if o.NodeCapacity < 0 {
		return errors.NotValidf("node capacity %d", o.NodeCapacity)
	}
	return nil
}

// getServerOptions reads the command line. Values from a --config file
// become the flag defaults, so flags given explicitly win.
func getServerOptions(args []string) (*ServerOptions, error) {
	options := defaultOptions()
	f, configPath := newFlagSet(options)
	if err := f.Parse(true, args); err != nil {
		return nil, errors.Trace(err)
	}

	if *configPath != "" {
		options = defaultOptions()
		if err := loadConfigFile(*configPath, options); err != nil {
			return nil, errors.Trace(err)
		}
		f, _ = newFlagSet(options)
		if err := f.Parse(true, args); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if len(f.Args()) > 0 {
		return nil, errors.Errorf("unrecognized args: %q", f.Args())
	}
	return options, errors.Trace(options.Validate())
}

func newFlagSet(o *ServerOptions) (*gnuflag.FlagSet, *string) {
	f := gnuflag.NewFlagSet("memo", gnuflag.ContinueOnError)
	configPath := new(string)
	f.StringVar(configPath, "config", "", "YAML file with server options")
	f.StringVar(&o.Host, "host", o.Host, "Host to listen on")
	f.StringVar(&o.Port, "port", o.Port, "Port to run server")
	f.StringVar(&o.Port, "p", o.Port, "Shorthand for port")
	f.StringVar(&o.User, "user", o.User, "User for authentication")
	f.StringVar(&o.User, "u", o.User, "Shorthand for user")
	f.StringVar(&o.Password, "password", o.Password, "Password for authentication")
	f.StringVar(&o.Password, "pwd", o.Password, "Shorthand for password")
	f.BoolVar(&o.WalEnabled, "wal", o.WalEnabled, "Enable write ahead log")
	f.StringVar(&o.WalPath, "wal-path", o.WalPath, "Write ahead log file")
	f.IntVar(&o.CleanupLimit, "cleanup-limit", o.CleanupLimit, "Most expired keys evicted per cleanup")
	f.DurationVar(&o.CleanupInterval, "cleanup-interval", o.CleanupInterval, "Time between cleanups")
	f.IntVar(&o.NodeCapacity, "node-capacity", o.NodeCapacity, "List and queue items preallocated")
	f.StringVar(&o.MetricsAddr, "metrics-addr", o.MetricsAddr, "Serve Prometheus metrics on this address")
	f.StringVar(&o.LoggingConfig, "logging-config", o.LoggingConfig, "Logging levels, e.g. <root>=INFO;memo.db=TRACE")
	f.Var(negated{&o.AuthEnabled}, "noauth", "Disable authentication")
	f.Var(negated{&o.AutoCleanupEnabled}, "nocleanup", "Disable auto cleanup")
	return f, configPath
}

func loadConfigFile(path string, o *ServerOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Annotatef(err, "reading config %q", path)
	}
	if err := yaml.Unmarshal(data, o); err != nil {
		return errors.Annotatef(err, "parsing config %q", path)
	}
	return nil
}

// negated is a boolean flag that clears the value it points at.
type negated struct {
	v *bool
}

func (n negated) Set(s string) error {
	switch s {
	case "true":
		*n.v = false
	case "false":
		*n.v = true
	default:
		return errors.NotValidf("boolean %q", s)
	}
	return nil
}

func (n negated) String() string {
	if n.v == nil {
		return "false"
	}
	if *n.v {
		return "false"
	}
	return "true"
}

func (negated) IsBoolFlag() bool {
	return true
}
