package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/newtron-network/conexus/pkg/backend"
	"github.com/newtron-network/conexus/pkg/backend/labdb"
	"github.com/newtron-network/conexus/pkg/backend/openstack"
	"github.com/newtron-network/conexus/pkg/config"
	"github.com/newtron-network/conexus/pkg/fleet"
	"github.com/newtron-network/conexus/pkg/settings"
	"github.com/newtron-network/conexus/pkg/util"
)

// Flag names. Settings keys use the same names.
const (
	flagConfig       = "config"
	flagDebug        = "debug"
	flagLogFormat    = "log-format"
	flagNoColor      = "no-color"
	flagUsername     = "os-username"
	flagPassword     = "os-password"
	flagTenantName   = "os-tenant-name"
	flagAuthURL      = "os-auth-url"
	flagRegion       = "os-region-name"
	flagDomain       = "os-domain-name"
	flagBackend      = "backend"
	flagLabAddr      = "lab-addr"
	flagReadyTimeout = "ready-timeout"
	flagPollInterval = "poll-interval"
	flagReport       = "report"
	flagAuditLog     = "audit-log"
	flagNaming       = "naming"
)

const (
	backendOpenStack = "openstack"
	backendLab       = "lab"

	logFormatText = "text"
	logFormatJSON = "json"
)

// envBindings maps flags to the environment variables consulted when the
// flag is not given. The first variable set wins.
var envBindings = map[string][]string{
	flagUsername:   {"OS_USERNAME"},
	flagPassword:   {"OS_PASSWORD"},
	flagTenantName: {"OS_TENANT_NAME", "OS_PROJECT_NAME"},
	flagAuthURL:    {"OS_AUTH_URL"},
	flagRegion:     {"OS_REGION_NAME"},
	flagDomain:     {"OS_USER_DOMAIN_NAME"},
	flagBackend:    {"CONEXUS_BACKEND"},
	flagLabAddr:    {"CONEXUS_LAB_ADDR"},
	flagAuditLog:   {"CONEXUS_AUDIT_LOG"},
}

// Options is the resolved configuration of one invocation.
type Options struct {
	ConfigPath   string
	Debug        bool
	LogFormat    string
	NoColor      bool
	Credentials  openstack.Credentials
	Backend      string
	LabAddr      string
	ReadyTimeout time.Duration
	PollInterval time.Duration
	ReportPath   string
	AuditLog     string
	Naming       util.NamingScheme
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringP(flagConfig, "c", config.DefaultPath, "Configuration file")
	fs.BoolP(flagDebug, "d", false, "Debug logging")
	fs.String(flagLogFormat, logFormatText, "Log format: text or json")
	fs.Bool(flagNoColor, false, "Disable colored output")

	fs.StringP(flagUsername, "U", "", "OpenStack user name (env OS_USERNAME)")
	fs.StringP(flagPassword, "P", "", "OpenStack password (env OS_PASSWORD)")
	fs.StringP(flagTenantName, "T", "", "OpenStack tenant name (env OS_TENANT_NAME)")
	fs.StringP(flagAuthURL, "A", "", "OpenStack auth URL (env OS_AUTH_URL)")
	fs.String(flagRegion, "", "OpenStack region (env OS_REGION_NAME)")
	fs.String(flagDomain, openstack.DefaultDomainName, "OpenStack user domain (env OS_USER_DOMAIN_NAME)")

	fs.String(flagBackend, backendOpenStack, "Cloud backend: openstack or lab")
	fs.String(flagLabAddr, labdb.DefaultAddr, "Redis address of the lab backend")

	fs.Duration(flagReadyTimeout, fleet.DefaultReadyTimeout, "How long to wait for each instance to become ACTIVE")
	fs.Duration(flagPollInterval, fleet.DefaultPollInterval, "Instance status poll interval")
	fs.String(flagReport, "", "Write a YAML run report to this file")
	fs.String(flagAuditLog, "", "Audit log file (default next to the settings file)")
	fs.String(flagNaming, string(util.NamingDistinct), "Resource naming scheme: distinct or legacy")
}

// bindConfig wires flags, environment and settings into v. Viper consults
// a changed flag first, then the environment, then the settings (held as
// viper defaults), then the flag's own default.
func bindConfig(v *viper.Viper, fs *pflag.FlagSet, s *settings.Settings) error {
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	for flag, envs := range envBindings {
		if err := v.BindEnv(append([]string{flag}, envs...)...); err != nil {
			return fmt.Errorf("binding %s: %w", flag, err)
		}
	}
	for key, value := range s.Values() {
		v.SetDefault(key, value)
	}
	return nil
}

func resolveOptions(v *viper.Viper) (Options, error) {
	opts := Options{
		ConfigPath: v.GetString(flagConfig),
		Debug:      v.GetBool(flagDebug),
		LogFormat:  v.GetString(flagLogFormat),
		NoColor:    v.GetBool(flagNoColor),
		Credentials: openstack.Credentials{
			AuthURL:    v.GetString(flagAuthURL),
			Username:   v.GetString(flagUsername),
			Password:   v.GetString(flagPassword),
			TenantName: v.GetString(flagTenantName),
			DomainName: v.GetString(flagDomain),
			Region:     v.GetString(flagRegion),
		},
		Backend:      v.GetString(flagBackend),
		LabAddr:      v.GetString(flagLabAddr),
		ReadyTimeout: v.GetDuration(flagReadyTimeout),
		PollInterval: v.GetDuration(flagPollInterval),
		ReportPath:   v.GetString(flagReport),
		AuditLog:     v.GetString(flagAuditLog),
	}

	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath
	}
	if opts.AuditLog == "" {
		opts.AuditLog = defaultAuditLogPath()
	}

	switch opts.LogFormat {
	case "", logFormatText:
		opts.LogFormat = logFormatText
	case logFormatJSON:
	default:
		return Options{}, fmt.Errorf("%w: --%s must be %s or %s", util.ErrInvalidConfig, flagLogFormat, logFormatText, logFormatJSON)
	}

	switch opts.Backend {
	case "":
		opts.Backend = backendOpenStack
	case backendOpenStack, backendLab:
	default:
		return Options{}, fmt.Errorf("%w: unknown backend %q (valid: %s, %s)", util.ErrInvalidConfig, opts.Backend, backendOpenStack, backendLab)
	}

	if opts.ReadyTimeout <= 0 || opts.PollInterval <= 0 {
		return Options{}, fmt.Errorf("%w: --%s and --%s must be positive", util.ErrInvalidConfig, flagReadyTimeout, flagPollInterval)
	}

	naming, err := util.ParseNamingScheme(v.GetString(flagNaming))
	if err != nil {
		return Options{}, err
	}
	opts.Naming = naming
	return opts, nil
}

func defaultAuditLogPath() string {
	return filepath.Join(filepath.Dir(settings.DefaultSettingsPath()), "audit.log")
}

// requireCredentials checks that the openstack credentials are complete.
// The lab backend needs none.
func requireCredentials(opts Options) error {
	if opts.Backend != backendOpenStack {
		return nil
	}
	c := opts.Credentials
	for _, req := range []struct {
		value string
		flag  string
	}{
		{c.Username, flagUsername},
		{c.Password, flagPassword},
		{c.TenantName, flagTenantName},
		{c.AuthURL, flagAuthURL},
	} {
		if req.value == "" {
			return &util.MissingCredentialError{Flag: req.flag, EnvVar: envBindings[req.flag][0]}
		}
	}
	return nil
}

// connectBackend opens the selected backend. The returned function
// releases it.
func connectBackend(ctx context.Context, opts Options) (backend.Cloud, func(), error) {
	switch opts.Backend {
	case backendLab:
		store := labdb.New(opts.LabAddr, 0)
		if err := store.Connect(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		client, err := openstack.Connect(ctx, opts.Credentials)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}
}

// auditUser is the name stamped on audit events.
func auditUser(opts Options) string {
	if opts.Credentials.Username != "" {
		return opts.Credentials.Username
	}
	return os.Getenv("USER")
}
