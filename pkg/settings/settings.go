// Package settings manages persistent user settings for the conexus CLI.
// Settings sit below flags and environment variables in precedence. The
// OpenStack password is never stored.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Settings holds persistent user preferences
type Settings struct {
	// ConfigPath is the topology file used when -c is not specified
	ConfigPath string `json:"config_path,omitempty"`

	AuthURL    string `json:"auth_url,omitempty"`
	Username   string `json:"username,omitempty"`
	TenantName string `json:"tenant_name,omitempty"`
	Region     string `json:"region,omitempty"`
	DomainName string `json:"domain_name,omitempty"`

	// Backend is "openstack" or "lab"
	Backend string `json:"backend,omitempty"`
	LabAddr string `json:"lab_addr,omitempty"`

	AuditLog string `json:"audit_log,omitempty"`
	Naming   string `json:"naming,omitempty"`
}

// Keys lists the settable keys in display order. Each key matches the
// long flag it backs.
var Keys = []string{
	"config",
	"os-auth-url",
	"os-username",
	"os-tenant-name",
	"os-region-name",
	"os-domain-name",
	"backend",
	"lab-addr",
	"audit-log",
	"naming",
}

func (s *Settings) field(key string) (*string, error) {
	switch key {
	case "config":
		return &s.ConfigPath, nil
	case "os-auth-url":
		return &s.AuthURL, nil
	case "os-username":
		return &s.Username, nil
	case "os-tenant-name":
		return &s.TenantName, nil
	case "os-region-name":
		return &s.Region, nil
	case "os-domain-name":
		return &s.DomainName, nil
	case "backend":
		return &s.Backend, nil
	case "lab-addr":
		return &s.LabAddr, nil
	case "audit-log":
		return &s.AuditLog, nil
	case "naming":
		return &s.Naming, nil
	case "os-password":
		return nil, fmt.Errorf("the password is never stored; use --os-password or OS_PASSWORD")
	}
	return nil, fmt.Errorf("unknown setting %q (known: %v)", key, Keys)
}

// Get returns the value of key.
func (s *Settings) Get(key string) (string, error) {
	f, err := s.field(key)
	if err != nil {
		return "", err
	}
	return *f, nil
}

// Set stores value under key. An empty value unsets it.
func (s *Settings) Set(key, value string) error {
	f, err := s.field(key)
	if err != nil {
		return err
	}
	*f = value
	return nil
}

// Values returns the non-empty settings keyed by name.
func (s *Settings) Values() map[string]string {
	out := make(map[string]string)
	for _, k := range Keys {
		if v, _ := s.Get(k); v != "" {
			out[k] = v
		}
	}
	return out
}

// SortedKeys returns the keys of m in sorted order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	if p := os.Getenv("CONEXUS_SETTINGS"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "conexus_settings.json"
	}
	return filepath.Join(home, ".conexus", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
