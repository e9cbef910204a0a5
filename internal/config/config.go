// Package config locates and parses auth.json, and loads or generates the
// server's own certificate. The same lookup order is shared by the server
// and the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/intecture/inauth/internal/cert"
	"github.com/intecture/inauth/internal/errs"
)

const (
	fileName = "auth.json"

	envConfigDir = "INAUTH_CONFIG_DIR"
)

// searchPaths are tried, in order, after an explicit flag/env override.
var searchPaths = []string{
	"/usr/local/etc/intecture",
	"/etc/intecture",
}

// Config is the auth.json schema: the server's own certificate file, the
// directory the Persistence Adaptor manages, and the two listening ports.
type Config struct {
	ServerCert string `json:"server_cert"`
	CertPath   string `json:"cert_path"`
	APIPort    int    `json:"api_port"`
	UpdatePort int    `json:"update_port"`
}

// Locate resolves the directory auth.json lives in: an explicit override
// (from a "-c"/"--config" flag, "" meaning unset) takes precedence, then
// INAUTH_CONFIG_DIR, then the fixed search path list. It fails with
// MissingConf if none of them contain auth.json.
func Locate(override string) (string, error) {
	candidates := []string{}
	if override != "" {
		candidates = append(candidates, override)
	}
	if dir := os.Getenv(envConfigDir); dir != "" {
		candidates = append(candidates, dir)
	}
	candidates = append(candidates, searchPaths...)

	for _, dir := range candidates {
		path := filepath.Join(dir, fileName)
		if _, err := os.Stat(path); err == nil {
			return dir, nil
		}
	}
	return "", errs.New(errs.MissingConf, fmt.Sprintf("%s not found in any of %v", fileName, candidates))
}

// Load parses dir/auth.json.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.MissingConf, err, fmt.Sprintf("failed to read %s", path))
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errs.Wrap(errs.MissingConf, err, fmt.Sprintf("failed to parse %s", path))
	}
	return &c, nil
}

// serverCertName is the fixed name every auth server's own certificate
// carries, regardless of the machine it runs on.
const serverCertName = "auth"

// LoadOrGenerateServerCert loads the server's own certificate from
// cfg.ServerCert if the file exists, or generates a fresh host certificate
// named "auth" and persists it there otherwise, along with a public-only
// sibling at cfg.ServerCert + "_public" for distribution.
func LoadOrGenerateServerCert(cfg *Config) (*cert.Certificate, error) {
	if _, err := os.Stat(cfg.ServerCert); err == nil {
		return cert.Load(cfg.ServerCert)
	}

	c, err := cert.New(serverCertName, cert.Host)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ServerCert), 0755); err != nil {
		return nil, errs.Wrap(errs.Io, err, fmt.Sprintf("failed to create directory for %s", cfg.ServerCert))
	}
	if err := c.SavePublic(cfg.ServerCert + "_public"); err != nil {
		return nil, err
	}
	if err := c.SaveSecret(cfg.ServerCert); err != nil {
		return nil, err
	}
	return c, nil
}
