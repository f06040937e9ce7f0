package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultServerURL is where remote commands look when nothing else is set.
const DefaultServerURL = "http://localhost:8080"

// Remote holds what the CLI needs to call a running server. It is kept in
// cli.yaml, next to config.yaml, and only 'desk login' and 'desk logout'
// write it.
type Remote struct {
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
}

// RemotePath returns ~/.config/churchdesk/cli.yaml.
func RemotePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cli.yaml"), nil
}

// ReadRemote returns the settings saved at path, with no defaults or
// environment applied. A missing file reads as empty.
func ReadRemote(path string) (Remote, error) {
	var r Remote
	if err := readYAML(path, &r); err != nil {
		return Remote{}, err
	}
	return r, nil
}

// LoadRemote resolves the settings remote commands use. Later sources
// override earlier ones: cli.yaml at path (the default when empty), .env
// in the working directory, then DESK_SERVER_URL and DESK_API_KEY.
func LoadRemote(path string) (Remote, error) {
	return loadRemote(path, ".env")
}

func loadRemote(path, envFile string) (Remote, error) {
	if path == "" {
		p, err := RemotePath()
		if err != nil {
			return Remote{}, err
		}
		path = p
	}
	r, err := ReadRemote(path)
	if err != nil {
		return Remote{}, err
	}
	if err := loadDotenv(envFile); err != nil {
		return Remote{}, err
	}
	if v := os.Getenv("DESK_SERVER_URL"); v != "" {
		r.ServerURL = v
	}
	if v := os.Getenv("DESK_API_KEY"); v != "" {
		r.APIKey = v
	}
	if r.ServerURL == "" {
		r.ServerURL = DefaultServerURL
	}
	r.ServerURL = strings.TrimRight(r.ServerURL, "/")
	return r, nil
}

// CheckServerURL accepts absolute http and https URLs.
func CheckServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("server URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server URL %q: want http:// or https:// with a host", raw)
	}
	return nil
}

// Save writes r to path, readable only by its owner since it holds the key.
func (r Remote) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding cli settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
