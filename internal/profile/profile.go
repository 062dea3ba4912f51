package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the runtime configuration of the orchestrator process.
// Distinct from the conversational settings in config.Config: the profile
// only carries what the process needs before any session exists.
type Profile struct {
	// Mode can be "prod", "dev" or "demo".
	Mode string
	// Addr is the binding address of the HTTP server.
	Addr string
	// Port is the binding port of the HTTP server.
	Port int
	// Data is the data directory (sqlite files, downloads).
	Data string
	// Driver is the storage driver, "postgres" or "sqlite".
	Driver string
	// DSN is the storage source name.
	DSN string
	// ConfigFile is the path of the ini configuration file.
	ConfigFile string
	// BraveAPIKey enables the web search tool when set.
	BraveAPIKey string
	// Version is the current release version.
	Version string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv fills the env-backed fields that flags did not set.
func (p *Profile) FromEnv() {
	if p.DSN == "" {
		p.DSN = getEnvOrDefault("ASKLLY_DSN", os.Getenv("POSTGRES_URL"))
	}
	if p.Driver == "" {
		p.Driver = getEnvOrDefault("ASKLLY_DRIVER", "postgres")
	}
	p.BraveAPIKey = os.Getenv("BRAVE_API_KEY")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf("unsupported storage driver %q", p.Driver)
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("asklly_%s.db", p.Mode))
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN (flag --dsn or env ASKLLY_DSN/POSTGRES_URL)")
	}

	return nil
}
