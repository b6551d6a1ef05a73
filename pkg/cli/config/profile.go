package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/csvgate/pkg/domain/types"
	"gopkg.in/yaml.v3"
)

// Profile is a saved set of upload settings
type Profile struct {
	URL          string           `yaml:"url"`
	Users        string           `yaml:"users"`
	Orders       string           `yaml:"orders"`
	Products     string           `yaml:"products"`
	Notify       types.NotifyMode `yaml:"notify"`
	DismissAfter time.Duration    `yaml:"dismiss_after"`
}

// LoadProfileFromFile loads an upload profile from YAML file. Relative file
// paths are resolved against the profile's directory.
func LoadProfileFromFile(path string) (*Profile, error) {
	if path == "" {
		return nil, goerr.New("profile path is required")
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(err, "profile not found",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read profile",
			goerr.V("path", path))
	}

	// Parse YAML
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, goerr.Wrap(err, "failed to parse YAML profile",
			goerr.V("path", path))
	}

	if err := profile.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid profile",
			goerr.V("path", path))
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&profile.Users, &profile.Orders, &profile.Products} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	return &profile, nil
}

// Validate checks the profile values
func (p *Profile) Validate() error {
	if p.Notify != "" && !p.Notify.IsValid() {
		return goerr.New("invalid notify mode", goerr.V("notify", p.Notify))
	}
	if p.DismissAfter < 0 {
		return goerr.New("dismiss_after must not be negative", goerr.V("dismiss_after", p.DismissAfter))
	}
	return nil
}
