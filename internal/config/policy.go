package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ProviderPolicy overrides retry and rate behavior for one provider. Fields
// left zero fall back to the compiled-in defaults, so a policy file only
// needs to name what it changes.
type ProviderPolicy struct {
	MaxAttempts      int     `yaml:"max_attempts"`
	TimeoutSecs      int     `yaml:"timeout_secs"`
	TimeoutGrowth    float64 `yaml:"timeout_growth"`
	BackoffSecs      int     `yaml:"backoff_secs"`
	RateLimit        int     `yaml:"rate_limit"`
	RateWindowSecs   int     `yaml:"rate_window_secs"`
	RateHeadroom     int     `yaml:"rate_headroom"`
	SafeRate         float64 `yaml:"safe_rate"`
	InsecureFallback *bool   `yaml:"insecure_fallback,omitempty"`
}

// PolicyFile is an optional per-provider policy overlay loaded from YAML.
type PolicyFile struct {
	Providers map[string]ProviderPolicy `yaml:"providers"`
}

// LoadPolicy reads a provider policy file.
func LoadPolicy(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read policy %s", path)
	}
	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrap(err, "config: parse policy")
	}
	return &pf, nil
}

// For returns the policy for a provider name; the zero policy when absent.
func (p *PolicyFile) For(provider string) ProviderPolicy {
	if p == nil {
		return ProviderPolicy{}
	}
	return p.Providers[provider]
}
