package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"upi-pay-simulator-go/internal/resolver"

	"gopkg.in/yaml.v2"
)

type ProviderConfig struct {
	Suffix string `yaml:"suffix"`
	Name   string `yaml:"name"`
}

type ProvidersConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

func LoadProviderConfig(providersFile string) ([]ProviderConfig, error) {
	var providersPath string
	if filepath.IsAbs(providersFile) {
		providersPath = providersFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		providersPath = filepath.Join(wd, providersFile)
	}

	data, err := os.ReadFile(providersPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", providersFile, err)
	}

	var config ProvidersConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", providersFile, err)
	}

	for i, provider := range config.Providers {
		suffix := strings.TrimPrefix(strings.TrimSpace(provider.Suffix), "@")
		if suffix == "" {
			return nil, fmt.Errorf("provider at index %d missing suffix", i)
		}
		if strings.ContainsAny(suffix, "@ #") {
			return nil, fmt.Errorf("provider at index %d has invalid suffix %q", i, provider.Suffix)
		}
		config.Providers[i].Suffix = strings.ToLower(suffix)
	}

	return config.Providers, nil
}

// LoadSuffixTable builds the resolver's suffix table. The built-in handles are
// used when providersFile is empty; the default domain is always included.
func LoadSuffixTable(providersFile, defaultDomain string) (*resolver.SuffixTable, error) {
	if providersFile == "" {
		return resolver.NewSuffixTable(append([]string{defaultDomain}, resolver.DefaultProviderDomains...)...), nil
	}

	providers, err := LoadProviderConfig(providersFile)
	if err != nil {
		return nil, err
	}

	domains := []string{defaultDomain}
	for _, p := range providers {
		domains = append(domains, p.Suffix)
	}
	return resolver.NewSuffixTable(domains...), nil
}
