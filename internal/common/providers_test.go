package common

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProvidersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write providers file: %v", err)
	}
	return path
}

func TestLoadProviderConfig(t *testing.T) {
	path := writeProvidersFile(t, `
providers:
  - suffix: "@PayTM"
    name: Paytm
  - suffix: okaxis
    name: Google Pay (Axis)
`)

	providers, err := LoadProviderConfig(path)
	if err != nil {
		t.Fatalf("LoadProviderConfig failed: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("Expected 2 providers, got %d", len(providers))
	}
	if providers[0].Suffix != "paytm" || providers[1].Suffix != "okaxis" {
		t.Errorf("Unexpected suffixes: %+v", providers)
	}
}

func TestLoadProviderConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing suffix": "providers:\n  - name: Nameless\n",
		"bad suffix":     "providers:\n  - suffix: \"pay#tm\"\n",
		"bad yaml":       "providers: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadProviderConfig(writeProvidersFile(t, content)); err == nil {
				t.Errorf("Expected error for %s", name)
			}
		})
	}

	if _, err := LoadProviderConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadSuffixTable(t *testing.T) {
	table, err := LoadSuffixTable("", "payease")
	if err != nil {
		t.Fatalf("LoadSuffixTable failed: %v", err)
	}
	for _, d := range []string{"payease", "paytm", "phonepe", "gpay", "upi"} {
		if !table.Known(d) {
			t.Errorf("Expected built-in domain %s", d)
		}
	}

	path := writeProvidersFile(t, "providers:\n  - suffix: okaxis\n")
	table, err = LoadSuffixTable(path, "payease")
	if err != nil {
		t.Fatalf("LoadSuffixTable from file failed: %v", err)
	}
	if !table.Known("okaxis") || !table.Known("payease") || table.Known("paytm") {
		t.Errorf("Unexpected table domains %v", table.Domains())
	}
}
