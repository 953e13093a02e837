package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/trashvision/internal/taxonomy"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected defaults to load, got error: %v", err)
	}
	if cfg.ConfidenceThreshold != DefaultConfidenceThreshold {
		t.Fatalf("unexpected threshold: %v", cfg.ConfidenceThreshold)
	}
	if cfg.WeakSignalFloor != DefaultWeakSignalFloor {
		t.Fatalf("unexpected floor: %v", cfg.WeakSignalFloor)
	}
	if cfg.Taxonomy["plastic_bottle"] != taxonomy.LabelRecyclable {
		t.Fatal("default taxonomy missing plastic_bottle")
	}
	if cfg.Taxonomy["styrofoam_cup"] != taxonomy.LabelNonRecyclable {
		t.Fatal("default taxonomy missing styrofoam_cup")
	}
	if cfg.Recommendations.Generic == "" || cfg.Recommendations.Fallback == "" {
		t.Fatal("default recommendation templates missing")
	}
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	cases := []struct {
		name      string
		threshold string
		floor     string
	}{
		{"threshold above one", "1.5", ""},
		{"negative floor", "", "-0.1"},
		{"floor above threshold", "0.3", "0.6"},
		{"unparsable threshold", "lots", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.threshold != "" {
				t.Setenv("CONFIDENCE_THRESHOLD", tc.threshold)
			}
			if tc.floor != "" {
				t.Setenv("WEAK_SIGNAL_FLOOR", tc.floor)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}

func TestLoadTablesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	content := []byte(`
taxonomy:
  tetra_pak: recyclable
  foam_peanut: non-recyclable
  orange_peel: non-recyclable
organic_types:
  - orange_peel
recommendations:
  generic: "Nothing detected, try a clearer photo."
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write tables file: %v", err)
	}
	t.Setenv("TABLES_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected load to succeed, got: %v", err)
	}
	if cfg.Taxonomy["tetra_pak"] != taxonomy.LabelRecyclable {
		t.Fatal("yaml taxonomy not applied")
	}
	if _, ok := cfg.Taxonomy["plastic_bottle"]; ok {
		t.Fatal("yaml taxonomy should replace the defaults")
	}
	if _, ok := cfg.Recommendations.OrganicTypes["orange_peel"]; !ok {
		t.Fatal("yaml organic types not applied")
	}
	if cfg.Recommendations.Generic != "Nothing detected, try a clearer photo." {
		t.Fatalf("yaml recommendation override not applied: %q", cfg.Recommendations.Generic)
	}
	if cfg.Recommendations.Fallback == "" {
		t.Fatal("unset templates should keep their defaults")
	}
}

func TestLoadTablesRejectsInvalidLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(path, []byte("taxonomy:\n  thing: sometimes\n"), 0o600); err != nil {
		t.Fatalf("failed to write tables file: %v", err)
	}
	t.Setenv("TABLES_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid label value")
	}
}

func TestLoadFailsOnMissingTablesFile(t *testing.T) {
	t.Setenv("TABLES_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing tables file")
	}
}
