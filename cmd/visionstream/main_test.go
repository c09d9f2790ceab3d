package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigOutputMetadata(t *testing.T) {
	dir := t.TempDir()
	eventsFile := filepath.Join(dir, "events.yaml")
	if err := os.WriteFile(eventsFile, []byte("output_metadata: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	metadataFile := filepath.Join(dir, "metadata.yaml")
	if err := os.WriteFile(metadataFile, []byte("output_metadata: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts options
		want bool
	}{
		{name: "defaults", opts: options{}, want: true},
		{name: "file true, flag unset", opts: options{configPath: metadataFile}, want: true},
		{name: "file false, flag unset", opts: options{configPath: eventsFile}, want: false},
		{name: "flag false wins", opts: options{configPath: metadataFile, metadataSet: true}, want: false},
		{name: "flag true wins", opts: options{configPath: eventsFile, metadata: true, metadataSet: true}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig(tt.opts)
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if cfg.OutputMetadata != tt.want {
				t.Errorf("OutputMetadata = %v, want %v", cfg.OutputMetadata, tt.want)
			}
		})
	}
}
