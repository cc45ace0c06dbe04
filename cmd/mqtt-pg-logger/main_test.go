package main

import (
	"path/filepath"
	"testing"
)

func TestRunFailsOnMissingConfigFile(t *testing.T) {
	err := run(filepath.Join(t.TempDir(), "missing.yaml"), false, "", "", false, false)
	if err == nil {
		t.Fatal("run() error = nil, want error for missing config file")
	}
}
