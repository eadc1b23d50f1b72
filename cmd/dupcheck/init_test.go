package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/dupcheck/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	flag := cmd.Flags().Lookup("output")
	if flag == nil {
		t.Fatal("expected output flag")
	}
	if flag.Shorthand != "o" || flag.DefValue != config.DefaultConfigFile {
		t.Errorf("unexpected output flag: -%s default %q", flag.Shorthand, flag.DefValue)
	}

	flag = cmd.Flags().Lookup("force")
	if flag == nil {
		t.Fatal("expected force flag")
	}
	if flag.Shorthand != "f" || flag.DefValue != "false" {
		t.Errorf("unexpected force flag: -%s default %q", flag.Shorthand, flag.DefValue)
	}
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates a loadable config file", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "nested", ".dupcheck")

		cmd := NewInitCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"-o", outputPath})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), outputPath) {
			t.Errorf("expected output to mention %s, got %q", outputPath, out.String())
		}

		cf, err := config.LoadConfigFile(outputPath)
		if err != nil {
			t.Fatalf("generated file does not load: %v", err)
		}

		cfg := config.NewConfig()
		cf.Apply(cfg)
		if err := cfg.Validate(); err != nil {
			t.Errorf("generated file is not valid: %v", err)
		}
		if cfg.Addr != config.DefaultAddr || cfg.Timeout != config.DefaultTimeout {
			t.Errorf("template should document the defaults, got addr %q timeout %v", cfg.Addr, cfg.Timeout)
		}
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".dupcheck")
		if err := os.WriteFile(outputPath, []byte("existing"), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		cmd := NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"-o", outputPath})
		if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected already exists error, got %v", err)
		}

		content, _ := os.ReadFile(outputPath)
		if string(content) != "existing" {
			t.Error("existing file was modified")
		}
	})

	t.Run("overwrites with force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".dupcheck")
		if err := os.WriteFile(outputPath, []byte("existing"), 0o600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		cmd := NewInitCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"-o", outputPath, "-f"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, _ := os.ReadFile(outputPath)
		if !strings.Contains(string(content), "workflow:") {
			t.Error("expected template content")
		}
	})
}
