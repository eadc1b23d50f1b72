package main

import (
	"strings"
	"testing"

	"github.com/nao1215/dupcheck/internal/config"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "dupcheck" {
			t.Errorf("expected use 'dupcheck', got %q", cmd.Use)
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has global flags", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name      string
			shorthand string
			def       string
		}{
			{name: "verbose", shorthand: "v", def: "false"},
			{name: "config", shorthand: "c", def: ""},
			{name: "env-file", shorthand: "", def: ".env"},
		}
		for _, tt := range tests {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected %s flag", tt.name)
				continue
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("%s: expected shorthand %q, got %q", tt.name, tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.def {
				t.Errorf("%s: expected default %q, got %q", tt.name, tt.def, flag.DefValue)
			}
		}
	})

	t.Run("config help names every search location", func(t *testing.T) {
		t.Parallel()

		usage := cmd.PersistentFlags().Lookup("config").Usage
		for _, want := range []string{config.DefaultConfigFile, config.XDGConfigFile} {
			if !strings.Contains(usage, want) {
				t.Errorf("expected %q in config flag help %q", want, usage)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()

		want := map[string]bool{"check": false, "serve": false, "history": false, "init": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}
