package main

import "testing"

func TestParseArgsDefaultsToServe(t *testing.T) {
	inv, err := parseArgs(nil)
	if err != nil {
		t.Fatalf("parseArgs returned error: %v", err)
	}

	if inv.command != commandServe {
		t.Fatalf("expected serve command, got %q", inv.command)
	}
	o := inv.overrides
	if o.Port != nil || o.LogLevel != nil || o.DatabaseDriver != nil || o.SeedFile != nil {
		t.Fatalf("expected unset string overrides, got %+v", o)
	}
	if o.RateLimitRPS != nil || o.RateLimitBurst != nil {
		t.Fatalf("expected unset rate limit overrides")
	}
}

func TestParseArgsFlags(t *testing.T) {
	inv, err := parseArgs([]string{
		"--config", "config.yaml",
		"--port", "9000",
		"--database-driver", "sqlite",
		"--sqlite-path", "/tmp/config.db",
		"--rate-limit-rps", "0",
		"serve",
	})
	if err != nil {
		t.Fatalf("parseArgs returned error: %v", err)
	}

	o := inv.overrides
	if o.ConfigFile != "config.yaml" || *o.Port != "9000" {
		t.Fatalf("unexpected overrides %+v", o)
	}
	if *o.DatabaseDriver != "sqlite" || *o.SQLitePath != "/tmp/config.db" {
		t.Fatalf("unexpected database overrides %+v", o)
	}
	if o.RateLimitRPS == nil || *o.RateLimitRPS != 0 {
		t.Fatalf("expected explicit rps 0")
	}
	if o.RateLimitBurst != nil {
		t.Fatalf("expected burst to stay unset")
	}
}

func TestParseArgsSetup(t *testing.T) {
	inv, err := parseArgs([]string{"--database-url", "postgres://localhost/config", "setup", "--drop"})
	if err != nil {
		t.Fatalf("parseArgs returned error: %v", err)
	}

	if inv.command != commandSetup || !inv.drop {
		t.Fatalf("expected setup with drop, got %+v", inv)
	}
	if *inv.overrides.DatabaseURL != "postgres://localhost/config" {
		t.Fatalf("unexpected database url override")
	}
}

func TestParseArgsRejectsUnknownCommand(t *testing.T) {
	if _, err := parseArgs([]string{"migrate"}); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}
