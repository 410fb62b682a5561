package db

import (
	"io/fs"
	"strings"
	"testing"
)

func TestRunMigrations_InvalidDirection(t *testing.T) {
	err := RunMigrations(nil, "sideways")
	if err == nil || !strings.Contains(err.Error(), "invalid migration direction") {
		t.Fatalf("RunMigrations(sideways) error = %v, want invalid direction", err)
	}
}

func TestMigrations_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}
	if len(ups) == 0 {
		t.Fatal("no migrations embedded")
	}
	for n := range ups {
		if !downs[n] {
			t.Errorf("migration %s has no down file", n)
		}
	}
	for n := range downs {
		if !ups[n] {
			t.Errorf("down migration %s has no up file", n)
		}
	}
}

func TestMigrations_CredentialConstraints(t *testing.T) {
	b, err := fs.ReadFile(migrationsFS, "migrations/000001_credentials.up.sql")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	sql := string(b)
	for _, want := range []string{
		"email TEXT NOT NULL UNIQUE",
		"verification_challenge_key_hash TEXT NOT NULL UNIQUE",
		"WHERE password_reset_key_hash <> ''",
		"GENERATED ALWAYS AS IDENTITY",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("credentials migration missing %q", want)
		}
	}
}
