package config

import "testing"

func TestPostgresDSNPrefersURL(t *testing.T) {
	p := PostgresConfig{
		URL:  "postgres://u:p@db:5432/app?sslmode=require",
		Host: "ignored",
	}
	if got := p.DSN(); got != "postgres://u:p@db:5432/app?sslmode=require" {
		t.Fatalf("dsn = %q", got)
	}
}

func TestPostgresDSNDefaults(t *testing.T) {
	p := PostgresConfig{Host: "localhost", User: "app", Password: "pw", DBName: "appdb"}
	want := "postgres://app:pw@localhost:5432/appdb?sslmode=disable"
	if got := p.DSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}

func TestPostgresFromEnvDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app?sslmode=disable")
	p := PostgresFromEnv()
	if p.URL != "postgres://u:p@db:5432/app?sslmode=disable" {
		t.Fatalf("url = %q", p.URL)
	}
	if got := p.DSN(); got != p.URL {
		t.Fatalf("dsn = %q, want the url verbatim", got)
	}
}

func TestPostgresFromEnvIndividualVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_HOST", "pg.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DB", "appdb")
	t.Setenv("POSTGRES_SSLMODE", "")

	want := "postgres://app:pw@pg.internal:5433/appdb?sslmode=disable"
	if got := PostgresFromEnv().DSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}
