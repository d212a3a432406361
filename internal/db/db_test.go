package db

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDSNDefaults(t *testing.T) {
	dsn := DSN(Config{Workspace: "/ws"})
	file, rawQuery, ok := strings.Cut(dsn, "?")
	if !ok {
		t.Fatalf("dsn has no query: %s", dsn)
	}
	if file != "file:"+filepath.Join("/ws", ".flowmetric", "flowmetric.db") {
		t.Fatalf("unexpected file part %q", file)
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	if q.Get("cache") != "shared" {
		t.Fatalf("expected shared cache, got %q", q.Get("cache"))
	}
	pragmas := strings.Join(q["_pragma"], ",")
	if !strings.Contains(pragmas, "foreign_keys(1)") || !strings.Contains(pragmas, "busy_timeout(5000)") {
		t.Fatalf("unexpected pragmas %q", pragmas)
	}
}

func TestDSNBusyTimeoutAndPathOverride(t *testing.T) {
	dsn := DSN(Config{Workspace: "/ignored", Path: "/data/fm.db", BusyTimeout: 250 * time.Millisecond})
	if !strings.HasPrefix(dsn, "file:/data/fm.db?") {
		t.Fatalf("path override not used: %s", dsn)
	}
	if !strings.Contains(dsn, url.QueryEscape("busy_timeout(250)")) {
		t.Fatalf("busy timeout not applied: %s", dsn)
	}
}

func TestOpenCreatesDatabaseAndEnforcesForeignKeys(t *testing.T) {
	dir := t.TempDir()
	conn, err := Open(Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if _, err := os.Stat(Path(dir)); err != nil {
		t.Fatalf("expected db file: %v", err)
	}
	var on int
	if err := conn.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if on != 1 {
		t.Fatalf("expected foreign keys on, got %d", on)
	}
}

func TestOpenWithExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "custom.db")
	conn, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected db at explicit path: %v", err)
	}
}
