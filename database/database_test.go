package database

import (
	"path/filepath"
	"testing"

	"github.com/go-kit/log"

	"github.com/yasnieldiaz/panel-agricultura-drones-sub000/migrations"
)

func TestDefaultLocalPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	p := DefaultLocalPath()
	if filepath.Base(p) != LocalFile {
		t.Errorf("DefaultLocalPath() = %q, want a %s file", p, LocalFile)
	}
	if p != DefaultLocalPath() {
		t.Error("DefaultLocalPath() is not stable between calls")
	}

	db, err := Open(log.NewNopLogger(), p, migrations.Agent)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", p, err)
	}
	defer db.Close()
	if _, err := db.Exec("INSERT INTO kv_store (key, value) VALUES ('k', 'v')"); err != nil {
		t.Errorf("agent schema missing: %v", err)
	}
}
