package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsPaired(t *testing.T) {
	for _, dir := range []string{"sql/mysql", "sql/postgres"} {
		entries, err := fs.ReadDir(files, dir)
		if err != nil {
			t.Fatalf("%s: %v", dir, err)
		}
		ups, downs := 0, 0
		for _, e := range entries {
			switch {
			case strings.HasSuffix(e.Name(), ".up.sql"):
				ups++
			case strings.HasSuffix(e.Name(), ".down.sql"):
				downs++
			}
		}
		if ups == 0 || ups != downs {
			t.Fatalf("%s: ups=%d downs=%d", dir, ups, downs)
		}
		raw, _ := fs.ReadFile(files, dir+"/000001_init.up.sql")
		for _, table := range []string{"users", "sessions", "educational_entries"} {
			if !strings.Contains(string(raw), "CREATE TABLE IF NOT EXISTS "+table) {
				t.Fatalf("%s: missing table %s", dir, table)
			}
		}
		raw, _ = fs.ReadFile(files, dir+"/000002_subscribers.up.sql")
		if !strings.Contains(string(raw), "CREATE TABLE IF NOT EXISTS subscribers") {
			t.Fatalf("%s: missing subscribers table", dir)
		}
	}
}

func TestUpRejectsNilDB(t *testing.T) {
	if err := Up(nil, "mysql"); err == nil {
		t.Fatal("nil db accepted")
	}
}
