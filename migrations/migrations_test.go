package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEveryUpHasDown(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no migrations embedded")
	}

	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range names {
		if base, ok := strings.CutSuffix(n, ".up.sql"); ok && !seen[base+".down.sql"] {
			t.Errorf("%s has no down migration", n)
		}
	}
}

func TestSchemaHasStoreTables(t *testing.T) {
	var all strings.Builder
	names, _ := fs.Glob(FS, "*.up.sql")
	for _, n := range names {
		b, err := fs.ReadFile(FS, n)
		if err != nil {
			t.Fatalf("read %s: %v", n, err)
		}
		all.Write(b)
	}
	for _, table := range []string{"graphs", "data_sources", "graph_entities", "graph_links", "app_locks"} {
		if !strings.Contains(all.String(), "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("missing table %s", table)
		}
	}
}
