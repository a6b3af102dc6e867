package migrate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitStatementsRespectsStrings(t *testing.T) {
	script := `insert into t(v) values ('a;b'); create table x(id int);`
	stmts := splitStatements(script)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != `insert into t(v) values ('a;b');` {
		t.Fatalf("semicolon inside a string must not split: %q", stmts[0])
	}
}

func TestSplitStatementsKeepsTrailingStatement(t *testing.T) {
	stmts := splitStatements(`select 1`)
	if len(stmts) != 1 || stmts[0] != "select 1" {
		t.Fatalf("unexpected split: %q", stmts)
	}
}

func TestListSQLOrdersAndFilters(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_roles.up.sql", "001_users.up.sql", "001_users.down.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("select 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	names, err := listSQL(dir, ".up.sql")
	if err != nil {
		t.Fatalf("listSQL: %v", err)
	}
	if len(names) != 2 || names[0] != "001_users.up.sql" || names[1] != "002_roles.up.sql" {
		t.Fatalf("unexpected listing: %v", names)
	}
}

func TestListSQLMissingDirIsEmpty(t *testing.T) {
	names, err := listSQL(filepath.Join(t.TempDir(), "nope"), ".sql")
	if err != nil || names != nil {
		t.Fatalf("missing dir should be a clean empty listing, got %v/%v", names, err)
	}
}
