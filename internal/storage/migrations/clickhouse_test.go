package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- leading comment
CREATE TABLE a (x String) ENGINE = MergeTree() ORDER BY x;

-- another comment
CREATE TABLE b (y String) ENGINE = MergeTree() ORDER BY y;
`
	stmts := splitStatements(input)
	if len(stmts) != 2 {
		t.Fatalf("statements = %d, want 2", len(stmts))
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE a") || !strings.HasPrefix(stmts[1], "CREATE TABLE b") {
		t.Errorf("unexpected split: %q", stmts)
	}
}

func TestCheckSplitSafe(t *testing.T) {
	if err := checkSplitSafe(`SELECT 'a;b'`); err == nil {
		t.Error("semicolon inside string literal not rejected")
	}
	if err := checkSplitSafe(`SELECT 'it''s fine'; SELECT 2;`); err != nil {
		t.Errorf("escaped quote misread: %v", err)
	}
}

func TestSQLFiles_EmbeddedAndOrdered(t *testing.T) {
	cases := []struct {
		dir  string
		fsys fs.FS
	}{
		{"postgres", postgresFS},
		{"clickhouse", clickhouseFS},
	}

	for _, tc := range cases {
		files, err := sqlFiles(tc.fsys, tc.dir)
		if err != nil {
			t.Fatalf("sqlFiles(%s): %v", tc.dir, err)
		}
		if len(files) == 0 {
			t.Errorf("no embedded migrations under %s", tc.dir)
		}
		for i := 1; i < len(files); i++ {
			if files[i-1] >= files[i] {
				t.Errorf("%s migrations not in lexical order: %v", tc.dir, files)
			}
		}
	}
}
