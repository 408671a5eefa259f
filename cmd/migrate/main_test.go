package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		t.Fatalf("unexpected error loading embedded migrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "snapshots" {
		t.Fatalf("unexpected first migration: %d %s", migrations[0].Version, migrations[0].Name)
	}
	if migrations[1].Version != 2 || migrations[1].Name != "alerts" {
		t.Fatalf("unexpected second migration: %d %s", migrations[1].Version, migrations[1].Name)
	}
	for _, m := range migrations {
		if m.UpSQL == "" || m.DownSQL == "" {
			t.Fatalf("expected non-empty up/down sql for version %d", m.Version)
		}
	}
	if !strings.Contains(migrations[0].UpSQL, "equity_points") {
		t.Fatal("expected snapshots migration to create equity_points")
	}
	if !strings.Contains(migrations[1].UpSQL, "risk_scores") || !strings.Contains(migrations[1].UpSQL, "conversations") {
		t.Fatal("expected alerts migration to create risk_scores and conversations")
	}
}

func TestLoadMigrationsRejectsMissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0001_init.up.sql": {Data: []byte("CREATE TABLE a (id INT);")},
	}
	if _, err := loadMigrations(fsys); err == nil {
		t.Fatal("expected error for a migration without a down file")
	}
}

func TestLoadMigrationsRejectsBadName(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/init.up.sql": {Data: []byte("CREATE TABLE a (id INT);")},
	}
	if _, err := loadMigrations(fsys); err == nil {
		t.Fatal("expected error for an invalid filename")
	}
}

func TestStatusLines(t *testing.T) {
	migrations := []migration{
		{Version: 1, Name: "snapshots"},
		{Version: 2, Name: "alerts"},
	}
	lines := statusLines(migrations, map[int64]struct{}{1: {}})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "0001_snapshots  applied" || lines[1] != "0002_alerts  pending" {
		t.Fatalf("unexpected status lines: %v", lines)
	}
	if lines[2] != "1 of 2 migrations pending" {
		t.Fatalf("unexpected summary: %s", lines[2])
	}
}

func TestPending(t *testing.T) {
	migrations := []migration{{Version: 1, Name: "snapshots"}, {Version: 2, Name: "alerts"}, {Version: 3, Name: "extra"}}
	got := pending(migrations, map[int64]struct{}{2: {}})
	if len(got) != 2 || got[0].Version != 1 || got[1].Version != 3 {
		t.Fatalf("unexpected pending set: %v", got)
	}
}

func TestRollbackPlan(t *testing.T) {
	migrations := []migration{{Version: 1, Name: "snapshots"}, {Version: 2, Name: "alerts"}}
	applied := map[int64]struct{}{1: {}, 2: {}}

	plan, err := rollbackPlan(migrations, applied, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan) != 1 || plan[0].Version != 2 {
		t.Fatalf("expected newest migration first, got %v", plan)
	}

	plan, err = rollbackPlan(migrations, applied, 5)
	if err != nil || len(plan) != 2 || plan[1].Version != 1 {
		t.Fatalf("expected both migrations, got %v (%v)", plan, err)
	}

	if _, err := rollbackPlan(migrations, map[int64]struct{}{7: {}}, 1); err == nil {
		t.Fatal("expected error for an applied version without source")
	}
	if _, err := rollbackPlan(migrations, applied, 0); err == nil {
		t.Fatal("expected error for zero steps")
	}
}

func TestStepsArg(t *testing.T) {
	if n, err := stepsArg(nil); err != nil || n != 1 {
		t.Fatalf("expected default of 1, got %d (%v)", n, err)
	}
	if n, err := stepsArg([]string{"3"}); err != nil || n != 3 {
		t.Fatalf("expected 3, got %d (%v)", n, err)
	}
	for _, bad := range []string{"0", "-2", "x"} {
		if _, err := stepsArg([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestCommandsNeedDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"status"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestCommandsReportConnectError(t *testing.T) {
	orig := openDBFunc
	defer func() { openDBFunc = orig }()
	var gotDSN string
	openDBFunc = func(ctx context.Context, dsn string) (database, func(), error) {
		gotDSN = dsn
		return nil, nil, errors.New("connection refused")
	}

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"up", "--database-url", "postgres://localhost/risk"})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "connect to postgres") {
		t.Fatalf("expected connect error, got %v", err)
	}
	if gotDSN != "postgres://localhost/risk" {
		t.Fatalf("expected flag DSN to win, got %q", gotDSN)
	}
}

func TestDownRejectsBadSteps(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"down", "zero", "--database-url", "postgres://x"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected argument error")
	}
}
