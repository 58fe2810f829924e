package msgcat

import (
    "os"
    "path/filepath"
    "strings"
    "testing"
)

func TestDefaultCatalogRenders(t *testing.T) {
    c := MustDefault()
    out, err := c.Render("checkers.no_session", map[string]any{"prefix": "!"})
    if err != nil { t.Fatalf("Render: %v", err) }
    if !strings.Contains(out, "`!체커 시작`") { t.Fatalf("unexpected text: %q", out) }

    if _, err := c.Render("checkers.no_session", map[string]any{}); err == nil {
        t.Fatalf("missing key should fail")
    }
    if _, err := c.Render("nope.nothing", nil); err == nil {
        t.Fatalf("unknown key should fail")
    }
    if got := c.Text("nope.nothing", nil, "fallback"); got != "fallback" {
        t.Fatalf("Text fallback = %q", got)
    }
    if !c.Has("pvp.finish.resign") { t.Fatalf("nested keys should be flattened") }
}

func TestOverrideDir(t *testing.T) {
    dir := t.TempDir()
    writeFile(t, dir, "a.yaml", "checkers:\n  no_moves: \"수가 없어요\"\n")
    writeFile(t, dir, "notes.txt", "ignored")

    c, err := New(dir)
    if err != nil { t.Fatalf("New: %v", err) }
    if got := c.Text("checkers.no_moves", nil, ""); got != "수가 없어요" {
        t.Fatalf("override not applied: %q", got)
    }
    if got := c.Text("checkers.undo", nil, ""); got == "" {
        t.Fatalf("defaults should remain")
    }
}

func TestOverrideDuplicateKeys(t *testing.T) {
    dir := t.TempDir()
    writeFile(t, dir, "a.yaml", "errors:\n  generic: a\n")
    writeFile(t, dir, "b.yml", "errors:\n  generic: b\n")
    if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate override key") {
        t.Fatalf("expected duplicate key error, got %v", err)
    }
}

func TestRejectsNonStringLeaves(t *testing.T) {
    dir := t.TempDir()
    writeFile(t, dir, "a.yaml", "errors:\n  generic: 3\n")
    if _, err := New(dir); err == nil {
        t.Fatalf("numeric leaf should be rejected")
    }
}

func writeFile(t *testing.T, dir, name, body string) {
    t.Helper()
    if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
        t.Fatalf("write %s: %v", name, err)
    }
}
