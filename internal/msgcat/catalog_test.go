package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedCatalogRenders(t *testing.T) {
	c := MustDefault()
	got, err := c.Render("end.checkmate", map[string]any{"Loser": "white", "Winner": "black"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(got, "white is checkmated") || !strings.Contains(got, "black wins") {
		t.Fatalf("unexpected text %q", got)
	}
	if got := c.Text("end.draw", map[string]any{"Detail": ""}); got != "Draw." {
		t.Fatalf("draw text = %q", got)
	}
}

func TestMissingKeysAreErrors(t *testing.T) {
	c := MustDefault()
	if _, err := c.Render("no.such.key", nil); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if _, err := c.Render("end.checkmate", map[string]any{"Loser": "white"}); err == nil {
		t.Fatalf("expected error for missing template field")
	}
	if got := c.Text("no.such.key", nil); got != "no.such.key" {
		t.Fatalf("Text fallback = %q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("end:\n  closed: \"peer gone\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("end.closed", nil); got != "peer gone" {
		t.Fatalf("override not applied: %q", got)
	}
	if !c.Has("end.checkmate") {
		t.Fatalf("embedded keys must survive an override")
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("end:\n  closed: \"again\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("a:\n  b: 3\n")); err == nil {
		t.Fatalf("expected error for numeric leaf")
	}
}
