package catalogs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"skyshade.ai/internal/sim/augments"
)

func TestShippedAugmentsMatchBuiltin(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Augments.Source == BuiltinSource || len(c.Augments.Digest) != 64 {
		t.Fatalf("expected file-backed catalog, got %+v", c.Augments)
	}
	defs := augments.DefaultDefinitions()
	if c.Augments.Catalog.Len() != len(defs) {
		t.Fatalf("size %d, want %d", c.Augments.Catalog.Len(), len(defs))
	}
	for i, want := range defs {
		got := c.Augments.Catalog.All()[i]
		if got.ID != want.ID || got.Name != want.Name || got.Tier != want.Tier || got.Weight != want.Weight ||
			got.Effect != want.Effect || got.Unlock != want.Unlock {
			t.Fatalf("entry %d: got %+v want %+v", i, *got, want)
		}
	}
	quadra, _ := c.Augments.Catalog.ByID("quadra_jump")
	if quadra.Prerequisite() == nil || quadra.Prerequisite().ID != "triple_jump" {
		t.Fatalf("prerequisite not resolved")
	}
}

func TestMissingFileFallsBackToBuiltin(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Augments.Source != BuiltinSource || c.Augments.Catalog.Len() != 13 {
		t.Fatalf("fallback: %+v", c.Augments)
	}
	if c.Augments.Digest != Builtin().Augments.Digest {
		t.Fatalf("builtin digest is not stable")
	}
}

func TestBadCatalogFiles(t *testing.T) {
	cases := map[string]string{
		"syntax": `[{"id":`,
		"tier":   `[{"id":"a","tier":"mythic","weight":1,"effect":{"kind":"speed"}}]`,
		"prereq": `[{"id":"a","tier":"gold","weight":1,"effect":{"kind":"speed"},"unlock":{"kind":"prerequisite","requires":"zzz"}}]`,
	}
	for name, body := range cases {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "augments.json"), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(dir)
		if err == nil || !strings.Contains(err.Error(), "augments.json") {
			t.Fatalf("%s: err = %v", name, err)
		}
	}
}
