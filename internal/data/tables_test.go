package data

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadBundledTables(t *testing.T) {
	tables, err := LoadAll(filepath.Join("..", "..", "data", "yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tables.Regions.Count() == 0 || tables.ZonePoints.Count() == 0 {
		t.Fatalf("empty tables: %+v", tables)
	}
	zp := tables.ZonePoints.Get(2)
	if zp == nil || zp.Script == "" || zp.Confirm == "" {
		t.Fatalf("zone point 2 = %+v", zp)
	}
	list := tables.Merchants.Get("camelot_weapons")
	if list == nil {
		t.Fatalf("merchant list missing")
	}
	it := list.Item(PackSlot(1, 0))
	if it == nil || it.TemplateID != "minor_healing_potion" || it.Price != 45 {
		t.Fatalf("page 1 slot 0 = %+v", it)
	}
	if tables.Items.Get(it.TemplateID) == nil {
		t.Fatalf("merchant item has no template")
	}
	name, ok := tables.Regions.Get(1).MerchantList(2001)
	if !ok || name != "camelot_weapons" {
		t.Fatalf("merchant binding = %q, %v", name, ok)
	}
}

func TestZonePointDuplicate(t *testing.T) {
	p := writeFile(t, t.TempDir(), "zp.yaml", "- id: 1\n- id: 1\n")
	if _, err := LoadZonePointTable(p); err == nil {
		t.Fatalf("duplicate zone point accepted")
	}
}

func TestMerchantSlotRange(t *testing.T) {
	body := "merchants:\n  - id: x\n    items:\n      - { page: 0, slot: 30, template: a }\n"
	p := writeFile(t, t.TempDir(), "m.yaml", body)
	if _, err := LoadMerchantTable(p); err == nil {
		t.Fatalf("slot 30 accepted")
	}
}

func TestItemDefaults(t *testing.T) {
	p := writeFile(t, t.TempDir(), "items.yaml", "- id: rock\n  name: Rock\n")
	tbl, err := LoadItemTable(p)
	if err != nil {
		t.Fatal(err)
	}
	if got := tbl.Get("rock").MaxCount; got != 1 {
		t.Fatalf("max count = %d", got)
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := LoadAll(t.TempDir()); err == nil {
		t.Fatalf("missing files accepted")
	}
}
