package commodity

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultRegistry(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	gold, ok := r.Get("gc")
	if !ok {
		t.Fatal("expected gold in default registry")
	}
	if gold.PositioningDataset != "CFTC/GC_FO_ALL" || gold.PriceDataset != "CHRIS/CME_GC1" {
		t.Fatalf("unexpected gold datasets %+v", gold)
	}
	if gold.PriceField != "Last" {
		t.Fatalf("expected Last price field, got %q", gold.PriceField)
	}
	want := time.Date(2006, 6, 1, 0, 0, 0, 0, time.UTC)
	if gold.StartDate == nil || !gold.StartDate.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, gold.StartDate)
	}

	list := r.List()
	if len(list) != 3 || list[0].Symbol != "GC" || list[1].Symbol != "HG" || list[2].Symbol != "SI" {
		t.Fatalf("unexpected list order %+v", list)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	body := `commodities:
  - symbol: cl
    name: Crude Oil
    positioningDataset: CFTC/CL_FO_ALL
    priceDataset: CHRIS/CME_CL1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c, ok := r.Get("CL")
	if !ok {
		t.Fatal("expected CL")
	}
	if c.PriceField != "Last" || c.StartDate != nil {
		t.Fatalf("expected defaults applied, got %+v", c)
	}
	if _, ok := r.Get("GC"); ok {
		t.Fatal("file registry should not include embedded entries")
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":        "commodities: []",
		"no symbol":    "commodities:\n  - positioningDataset: A/B\n    priceDataset: C/D\n",
		"no datasets":  "commodities:\n  - symbol: GC\n",
		"duplicate":    "commodities:\n  - {symbol: GC, positioningDataset: A/B, priceDataset: C/D}\n  - {symbol: gc, positioningDataset: A/B, priceDataset: C/D}\n",
		"bad start":    "commodities:\n  - {symbol: GC, positioningDataset: A/B, priceDataset: C/D, start: June}\n",
		"invalid yaml": "commodities: [",
	}
	for name, body := range cases {
		if _, err := Parse([]byte(body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
