package schema

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/othala/internal/apperr"
)

func modernCatalog(markers ...string) Catalog {
	cols := ColumnSet{"Z_PK": {}, "ZTITLE1": {}, "ZFOLDER": {}}
	for _, m := range markers {
		cols[m] = struct{}{}
	}
	return Catalog{
		"ZICCLOUDSYNCINGOBJECT": cols,
		"ZICNOTEDATA":           ColumnSet{"Z_PK": {}, "ZNOTE": {}, "ZDATA": {}},
	}
}

func legacyCatalog() Catalog {
	return Catalog{
		"ZNOTE":     ColumnSet{"Z_PK": {}, "ZTITLE": {}, "ZBODY": {}, "ZSTORE": {}},
		"ZNOTEBODY": ColumnSet{"Z_PK": {}, "ZCONTENT": {}},
		"ZSTORE":    ColumnSet{"Z_PK": {}, "ZNAME": {}, "ZACCOUNT": {}},
	}
}

func TestDetect_NewestMarkerWins(t *testing.T) {
	// A v18 store still carries every older marker column.
	cat := modernCatalog(
		"ZUNAPPLIEDENCRYPTEDRECORDDATA", "ZGENERATION", "ZACCOUNT6",
		"ZACCOUNT5", "ZLASTOPENEDDATE", "ZACCOUNT4", "ZSERVERRECORDDATA",
	)
	p, err := Detect(cat)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if p.Version != 18 || p.Label != "v18" {
		t.Errorf("profile = %s (%d), want v18 (18)", p.Label, p.Version)
	}
	if p.Columns.Account != "ZACCOUNT7" || p.Columns.Creation != "ZCREATIONDATE3" {
		t.Errorf("columns = %+v", p.Columns)
	}
	if p.Legacy {
		t.Error("v18 profile must not be legacy")
	}
}

func TestDetect_OldAndNewMarkers(t *testing.T) {
	// Old marker plus the newest one: newest-first precedence must hold.
	p, err := Detect(modernCatalog("ZSERVERRECORDDATA", "ZUNAPPLIEDENCRYPTEDRECORDDATA"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if p.Version != 18 {
		t.Errorf("version = %d, want 18", p.Version)
	}
}

func TestDetect_SingleOldMarker(t *testing.T) {
	p, err := Detect(modernCatalog("ZSERVERRECORDDATA"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if p.Version != 12 {
		t.Errorf("version = %d, want 12", p.Version)
	}
	if p.Columns.Account != "ZACCOUNT2" || p.Columns.Creation != "ZCREATIONDATE1" {
		t.Errorf("columns = %+v", p.Columns)
	}
}

func TestDetect_TableProbe(t *testing.T) {
	cat := modernCatalog()
	cat["Z_11NOTES"] = ColumnSet{"Z_11NOTES": {}}
	p, err := Detect(cat)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if p.Version != 11 {
		t.Errorf("version = %d, want 11", p.Version)
	}
}

func TestDetect_GenerationFlag(t *testing.T) {
	p, err := Detect(modernCatalog("ZGENERATION"))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !p.UsesGeneration {
		t.Error("v17 profile should set UsesGeneration")
	}
}

func TestDetect_LegacyFallback(t *testing.T) {
	p, err := Detect(legacyCatalog())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !p.Legacy || p.Label != "legacy" {
		t.Errorf("profile = %+v, want legacy", p)
	}
	if p.Tables.Notes != "ZNOTE" || p.Tables.Bodies != "ZNOTEBODY" {
		t.Errorf("tables = %+v", p.Tables)
	}
	// Every probe must have been evaluated and missed.
	if len(p.Trail) != len(probes) {
		t.Errorf("trail length = %d, want %d", len(p.Trail), len(probes))
	}
	for _, r := range p.Trail {
		if r.Matched {
			t.Errorf("probe %s matched on a legacy catalog", r.Label)
		}
	}
}

func TestDetect_Unrecognized(t *testing.T) {
	_, err := Detect(Catalog{"SOMETHING_ELSE": ColumnSet{"X": {}}})
	if !errors.Is(err, apperr.ErrUnrecognizedSchema) {
		t.Fatalf("err = %v, want ErrUnrecognizedSchema", err)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	cat := modernCatalog("ZACCOUNT5", "ZSERVERRECORDDATA")
	first, err := Detect(cat)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Detect(cat)
		if err != nil {
			t.Fatalf("Detect run %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced a different profile", i)
		}
	}
}
