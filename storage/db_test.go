package storage

import (
	"context"
	"path/filepath"
	"testing"

	"hdi-prep/chem"
	"hdi-prep/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore("sqlite", filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenStore("mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestStoreRelationships(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rows := []models.EnzymeRelationship{
		{DrugBankID: "DB00001", DrugName: "Lepirudin", EnzymeName: "Prothrombin", Action: "inhibitor", Source: "drugbank"},
		{DrugBankID: "DB00002", DrugName: "Cetuximab", EnzymeName: "CYP3A4", Action: "unknown", Source: "drugbank"},
	}
	if err := s.SaveRelationships(ctx, rows); err != nil {
		t.Fatalf("save: %v", err)
	}
	if n, _ := s.CountRelationships(ctx, "drugbank"); n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
	if err := s.ResetRelationships(ctx, "drugbank"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := s.CountRelationships(ctx, "drugbank"); n != 0 {
		t.Fatalf("expected empty table after reset, got %d", n)
	}
}

func TestStoreFingerprints(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	rec := models.NewFingerprint(models.SourceNP, "NP0001")
	rec.SetBits(chem.Fingerprint{0, 1, 1, 0})
	rec.InChI = "InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3"
	if err := s.SaveFingerprints(ctx, []*models.Fingerprint{rec}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.UpdateInChIKeys(ctx, models.SourceNP, map[string]string{"NP0001": "LFQSCWFLJHTTHZ-UHFFFAOYSA-N"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	var got models.Fingerprint
	if err := s.db.WithContext(ctx).Where("source = ? AND external_id = ?", models.SourceNP, "NP0001").First(&got).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.InChIKey != "LFQSCWFLJHTTHZ-UHFFFAOYSA-N" || got.NumBits != 4 {
		t.Fatalf("unexpected record %+v", got)
	}
	bits, err := chem.ParseFingerprint(string(got.Vector))
	if err != nil {
		t.Fatalf("vector: %v", err)
	}
	if bits.OnBits() != 2 {
		t.Fatalf("expected 2 on bits, got %v", bits)
	}
	if n, _ := s.CountFingerprints(ctx, models.SourceChEMBL); n != 0 {
		t.Fatalf("unexpected chembl rows: %d", n)
	}
}
