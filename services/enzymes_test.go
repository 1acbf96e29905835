package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"hdi-prep/storage"
)

const drugbankDoc = `<?xml version="1.0" encoding="UTF-8"?>
<drugbank xmlns="http://www.drugbank.ca" version="5.1">
<drug type="biotech">
  <drugbank-id primary="true">DB00001</drugbank-id>
  <drugbank-id>BTD00024</drugbank-id>
  <name>Lepirudin</name>
  <enzymes>
    <enzyme>
      <name>Prothrombin</name>
      <organism ncbi-taxonomy-id="9606">Humans</organism>
      <actions><action>inhibitor</action></actions>
      <polypeptide id="P00734"><gene-name>F2</gene-name></polypeptide>
    </enzyme>
  </enzymes>
</drug>
<drug type="small molecule">
  <drugbank-id primary="true">DB00002</drugbank-id>
  <name>Orphan</name>
  <enzymes><enzyme><name>Unknown chain</name></enzyme></enzymes>
</drug>
</drugbank>
`

func newEnzymeService(t *testing.T, store *storage.Store) (*EnzymeService, *bytes.Buffer) {
	t.Helper()
	cfg := testConfig(t)
	var out bytes.Buffer
	svc := NewEnzymeService(cfg, store, zaptest.NewLogger(t), NewMetrics())
	svc.Out = &out
	return svc, &out
}

func TestEnzymeServiceExport(t *testing.T) {
	svc, out := newEnzymeService(t, nil)
	if err := os.WriteFile(svc.Config.DrugBankXMLPath, []byte(drugbankDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Rows != 1 || stats.SkippedEnzymes != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	got := readCSV(t, svc.Config.EnzymeOutputPath)
	want := []string{
		"drugbank_id,drug_name,chembl_id,enzyme_name,uniprot_id,gene_name,action,organism,tax_id,source",
		"DB00001,Lepirudin,,Prothrombin,P00734,F2,inhibitor,Humans,9606,drugbank",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %v", len(want), got)
	}
	for i := range want {
		if strings.Join(got[i], ",") != want[i] {
			t.Errorf("record %d: got %v", i, got[i])
		}
	}
	raw, err := os.ReadFile(svc.Config.EnzymeOutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), want[0]+"\r\n") || !strings.HasSuffix(string(raw), "9606,drugbank\r\n") {
		t.Fatalf("expected CRLF line endings, got %q", raw)
	}
	if !strings.Contains(out.String(), "Exported: "+svc.Config.EnzymeOutputPath) {
		t.Fatalf("missing success line, got %q", out.String())
	}
	if v := testutil.ToFloat64(svc.Metrics.Rows.WithLabelValues("enzymes", "written")); v != 1 {
		t.Fatalf("rows counter = %v", v)
	}
}

func TestEnzymeServiceReadsGzip(t *testing.T) {
	svc, _ := newEnzymeService(t, nil)
	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	gz.Write([]byte(drugbankDoc))
	gz.Close()
	svc.Config.DrugBankXMLPath = filepath.Join(t.TempDir(), "full database.xml.gz")
	if err := os.WriteFile(svc.Config.DrugBankXMLPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := readCSV(t, svc.Config.EnzymeOutputPath); len(got) != 2 {
		t.Fatalf("expected header and one row, got %v", got)
	}
}

func TestEnzymeServiceIsAllOrNothing(t *testing.T) {
	svc, out := newEnzymeService(t, nil)
	truncated := drugbankDoc[:strings.Index(drugbankDoc, "<name>Orphan")]
	if err := os.WriteFile(svc.Config.DrugBankXMLPath, []byte(truncated), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(svc.Config.EnzymeOutputPath, []byte("previous\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error for truncated document")
	}
	if data, _ := os.ReadFile(svc.Config.EnzymeOutputPath); string(data) != "previous\n" {
		t.Fatalf("output replaced after failed parse: %q", data)
	}
	if _, err := os.Stat(svc.Config.EnzymeOutputPath + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temporary output left behind")
	}
	if out.Len() != 0 {
		t.Fatalf("success line printed on failure: %q", out.String())
	}
}

func TestEnzymeServiceMissingInput(t *testing.T) {
	svc, _ := newEnzymeService(t, nil)
	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error for missing document")
	}
}

func TestEnzymeServiceMirrorsRows(t *testing.T) {
	store, err := storage.OpenStore("sqlite", filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatal(err)
	}
	svc, _ := newEnzymeService(t, store)
	if err := os.WriteFile(svc.Config.DrugBankXMLPath, []byte(drugbankDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	n, err := store.CountRelationships(context.Background(), "drugbank")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 mirrored row after rerun, got %d", n)
	}
}
