package services

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hdi-prep/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DrugBankXMLPath:   filepath.Join(dir, "full database.xml"),
		EnzymeOutputPath:  filepath.Join(dir, "drugbank_drug_enzyme_action.csv"),
		CrossRefResource:  "ChEMBL",
		SourceTag:         "drugbank",
		ChEMBLInputPath:   filepath.Join(dir, "chembl.csv"),
		ChEMBLOutputPath:  filepath.Join(dir, "compound_fingerprints_chembl.csv"),
		NPInputPath:       filepath.Join(dir, "np.csv"),
		NPOutputPath:      filepath.Join(dir, "compound_fingerprints_np.csv"),
		NPRepairedPath:    filepath.Join(dir, "compound_fingerprints_np_fixed.csv"),
		BatchSize:         2000,
		FingerprintRadius: 2,
		FingerprintBits:   64,
	}
}

func writeCSV(t *testing.T, path string, records [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		t.Fatal(err)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return recs
}

// molBlock renders a V2000 connection table.
func molBlock(atoms []string, bonds [][3]int) string {
	var b strings.Builder
	b.WriteString("\n  test\n\n")
	fmt.Fprintf(&b, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(atoms), len(bonds))
	for _, a := range atoms {
		fmt.Fprintf(&b, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n", 0.0, 0.0, 0.0, a)
	}
	for _, bd := range bonds {
		fmt.Fprintf(&b, "%3d%3d%3d  0\n", bd[0], bd[1], bd[2])
	}
	b.WriteString("M  END\n")
	return b.String()
}

