package naturalproducts

import (
	"strings"
	"testing"

	"hdi-prep/chem"
	"hdi-prep/storage"
)

func TestChooseInChI(t *testing.T) {
	cases := []struct {
		name     string
		standard string
		inchi    string
		want     string
		ok       bool
	}{
		{"standard wins", "InChI=1S/A", "InChI=1S/B", "InChI=1S/A", true},
		{"empty falls back", "", "InChI=1S/B", "InChI=1S/B", true},
		{"n.a. falls back", "n.a.", "InChI=1S/B", "InChI=1S/B", true},
		{"NA falls back", "NA", "InChI=1S/B", "InChI=1S/B", true},
		{"both sentinels", "n.a.", "NA", "", false},
		{"both empty", "", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ChooseInChI(storage.Row{ColStandardInChI: tc.standard, ColInChI: tc.inchi})
			if got != tc.want || ok != tc.ok {
				t.Fatalf("got (%q, %v) want (%q, %v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestCandidateOptionalColumns(t *testing.T) {
	p := New()
	c, ok := p.Candidate(storage.Row{
		ColStandardInChI: "n.a.",
		ColInChI:         "InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3",
		ColNPID:          "NPC123",
	})
	if !ok {
		t.Fatal("expected a candidate")
	}
	if c.Format != chem.FormatInChI {
		t.Fatalf("unexpected format %v", c.Format)
	}
	c.Record.SetBits(chem.Fingerprint{1, 0})
	got := strings.Join(p.Values(c.Record), "|")
	want := "np|NPC123||InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3||[1, 0]"
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
	if strings.Join(Header(), ",") != "source,np_id,chembl_id,np_inchi,np_inchi_key,fingerprint" {
		t.Fatalf("unexpected header %v", Header())
	}
}
