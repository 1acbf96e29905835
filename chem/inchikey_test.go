package chem

import (
	"errors"
	"testing"
)

func TestInChIKeyReferenceKeys(t *testing.T) {
	cases := []struct {
		name, inchi, key string
	}{
		{"ethanol", "InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3", "LFQSCWFLJHTTHZ-UHFFFAOYSA-N"},
		{"methane", "InChI=1S/CH4/h1H4", "VNWKTOKETHGBQD-UHFFFAOYSA-N"},
		{"water", "InChI=1S/H2O/h1H2", "XLYOFNOQVPJJNP-UHFFFAOYSA-N"},
		{"benzene", "InChI=1S/C6H6/c1-2-4-6-5-3-1/h1-6H", "UHOVQNZJYSORNB-UHFFFAOYSA-N"},
		{"caffeine", "InChI=1S/C8H10N4O2/c1-10-4-9-6-5(10)7(13)12(3)8(14)11(6)2/h4H,1-3H3", "RYYVLZVUVIJVGH-UHFFFAOYSA-N"},
		{"acetic acid", "InChI=1S/C2H4O2/c1-2(3)4/h1H3,(H,3,4)", "QTBSBXVTEAMEQO-UHFFFAOYSA-N"},
		{"acetate", "InChI=1S/C2H4O2/c1-2(3)4/h1H3,(H,3,4)/p-1", "QTBSBXVTEAMEQO-UHFFFAOYSA-M"},
		{"sodium ion", "InChI=1S/Na/q+1", "FKNQFGJONOIPTF-UHFFFAOYSA-N"},
		{"sodium acetate", "InChI=1S/C2H4O2.Na/c1-2(3)4;/h1H3,(H,3,4);/q;+1/p-1", "VMHLLURERBWHNL-UHFFFAOYSA-M"},
		{"L-alanine", "InChI=1S/C3H7NO2/c1-2(4)3(5)6/h2H,4H2,1H3,(H,5,6)/t2-/m0/s1", "QNAYBMKLOCPYGJ-REOHCLBHSA-N"},
		{"nicotine", "InChI=1S/C10H14N2/c1-12-7-3-5-10(12)9-4-2-6-11-8-9/h2,4,6,8,10H,3,5,7H2,1H3/t10-/m0/s1", "SNICXCGAKADSCV-JTQLQIEISA-N"},
		{"D-glucose", "InChI=1S/C6H12O6/c7-1-2-3(8)4(9)5(10)6(11)12-2/h2-11H,1H2/t2-,3-,4+,5-,6?/m1/s1", "WQZGKKKJIJFFOK-GASJEMHNSA-N"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := InChIKey(tc.inchi)
			if err != nil {
				t.Fatalf("key: %v", err)
			}
			if key != tc.key {
				t.Fatalf("got %s, want %s", key, tc.key)
			}
		})
	}
}

func TestInChIKeyFlags(t *testing.T) {
	std, _ := InChIKey("InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3")
	nonStd, _ := InChIKey("InChI=1/C2H6O/c1-2-3/h3H,2H2,1H3")
	if std[23] != 'S' || nonStd[23] != 'N' {
		t.Fatalf("unexpected standard flags: %q %q", std, nonStd)
	}
	if std[:23] != nonStd[:23] {
		t.Fatalf("version flag changed the hashes: %q %q", std, nonStd)
	}
	protonated, _ := InChIKey("InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3/p+1")
	if protonated != "LFQSCWFLJHTTHZ-UHFFFAOYSA-O" {
		t.Fatalf("unexpected protonated key %q", protonated)
	}
	heavy, _ := InChIKey("InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3/p+13")
	if heavy[26] != 'A' {
		t.Fatalf("out-of-range protonation should give A, got %q", heavy)
	}
}

func TestTripletTable(t *testing.T) {
	if len(tripletTable) != 1<<14 {
		t.Fatalf("expected %d triplets, got %d", 1<<14, len(tripletTable))
	}
	if tripletTable[0] != "AAA" || tripletTable[len(tripletTable)-1] != "ZZZ" {
		t.Fatalf("unexpected table bounds %s..%s", tripletTable[0], tripletTable[len(tripletTable)-1])
	}
	for i, tr := range tripletTable {
		if tr[0] == 'E' || (tr >= "TAA" && tr <= "TTV") {
			t.Fatalf("triplet %d %s must not be used", i, tr)
		}
		if i > 0 && tripletTable[i-1] >= tr {
			t.Fatalf("table not ordered at %d", i)
		}
	}
}

func TestInChIKeyRejectsInvalid(t *testing.T) {
	for _, bad := range []string{"", "not an inchi", "InChI=1S/", "InChI=1S/C2H6O/p+x", "InChI=1S/C2H6O/p1x"} {
		if _, err := InChIKey(bad); !errors.Is(err, ErrInvalidInChI) {
			t.Errorf("%q: expected ErrInvalidInChI, got %v", bad, err)
		}
	}
}
