package chem

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// molBlock builds a V2000 block with fixed-width atom and bond lines.
func molBlock(atoms []string, bonds [][3]int, props ...string) string {
	var b strings.Builder
	b.WriteString("\n     test          2D\n\n")
	fmt.Fprintf(&b, "%3d%3d  0  0  0  0  0  0  0  0999 V2000\n", len(atoms), len(bonds))
	for i, a := range atoms {
		fmt.Fprintf(&b, "%10.4f%10.4f%10.4f %-3s 0  0  0  0  0  0  0  0  0  0  0  0\n", float64(i), 0.0, 0.0, a)
	}
	for _, bd := range bonds {
		fmt.Fprintf(&b, "%3d%3d%3d  0\n", bd[0], bd[1], bd[2])
	}
	for _, p := range props {
		b.WriteString(p + "\n")
	}
	b.WriteString("M  END\n")
	return b.String()
}

var (
	ethanolBlock = molBlock([]string{"C", "C", "O"}, [][3]int{{1, 2, 1}, {2, 3, 1}})
	benzeneBlock = molBlock(
		[]string{"C", "C", "C", "C", "C", "C"},
		[][3]int{{1, 2, 2}, {2, 3, 1}, {3, 4, 2}, {4, 5, 1}, {5, 6, 2}, {6, 1, 1}},
	)
)

func TestParseMolBlockImplicitHydrogens(t *testing.T) {
	mol, err := ParseMolBlock(ethanolBlock)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(mol.Atoms) != 3 || len(mol.Bonds) != 2 {
		t.Fatalf("expected 3 atoms and 2 bonds, got %d and %d", len(mol.Atoms), len(mol.Bonds))
	}
	want := []int{3, 2, 1}
	for i, h := range want {
		if mol.Atoms[i].Hydrogens != h {
			t.Errorf("atom %d: expected %d hydrogens, got %d", i+1, h, mol.Atoms[i].Hydrogens)
		}
	}
}

func TestParseMolBlockFoldsExplicitHydrogens(t *testing.T) {
	block := molBlock([]string{"O", "H", "H"}, [][3]int{{1, 2, 1}, {1, 3, 1}})
	mol, err := ParseMolBlock(block)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(mol.Atoms) != 1 {
		t.Fatalf("expected hydrogens folded into oxygen, got %d atoms", len(mol.Atoms))
	}
	if mol.Atoms[0].Hydrogens != 2 {
		t.Fatalf("expected 2 hydrogens on oxygen, got %d", mol.Atoms[0].Hydrogens)
	}
}

func TestParseMolBlockPerceivesAromaticRing(t *testing.T) {
	mol, err := ParseMolBlock(benzeneBlock)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i, a := range mol.Atoms {
		if !a.Aromatic || !a.InRing || a.Hydrogens != 1 {
			t.Errorf("atom %d: %+v", i+1, a)
		}
	}
	for i, b := range mol.Bonds {
		if b.Order != Aromatic {
			t.Errorf("bond %d: expected aromatic, got %d", i+1, b.Order)
		}
	}
}

func TestParseMolBlockCyclohexaneIsNotAromatic(t *testing.T) {
	block := molBlock(
		[]string{"C", "C", "C", "C", "C", "C"},
		[][3]int{{1, 2, 1}, {2, 3, 1}, {3, 4, 1}, {4, 5, 1}, {5, 6, 1}, {6, 1, 1}},
	)
	mol, err := ParseMolBlock(block)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for i, a := range mol.Atoms {
		if a.Aromatic || !a.InRing || a.Hydrogens != 2 {
			t.Errorf("atom %d: %+v", i+1, a)
		}
	}
}

func TestParseMolBlockChargeProperty(t *testing.T) {
	// acetate: the M  CHG line puts -1 on the single-bonded oxygen
	block := molBlock(
		[]string{"C", "C", "O", "O"},
		[][3]int{{1, 2, 1}, {2, 3, 2}, {2, 4, 1}},
		"M  CHG  1   4  -1",
	)
	mol, err := ParseMolBlock(block)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if mol.Atoms[3].Charge != -1 {
		t.Fatalf("expected charge -1, got %d", mol.Atoms[3].Charge)
	}
	if mol.Atoms[3].Hydrogens != 0 {
		t.Fatalf("charged oxygen should carry no hydrogen, got %d", mol.Atoms[3].Hydrogens)
	}
	if mol.Atoms[2].Hydrogens != 0 {
		t.Fatalf("carbonyl oxygen should carry no hydrogen, got %d", mol.Atoms[2].Hydrogens)
	}
}

func TestParseMolBlockFailures(t *testing.T) {
	cases := []struct {
		name  string
		block string
		want  error
	}{
		{"empty", "   \n", ErrEmptyStructure},
		{"no counts line", "a\nb\n", ErrInvalidMolBlock},
		{"v3000", "\n  x\n\n  0  0  0     0  0            999 V3000\nM  END\n", ErrUnsupportedFormat},
		{"pentavalent carbon", molBlock(
			[]string{"C", "C", "C", "C", "C", "C"},
			[][3]int{{1, 2, 2}, {1, 3, 1}, {1, 4, 1}, {1, 5, 1}},
		), ErrValence},
		{"bond out of range", molBlock([]string{"C", "O"}, [][3]int{{1, 5, 1}}), ErrInvalidMolBlock},
		{"unknown element", molBlock([]string{"Xx"}, nil), ErrInvalidMolBlock},
		{"negative atom count", "\n  x\n\n -1  0  0     0  0            999 V2000\nM  END\n", ErrInvalidMolBlock},
		{"negative bond count", "\n  x\n\n  1 -1  0     0  0            999 V2000\nM  END\n", ErrInvalidMolBlock},
		{"oversized charge count", molBlock([]string{"C"}, nil, "M  CHG4611686018427387904  1  1"), ErrInvalidMolBlock},
		{"charge count beyond fields", molBlock([]string{"C"}, nil, "M  CHG  9   1   1"), ErrInvalidMolBlock},
		{"truncated", strings.Join(strings.Split(ethanolBlock, "\n")[:6], "\n"), ErrInvalidMolBlock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMolBlock(tc.block)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseDispatch(t *testing.T) {
	if _, err := Parse(FormatMolBlock, ethanolBlock); err != nil {
		t.Fatalf("molfile: %v", err)
	}
	if _, err := Parse(FormatInChI, "InChI=1S/C2H6O/c1-2-3/h3H,2H2,1H3"); err != nil {
		t.Fatalf("inchi: %v", err)
	}
	if _, err := Parse(Format(9), "x"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
