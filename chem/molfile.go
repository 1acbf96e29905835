package chem

import (
	"fmt"
	"strconv"
	"strings"
)

// molfile charge codes in the atom block
var chargeCodes = map[int]int{1: 3, 2: 2, 3: 1, 5: -1, 6: -2, 7: -3}

// ParseMolBlock reads an MDL V2000 connection table. Explicit hydrogens are
// folded into their heavy neighbour; missing hydrogens come from default valences.
func ParseMolBlock(block string) (*Molecule, error) {
	block = strings.ReplaceAll(block, "\r\n", "\n")
	if strings.TrimSpace(block) == "" {
		return nil, ErrEmptyStructure
	}
	lines := strings.Split(block, "\n")
	if len(lines) < 4 {
		return nil, fmt.Errorf("%w: missing counts line", ErrInvalidMolBlock)
	}
	counts := lines[3]
	if strings.Contains(counts, "V3000") {
		return nil, fmt.Errorf("%w: V3000", ErrUnsupportedFormat)
	}
	nAtoms, err := fixedInt(counts, 0, 3)
	if err != nil {
		return nil, fmt.Errorf("%w: atom count: %v", ErrInvalidMolBlock, err)
	}
	nBonds, err := fixedInt(counts, 3, 6)
	if err != nil {
		return nil, fmt.Errorf("%w: bond count: %v", ErrInvalidMolBlock, err)
	}
	if nAtoms < 0 || nBonds < 0 {
		return nil, fmt.Errorf("%w: negative counts %d/%d", ErrInvalidMolBlock, nAtoms, nBonds)
	}
	if len(lines) < 4+nAtoms+nBonds {
		return nil, fmt.Errorf("%w: expected %d atom and %d bond lines", ErrInvalidMolBlock, nAtoms, nBonds)
	}

	atoms := make([]Atom, nAtoms)
	for i := 0; i < nAtoms; i++ {
		a, err := parseAtomLine(lines[4+i])
		if err != nil {
			return nil, fmt.Errorf("%w: atom %d: %v", ErrInvalidMolBlock, i+1, err)
		}
		atoms[i] = a
	}

	type rawBond struct {
		a, b  int
		order BondOrder
	}
	bonds := make([]rawBond, 0, nBonds)
	for i := 0; i < nBonds; i++ {
		line := lines[4+nAtoms+i]
		a, err1 := fixedInt(line, 0, 3)
		b, err2 := fixedInt(line, 3, 6)
		t, err3 := fixedInt(line, 6, 9)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("%w: bond line %d", ErrInvalidMolBlock, i+1)
		}
		if a < 1 || b < 1 || a > nAtoms || b > nAtoms {
			return nil, fmt.Errorf("%w: bond %d references atom out of range", ErrInvalidMolBlock, i+1)
		}
		var order BondOrder
		switch t {
		case 1, 2, 3:
			order = BondOrder(t)
		case 4:
			order = Aromatic
		default:
			// query bond types (any, single-or-double, ...) are read as single
			order = Single
		}
		bonds = append(bonds, rawBond{a - 1, b - 1, order})
	}

	if err := parseProperties(lines[4+nAtoms+nBonds:], atoms); err != nil {
		return nil, err
	}

	// Fold plain explicit hydrogens that hang off exactly one heavy atom.
	heavyNeighbours := make([][]int, nAtoms)
	for _, b := range bonds {
		heavyNeighbours[b.a] = append(heavyNeighbours[b.a], b.b)
		heavyNeighbours[b.b] = append(heavyNeighbours[b.b], b.a)
	}
	folded := make([]bool, nAtoms)
	for i, a := range atoms {
		if a.Element != 1 || a.Charge != 0 || a.Isotope != 0 || len(heavyNeighbours[i]) != 1 {
			continue
		}
		if n := heavyNeighbours[i][0]; atoms[n].Element != 1 {
			atoms[n].Hydrogens++
			folded[i] = true
		}
	}

	mol := &Molecule{}
	index := make([]int, nAtoms)
	for i, a := range atoms {
		if folded[i] {
			index[i] = -1
			continue
		}
		index[i] = mol.AddAtom(a)
	}
	for _, b := range bonds {
		if index[b.a] < 0 || index[b.b] < 0 {
			continue
		}
		if b.order == Aromatic {
			mol.Atoms[index[b.a]].Aromatic = true
			mol.Atoms[index[b.b]].Aromatic = true
		}
		if err := mol.AddBond(index[b.a], index[b.b], b.order); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMolBlock, err)
		}
	}
	if err := mol.assignImplicitHydrogens(); err != nil {
		return nil, err
	}
	mol.perceive()
	return mol, nil
}

func parseAtomLine(line string) (Atom, error) {
	var symbol string
	var massDiff, chargeCode int
	if len(line) >= 34 {
		symbol = strings.TrimSpace(line[31:34])
		massDiff, _ = fixedInt(line, 34, 36)
		chargeCode, _ = fixedInt(line, 36, 39)
	} else {
		// tolerate whitespace-separated atom lines from hand-written blocks
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return Atom{}, fmt.Errorf("short atom line %q", line)
		}
		symbol = fields[3]
	}
	z, ok := AtomicNumber(symbol)
	if !ok {
		return Atom{}, fmt.Errorf("unknown element %q", symbol)
	}
	a := Atom{Element: z, Charge: chargeCodes[chargeCode]}
	if massDiff != 0 && z > 0 {
		a.Isotope = nominalMass(z) + massDiff
	}
	switch symbol {
	case "D":
		a.Isotope = 2
	case "T":
		a.Isotope = 3
	}
	return a, nil
}

// parseProperties applies the M  CHG and M  ISO blocks. Any M  CHG line
// resets the charges given in the atom block.
func parseProperties(lines []string, atoms []Atom) error {
	chargesReset := false
	for _, line := range lines {
		if strings.HasPrefix(line, "M  END") {
			return nil
		}
		if !strings.HasPrefix(line, "M  CHG") && !strings.HasPrefix(line, "M  ISO") {
			continue
		}
		fields := strings.Fields(line[6:])
		if len(fields) == 0 {
			return fmt.Errorf("%w: empty property line", ErrInvalidMolBlock)
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 || n > (len(fields)-1)/2 {
			return fmt.Errorf("%w: malformed property line %q", ErrInvalidMolBlock, line)
		}
		isCharge := strings.HasPrefix(line, "M  CHG")
		if isCharge && !chargesReset {
			for i := range atoms {
				atoms[i].Charge = 0
			}
			chargesReset = true
		}
		for k := 0; k < n; k++ {
			idx, err1 := strconv.Atoi(fields[1+2*k])
			val, err2 := strconv.Atoi(fields[2+2*k])
			if err1 != nil || err2 != nil || idx < 1 || idx > len(atoms) {
				return fmt.Errorf("%w: malformed property line %q", ErrInvalidMolBlock, line)
			}
			if isCharge {
				atoms[idx-1].Charge = val
			} else {
				atoms[idx-1].Isotope = val
			}
		}
	}
	return nil
}

// fixedInt parses a right-aligned integer column, treating blanks as zero.
func fixedInt(line string, from, to int) (int, error) {
	if from >= len(line) {
		return 0, nil
	}
	if to > len(line) {
		to = len(line)
	}
	s := strings.TrimSpace(line[from:to])
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// nominalMass approximates the most abundant isotope mass for mass-difference fields.
func nominalMass(z int) int {
	switch z {
	case 1:
		return 1
	case 6:
		return 12
	case 7:
		return 14
	case 8:
		return 16
	case 9:
		return 19
	case 15:
		return 31
	case 16:
		return 32
	case 17:
		return 35
	case 35:
		return 79
	case 53:
		return 127
	}
	return 2 * z
}
