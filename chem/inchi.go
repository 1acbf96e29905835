package chem

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// inchiLayers is an InChI split into its prefix-tagged layers.
type inchiLayers struct {
	standard bool
	formula  string
	layers   []string // every "/x..." layer after the formula, in order
}

func splitInChI(s string) (inchiLayers, error) {
	s = strings.TrimSpace(s)
	var out inchiLayers
	switch {
	case strings.HasPrefix(s, "InChI=1S/"):
		out.standard = true
		s = s[len("InChI=1S/"):]
	case strings.HasPrefix(s, "InChI=1/"):
		s = s[len("InChI=1/"):]
	default:
		return out, fmt.Errorf("%w: missing InChI=1 prefix", ErrInvalidInChI)
	}
	parts := strings.Split(s, "/")
	if parts[0] == "" {
		return out, fmt.Errorf("%w: empty formula layer", ErrInvalidInChI)
	}
	out.formula = parts[0]
	for _, p := range parts[1:] {
		if p == "" {
			return out, fmt.Errorf("%w: empty layer", ErrInvalidInChI)
		}
		out.layers = append(out.layers, p)
	}
	return out, nil
}

// layer returns the body of the first layer tagged with prefix, e.g. "c".
func (l inchiLayers) layer(prefix byte) (string, bool) {
	for _, p := range l.layers {
		if p[0] == prefix {
			return p[1:], true
		}
	}
	return "", false
}

// Limits on counts read from an InChI string.
const (
	maxInChIAtoms    = 10000
	maxAtomHydrogens = 16
)

// boundedCount parses a decimal count and rejects values outside 0..limit.
func boundedCount(s string, limit int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad count %q", ErrInvalidInChI, s)
	}
	if v < 0 || v > limit {
		return 0, fmt.Errorf("%w: count %d exceeds %d", ErrInvalidInChI, v, limit)
	}
	return v, nil
}

// component is one disconnected part of the formula.
type component struct {
	elements []int // heavy atoms in InChI canonical numbering order
	hydrogen int
}

// ParseInChI rebuilds a molecular graph from the formula, connection and
// hydrogen layers of an InChI. Bond orders are re-derived from valences;
// stereo, isotope and charge layers are not interpreted.
func ParseInChI(s string) (*Molecule, error) {
	if strings.TrimSpace(s) == "" {
		return nil, ErrEmptyStructure
	}
	l, err := splitInChI(s)
	if err != nil {
		return nil, err
	}
	comps, err := parseFormula(l.formula)
	if err != nil {
		return nil, err
	}
	connLayer, _ := l.layer('c')
	hLayer, _ := l.layer('h')
	conns := expandComponents(connLayer, len(comps))
	hs := expandComponents(hLayer, len(comps))
	if conns == nil || hs == nil {
		return nil, fmt.Errorf("%w: more layer components than formula components", ErrInvalidInChI)
	}

	mol := &Molecule{}
	for ci, comp := range comps {
		offset := len(mol.Atoms)
		for _, z := range comp.elements {
			mol.AddAtom(Atom{Element: z})
		}
		n := len(comp.elements)
		if err := parseConnections(mol, conns[ci], offset, n); err != nil {
			return nil, err
		}
		assigned, err := parseHydrogens(mol, hs[ci], offset, n)
		if err != nil {
			return nil, err
		}
		if n == 1 && assigned == 0 {
			mol.Atoms[offset].Hydrogens = comp.hydrogen
		}
	}
	mol.saturate()
	if err := mol.checkValence(); err != nil {
		return nil, err
	}
	mol.perceive()
	return mol, nil
}

// parseFormula expands "C2H6O.2ClH" into components in InChI atom order:
// carbon first, hydrogen excluded, remaining elements alphabetically.
func parseFormula(f string) ([]component, error) {
	var out []component
	atoms := 0
	for _, part := range strings.Split(f, ".") {
		mult := 1
		i := 0
		for i < len(part) && unicode.IsDigit(rune(part[i])) {
			i++
		}
		if i > 0 {
			m, err := boundedCount(part[:i], maxInChIAtoms)
			if err != nil {
				return nil, err
			}
			mult = m
		}
		part = part[i:]
		if part == "" || mult < 1 {
			return nil, fmt.Errorf("%w: bad formula component", ErrInvalidInChI)
		}
		counts := map[string]int{}
		for j := 0; j < len(part); {
			if !unicode.IsUpper(rune(part[j])) {
				return nil, fmt.Errorf("%w: bad formula %q", ErrInvalidInChI, part)
			}
			k := j + 1
			for k < len(part) && unicode.IsLower(rune(part[k])) {
				k++
			}
			sym := part[j:k]
			n := k
			for n < len(part) && unicode.IsDigit(rune(part[n])) {
				n++
			}
			count := 1
			if n > k {
				c, err := boundedCount(part[k:n], maxInChIAtoms)
				if err != nil {
					return nil, err
				}
				count = c
			}
			if z, ok := AtomicNumber(sym); !ok || z == 0 || sym == "D" || sym == "T" {
				return nil, fmt.Errorf("%w: unknown element %q", ErrInvalidInChI, sym)
			}
			counts[sym] += count
			if counts[sym] > maxInChIAtoms {
				return nil, fmt.Errorf("%w: too many %s atoms", ErrInvalidInChI, sym)
			}
			j = n
		}
		var order []string
		for sym := range counts {
			if sym != "C" && sym != "H" {
				order = append(order, sym)
			}
		}
		sort.Strings(order)
		if _, ok := counts["C"]; ok {
			order = append([]string{"C"}, order...)
		}
		var comp component
		comp.hydrogen = counts["H"]
		for _, sym := range order {
			z, _ := AtomicNumber(sym)
			for k := 0; k < counts[sym]; k++ {
				comp.elements = append(comp.elements, z)
			}
		}
		if len(comp.elements) == 0 {
			// H2, H+ and the like: keep a lone hydrogen atom
			comp.elements = []int{1}
			comp.hydrogen--
		}
		atoms += mult * (len(comp.elements) + comp.hydrogen)
		if atoms > maxInChIAtoms {
			return nil, fmt.Errorf("%w: more than %d atoms", ErrInvalidInChI, maxInChIAtoms)
		}
		for k := 0; k < mult; k++ {
			out = append(out, comp)
		}
	}
	return out, nil
}

// expandComponents splits a layer body on ';' and resolves "n*" repeats,
// padding with empty entries up to n components. It returns nil when the
// layer names more components than exist.
func expandComponents(body string, n int) []string {
	out := make([]string, 0, n)
	if body != "" {
		for _, part := range strings.Split(body, ";") {
			rep := 1
			if star := strings.IndexByte(part, '*'); star > 0 {
				if r, err := strconv.Atoi(part[:star]); err == nil {
					rep = r
					part = part[star+1:]
				}
			}
			if rep < 1 || rep > n-len(out) {
				return nil
			}
			for k := 0; k < rep; k++ {
				out = append(out, part)
			}
		}
	}
	if len(out) > n {
		return nil
	}
	for len(out) < n {
		out = append(out, "")
	}
	return out
}

// parseConnections reads a connection-table layer such as "1-2-4(3)5,6".
func parseConnections(mol *Molecule, body string, offset, n int) error {
	prev := -1
	var stack []int
	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case unicode.IsDigit(rune(c)):
			j := i
			for j < len(body) && unicode.IsDigit(rune(body[j])) {
				j++
			}
			num, err := strconv.Atoi(body[i:j])
			if err != nil || num < 1 || num > n {
				return fmt.Errorf("%w: atom %d out of range 1..%d", ErrInvalidInChI, num, n)
			}
			cur := offset + num - 1
			if prev >= 0 {
				if err := mol.AddBond(prev, cur, Single); err != nil {
					return fmt.Errorf("%w: %v", ErrInvalidInChI, err)
				}
			}
			prev = cur
			i = j
		case c == '-':
			i++
		case c == '(':
			stack = append(stack, prev)
			i++
		case c == ',':
			if len(stack) == 0 {
				return fmt.Errorf("%w: ',' outside branch", ErrInvalidInChI)
			}
			prev = stack[len(stack)-1]
			i++
		case c == ')':
			if len(stack) == 0 {
				return fmt.Errorf("%w: unbalanced ')'", ErrInvalidInChI)
			}
			prev = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			i++
		default:
			return fmt.Errorf("%w: unexpected %q in connection layer", ErrInvalidInChI, c)
		}
	}
	if len(stack) != 0 {
		return fmt.Errorf("%w: unbalanced '('", ErrInvalidInChI)
	}
	return nil
}

// parseHydrogens reads "1,3H2,2H,(H,4,5)" and returns the hydrogens placed.
// Mobile groups give their hydrogens to the listed atoms in order.
func parseHydrogens(mol *Molecule, body string, offset, n int) (int, error) {
	total := 0
	var pending []int
	atom := func(num int) (int, error) {
		if num < 1 || num > n {
			return 0, fmt.Errorf("%w: hydrogen atom %d out of range 1..%d", ErrInvalidInChI, num, n)
		}
		return offset + num - 1, nil
	}
	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case c == '(':
			end := strings.IndexByte(body[i:], ')')
			if end < 0 {
				return 0, fmt.Errorf("%w: unbalanced mobile-H group", ErrInvalidInChI)
			}
			fields := strings.Split(body[i+1:i+end], ",")
			count := 1
			head := strings.TrimLeft(fields[0], "H")
			head = strings.TrimRight(head, "-+")
			if head != "" {
				v, err := boundedCount(head, maxAtomHydrogens*n)
				if err != nil {
					return 0, fmt.Errorf("bad mobile-H count %q: %w", fields[0], err)
				}
				count = v
			}
			members := fields[1:]
			for k := 0; k < count && len(members) > 0; k++ {
				num, err := strconv.Atoi(members[k%len(members)])
				if err != nil {
					return 0, fmt.Errorf("%w: bad mobile-H atom", ErrInvalidInChI)
				}
				idx, err := atom(num)
				if err != nil {
					return 0, err
				}
				mol.Atoms[idx].Hydrogens++
				total++
			}
			i += end + 1
		case unicode.IsDigit(rune(c)):
			j := i
			for j < len(body) && unicode.IsDigit(rune(body[j])) {
				j++
			}
			from, err := boundedCount(body[i:j], n)
			if err != nil {
				return 0, err
			}
			to := from
			if j < len(body) && body[j] == '-' {
				k := j + 1
				for k < len(body) && unicode.IsDigit(rune(body[k])) {
					k++
				}
				if to, err = boundedCount(body[j+1:k], n); err != nil {
					return 0, err
				}
				j = k
			}
			for num := from; num <= to; num++ {
				idx, err := atom(num)
				if err != nil {
					return 0, err
				}
				pending = append(pending, idx)
			}
			i = j
		case c == 'H':
			j := i + 1
			for j < len(body) && unicode.IsDigit(rune(body[j])) {
				j++
			}
			count := 1
			if j > i+1 {
				v, err := boundedCount(body[i+1:j], maxAtomHydrogens)
				if err != nil {
					return 0, err
				}
				count = v
			}
			for _, idx := range pending {
				mol.Atoms[idx].Hydrogens += count
				total += count
			}
			pending = pending[:0]
			i = j
		case c == ',':
			i++
		default:
			return 0, fmt.Errorf("%w: unexpected %q in hydrogen layer", ErrInvalidInChI, c)
		}
	}
	if len(pending) != 0 {
		return 0, fmt.Errorf("%w: hydrogen atoms without count", ErrInvalidInChI)
	}
	return total, nil
}

// saturate raises bond orders between atoms that still have free valence,
// resolving atoms with a single unsaturated neighbour first.
func (m *Molecule) saturate() {
	free := make([]int, len(m.Atoms))
	for i, a := range m.Atoms {
		vals := allowedValences(a.Element, a.Charge)
		if vals == nil {
			continue
		}
		used := m.explicitValence(i) + a.Hydrogens
		for _, v := range vals {
			if v >= used {
				free[i] = v - used
				break
			}
		}
	}
	openNeighbours := func(i int) []int {
		var out []int
		for _, bi := range m.adj[i] {
			b := m.Bonds[bi]
			if free[b.Other(i)] > 0 && b.Order < Triple {
				out = append(out, bi)
			}
		}
		return out
	}
	raise := func(bi int) {
		b := &m.Bonds[bi]
		b.Order++
		free[b.A]--
		free[b.B]--
	}
	for progress := true; progress; {
		progress = false
		// forced moves first
		for i := range m.Atoms {
			if free[i] == 0 {
				continue
			}
			if open := openNeighbours(i); len(open) == 1 {
				raise(open[0])
				progress = true
			}
		}
		if progress {
			continue
		}
		for i := range m.Atoms {
			if free[i] == 0 {
				continue
			}
			if open := openNeighbours(i); len(open) > 0 {
				raise(open[0])
				progress = true
				break
			}
		}
	}
	// hypervalent centres (sulfonyl, phosphoryl, nitro-like) take leftover
	// free valence by moving to their next allowed valence
	for i := range m.Atoms {
		for free[i] > 0 {
			raised := false
			for _, bi := range m.adj[i] {
				j := m.Bonds[bi].Other(i)
				if m.Bonds[bi].Order >= Triple {
					continue
				}
				if free[j] > 0 {
					raise(bi)
				} else if m.canExpand(j) {
					raise(bi)
					free[j] += 2
				} else {
					continue
				}
				raised = true
				break
			}
			if !raised {
				break
			}
		}
	}
}

// canExpand reports whether atom j has a higher allowed valence than it uses.
func (m *Molecule) canExpand(j int) bool {
	a := m.Atoms[j]
	vals := allowedValences(a.Element, a.Charge)
	used := m.explicitValence(j) + a.Hydrogens
	return len(vals) > 0 && vals[len(vals)-1] >= used+1
}
