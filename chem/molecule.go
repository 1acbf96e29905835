package chem

import (
	"errors"
	"fmt"
	"sort"
)

// Parse failures. Callers treat all of them as "structure unusable".
var (
	ErrEmptyStructure    = errors.New("chem: empty structure")
	ErrUnsupportedFormat = errors.New("chem: unsupported structure format")
	ErrInvalidMolBlock   = errors.New("chem: invalid molfile")
	ErrInvalidInChI      = errors.New("chem: invalid InChI")
	ErrValence           = errors.New("chem: explicit valence exceeds allowed maximum")
)

// BondOrder is the multiplicity of a bond. Aromatic bonds carry their own order.
type BondOrder int

const (
	Single   BondOrder = 1
	Double   BondOrder = 2
	Triple   BondOrder = 3
	Aromatic BondOrder = 4
)

// Atom is a heavy atom with its attached hydrogens folded into a count.
type Atom struct {
	Element   int
	Charge    int
	Isotope   int
	Hydrogens int
	Aromatic  bool
	InRing    bool
}

// Bond joins atoms A and B (indices into Molecule.Atoms).
type Bond struct {
	A, B   int
	Order  BondOrder
	InRing bool
}

// Other returns the atom on the far side of the bond.
func (b Bond) Other(i int) int {
	if b.A == i {
		return b.B
	}
	return b.A
}

// Molecule is a hydrogen-suppressed molecular graph.
type Molecule struct {
	Atoms []Atom
	Bonds []Bond
	adj   [][]int
}

// AddAtom appends an atom and returns its index.
func (m *Molecule) AddAtom(a Atom) int {
	m.Atoms = append(m.Atoms, a)
	m.adj = append(m.adj, nil)
	return len(m.Atoms) - 1
}

// AddBond joins two atoms. A repeated pair keeps the first bond.
func (m *Molecule) AddBond(a, b int, order BondOrder) error {
	if a < 0 || b < 0 || a >= len(m.Atoms) || b >= len(m.Atoms) || a == b {
		return fmt.Errorf("bond %d-%d out of range for %d atoms", a+1, b+1, len(m.Atoms))
	}
	if m.BondBetween(a, b) >= 0 {
		return nil
	}
	m.Bonds = append(m.Bonds, Bond{A: a, B: b, Order: order})
	idx := len(m.Bonds) - 1
	m.adj[a] = append(m.adj[a], idx)
	m.adj[b] = append(m.adj[b], idx)
	return nil
}

// BondBetween returns the bond index joining a and b, or -1.
func (m *Molecule) BondBetween(a, b int) int {
	for _, bi := range m.adj[a] {
		if m.Bonds[bi].Other(a) == b {
			return bi
		}
	}
	return -1
}

// AtomBonds returns the indices of the bonds incident to atom i.
func (m *Molecule) AtomBonds(i int) []int { return m.adj[i] }

// Degree is the number of heavy-atom neighbours.
func (m *Molecule) Degree(i int) int { return len(m.adj[i]) }

// explicitValence sums bond orders around atom i. Aromatic bonds count one
// each plus a single shared pi contribution.
func (m *Molecule) explicitValence(i int) int {
	v, aromatic := 0, 0
	for _, bi := range m.adj[i] {
		if m.Bonds[bi].Order == Aromatic {
			aromatic++
		} else {
			v += int(m.Bonds[bi].Order)
		}
	}
	if aromatic > 0 {
		v += aromatic + 1
	}
	return v
}

// assignImplicitHydrogens completes each atom's hydrogen count from its
// allowed valences and rejects over-valent atoms.
func (m *Molecule) assignImplicitHydrogens() error {
	for i := range m.Atoms {
		a := &m.Atoms[i]
		vals := allowedValences(a.Element, a.Charge)
		if vals == nil {
			continue
		}
		used := m.explicitValence(i) + a.Hydrogens
		target := -1
		for _, v := range vals {
			if v >= used {
				target = v
				break
			}
		}
		if target < 0 {
			return fmt.Errorf("%w: %s atom %d has valence %d", ErrValence, Symbol(a.Element), i+1, used)
		}
		a.Hydrogens += target - used
	}
	return nil
}

// checkValence rejects atoms whose bonds plus hydrogens exceed every allowed valence.
func (m *Molecule) checkValence() error {
	for i, a := range m.Atoms {
		vals := allowedValences(a.Element, a.Charge)
		if vals == nil {
			continue
		}
		if used := m.explicitValence(i) + a.Hydrogens; used > vals[len(vals)-1] {
			return fmt.Errorf("%w: %s atom %d has valence %d", ErrValence, Symbol(a.Element), i+1, used)
		}
	}
	return nil
}

// perceive marks ring membership and aromaticity.
func (m *Molecule) perceive() {
	m.markRingBonds()
	m.markAromatic(m.smallestRings(8))
}

// markRingBonds flags every bond that is not a bridge, and the atoms it joins.
func (m *Molecule) markRingBonds() {
	n := len(m.Atoms)
	disc := make([]int, n)
	low := make([]int, n)
	for i := range disc {
		disc[i] = -1
	}
	timer := 0
	var visit func(u, parentBond int)
	visit = func(u, parentBond int) {
		disc[u] = timer
		low[u] = timer
		timer++
		for _, bi := range m.adj[u] {
			if bi == parentBond {
				continue
			}
			v := m.Bonds[bi].Other(u)
			if disc[v] < 0 {
				visit(v, bi)
				if low[v] < low[u] {
					low[u] = low[v]
				}
				if low[v] <= disc[u] {
					m.Bonds[bi].InRing = true
				}
			} else {
				if disc[v] < low[u] {
					low[u] = disc[v]
				}
				m.Bonds[bi].InRing = true
			}
		}
	}
	for i := 0; i < n; i++ {
		if disc[i] < 0 {
			visit(i, -1)
		}
	}
	for _, b := range m.Bonds {
		if b.InRing {
			m.Atoms[b.A].InRing = true
			m.Atoms[b.B].InRing = true
		}
	}
}

// smallestRings returns, for every ring bond, the shortest cycle through it
// of at most maxSize atoms. Each ring is listed once as an ordered atom path.
func (m *Molecule) smallestRings(maxSize int) [][]int {
	seen := map[string]bool{}
	var rings [][]int
	for bi, b := range m.Bonds {
		if !b.InRing {
			continue
		}
		path := m.shortestPathAvoiding(b.A, b.B, bi, maxSize)
		if path == nil {
			continue
		}
		key := append([]int(nil), path...)
		sort.Ints(key)
		k := fmt.Sprint(key)
		if seen[k] {
			continue
		}
		seen[k] = true
		rings = append(rings, path)
	}
	return rings
}

// shortestPathAvoiding runs a BFS from a to b that never crosses bond skip.
func (m *Molecule) shortestPathAvoiding(a, b, skip, maxSize int) []int {
	prev := make([]int, len(m.Atoms))
	for i := range prev {
		prev[i] = -2
	}
	prev[a] = -1
	queue := []int{a}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if u == b {
			break
		}
		for _, bi := range m.adj[u] {
			if bi == skip || !m.Bonds[bi].InRing {
				continue
			}
			v := m.Bonds[bi].Other(u)
			if prev[v] != -2 {
				continue
			}
			prev[v] = u
			queue = append(queue, v)
		}
	}
	if prev[b] == -2 {
		return nil
	}
	var path []int
	for v := b; v != -1; v = prev[v] {
		path = append(path, v)
		if len(path) > maxSize {
			return nil
		}
	}
	return path
}

// piElectrons returns the number of electrons atom i donates to a ring,
// or -1 if the atom breaks conjugation.
func (m *Molecule) piElectrons(i int) int {
	a := m.Atoms[i]
	if a.Aromatic {
		return 1
	}
	for _, bi := range m.adj[i] {
		b := m.Bonds[bi]
		if b.Order == Aromatic {
			return 1
		}
		if b.Order == Double {
			if b.InRing {
				return 1
			}
			// exocyclic C=O, C=N and the like leave an empty p orbital
			if o := m.Atoms[b.Other(i)].Element; o == 7 || o == 8 || o == 16 {
				return 0
			}
			return -1
		}
		if b.Order == Triple {
			return -1
		}
	}
	switch {
	case a.Element == 6 && a.Charge == -1:
		return 2
	case a.Element == 6 && a.Charge == 1:
		return 0
	case (a.Element == 7 || a.Element == 15) && a.Charge == 0 && m.Degree(i)+a.Hydrogens == 3:
		return 2
	case (a.Element == 8 || a.Element == 16 || a.Element == 34) && a.Charge == 0 && m.Degree(i)+a.Hydrogens == 2:
		return 2
	}
	return -1
}

// markAromatic applies the 4n+2 rule ring by ring until nothing changes, so
// fused systems drawn in either Kekulé form are recognised.
func (m *Molecule) markAromatic(rings [][]int) {
	done := make([]bool, len(rings))
	for changed := true; changed; {
		changed = false
		for ri, ring := range rings {
			if done[ri] {
				continue
			}
			bonds := make(map[int]bool, len(ring))
			for k := range ring {
				bi := m.BondBetween(ring[k], ring[(k+1)%len(ring)])
				if bi < 0 {
					bonds = nil
					break
				}
				bonds[bi] = true
			}
			if bonds == nil {
				continue
			}
			electrons := 0
			for _, atom := range ring {
				e := m.piElectrons(atom)
				if e < 0 {
					electrons = -1
					break
				}
				electrons += e
			}
			if electrons < 2 || (electrons-2)%4 != 0 {
				continue
			}
			done[ri] = true
			changed = true
			for _, atom := range ring {
				m.Atoms[atom].Aromatic = true
			}
			for bi := range bonds {
				m.Bonds[bi].Order = Aromatic
			}
		}
	}
}
