package chem

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a dense fixed-length vector of per-bit values.
type Fingerprint []uint8

// String renders the vector as a literal list, e.g. "[0, 1, 0]".
func (f Fingerprint) String() string {
	return f.render(", ")
}

// JSON renders the vector as a compact JSON array of numbers.
func (f Fingerprint) JSON() []byte {
	return []byte(f.render(","))
}

func (f Fingerprint) render(sep string) string {
	var b strings.Builder
	b.Grow(len(f)*(len(sep)+1) + 2)
	b.WriteByte('[')
	for i, v := range f {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(strconv.Itoa(int(v)))
	}
	b.WriteByte(']')
	return b.String()
}

// OnBits counts the non-zero positions.
func (f Fingerprint) OnBits() int {
	n := 0
	for _, v := range f {
		if v != 0 {
			n++
		}
	}
	return n
}

// ParseFingerprint reads the literal list form produced by String or JSON.
func ParseFingerprint(s string) (Fingerprint, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("fingerprint %q is not a list", s)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return Fingerprint{}, nil
	}
	parts := strings.Split(body, ",")
	out := make(Fingerprint, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("fingerprint position %d: %w", i, err)
		}
		out[i] = uint8(v)
	}
	return out, nil
}

// Generator computes circular (Morgan/ECFP-style) fingerprints.
type Generator struct {
	Radius int
	Size   int
	// Counts stores saturating per-bit occurrence counts instead of 0/1 bits.
	Counts bool
}

// NewGenerator returns a bit-vector generator with the given radius and width.
func NewGenerator(radius, size int) *Generator {
	return &Generator{Radius: radius, Size: size}
}

// environment is one atom-centred substructure found at some radius.
type environment struct {
	bonds string // bond-set key of the neighbourhood
	id    uint32
}

// Fingerprint hashes every atom environment up to Radius bonds and folds the
// identifiers into Size positions. Environments covering a bond set already
// seen are ignored, so each distinct substructure sets its bit once.
func (g *Generator) Fingerprint(m *Molecule) Fingerprint {
	fp := make(Fingerprint, g.Size)
	if g.Size <= 0 {
		return fp
	}
	set := func(id uint32) {
		i := int(id % uint32(g.Size))
		if !g.Counts {
			fp[i] = 1
			return
		}
		if fp[i] < 255 {
			fp[i]++
		}
	}

	n := len(m.Atoms)
	ids := make([]uint32, n)
	for i := range m.Atoms {
		ids[i] = m.atomInvariant(i)
		set(ids[i])
	}

	words := (len(m.Bonds) + 63) / 64
	hoods := make([][]uint64, n)
	for i := range hoods {
		hoods[i] = make([]uint64, words)
	}
	seen := map[string]bool{}

	for layer := 1; layer <= g.Radius; layer++ {
		next := make([]uint32, n)
		nextHoods := make([][]uint64, n)
		envs := make([]environment, 0, n)
		for i := 0; i < n; i++ {
			pairs := make([][2]uint32, 0, len(m.adj[i]))
			hood := append([]uint64(nil), hoods[i]...)
			for _, bi := range m.adj[i] {
				j := m.Bonds[bi].Other(i)
				pairs = append(pairs, [2]uint32{uint32(m.Bonds[bi].Order), ids[j]})
				hood[bi/64] |= 1 << (uint(bi) % 64)
				for w := range hood {
					hood[w] |= hoods[j][w]
				}
			}
			sort.Slice(pairs, func(a, b int) bool {
				if pairs[a][0] != pairs[b][0] {
					return pairs[a][0] < pairs[b][0]
				}
				return pairs[a][1] < pairs[b][1]
			})
			vals := make([]uint32, 0, 2+2*len(pairs))
			vals = append(vals, uint32(layer), ids[i])
			for _, p := range pairs {
				vals = append(vals, p[0], p[1])
			}
			next[i] = hashUint32s(vals...)
			nextHoods[i] = hood
			if len(pairs) > 0 {
				envs = append(envs, environment{bonds: hoodKey(hood), id: next[i]})
			}
		}
		sort.Slice(envs, func(a, b int) bool {
			if envs[a].bonds != envs[b].bonds {
				return envs[a].bonds < envs[b].bonds
			}
			return envs[a].id < envs[b].id
		})
		for _, e := range envs {
			if seen[e.bonds] {
				continue
			}
			seen[e.bonds] = true
			set(e.id)
		}
		ids, hoods = next, nextHoods
	}
	return fp
}

// atomInvariant hashes the connectivity invariants of atom i: element,
// total degree, hydrogen count, formal charge, isotope and ring membership.
func (m *Molecule) atomInvariant(i int) uint32 {
	a := m.Atoms[i]
	ring := uint32(0)
	if a.InRing {
		ring = 1
	}
	return hashUint32s(
		uint32(a.Element),
		uint32(m.Degree(i)+a.Hydrogens),
		uint32(a.Hydrogens),
		uint32(int32(a.Charge)),
		uint32(a.Isotope),
		ring,
	)
}

func hashUint32s(vals ...uint32) uint32 {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	return uint32(xxhash.Sum64(buf))
}

func hoodKey(words []uint64) string {
	buf := make([]byte, 8*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint64(buf[8*i:], w)
	}
	return string(buf)
}
