package chem

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// Format names the textual encoding of a structure.
type Format int

const (
	FormatMolBlock Format = iota
	FormatInChI
)

func (f Format) String() string {
	switch f {
	case FormatMolBlock:
		return "molfile"
	case FormatInChI:
		return "inchi"
	}
	return "unknown"
}

// Parse dispatches to the parser for format.
func Parse(format Format, text string) (*Molecule, error) {
	switch format {
	case FormatMolBlock:
		return ParseMolBlock(text)
	case FormatInChI:
		return ParseInChI(text)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, int(format))
}

// InChIKey derives the 27-character hashed key of an InChI string.
//
// The first block hashes the main layer (formula, connections, hydrogens)
// together with the charge layer. The second block hashes every remaining
// layer except protonation, which becomes the final letter.
func InChIKey(inchi string) (string, error) {
	l, err := splitInChI(inchi)
	if err != nil {
		return "", err
	}
	if _, err := parseFormula(l.formula); err != nil {
		return "", err
	}

	major := []string{l.formula}
	var minor strings.Builder
	protons := 0
	seenProtons := false
	inMajor := true
	for _, layer := range l.layers {
		if layer[0] == 'p' && !seenProtons {
			p, err := strconv.Atoi(layer[1:])
			if err != nil {
				return "", fmt.Errorf("%w: bad protonation layer %q", ErrInvalidInChI, layer)
			}
			protons, seenProtons = p, true
			continue
		}
		if inMajor && (layer[0] == 'c' || layer[0] == 'h' || layer[0] == 'q') {
			major = append(major, layer)
			continue
		}
		inMajor = false
		minor.WriteByte('/')
		minor.WriteString(layer)
	}

	rest := minor.String()
	if len(rest) < minorRepeatLimit {
		rest += rest
	}
	first := sha256.Sum256([]byte(strings.Join(major, "/")))
	second := sha256.Sum256([]byte(rest))

	flag := byte('S')
	if !l.standard {
		flag = 'N'
	}
	var b strings.Builder
	b.Grow(27)
	r := bitReader{data: first[:]}
	for k := 0; k < 4; k++ {
		b.WriteString(tripletTable[r.take(14)])
	}
	b.WriteString(doublet(r.take(9)))
	b.WriteByte('-')
	r = bitReader{data: second[:]}
	for k := 0; k < 2; k++ {
		b.WriteString(tripletTable[r.take(14)])
	}
	b.WriteString(doublet(r.take(9)))
	b.WriteByte(flag)
	b.WriteByte('A')
	b.WriteByte('-')
	b.WriteByte(protonationFlag(protons))
	return b.String(), nil
}

// Short minor-layer strings are hashed twice over.
const minorRepeatLimit = 255

// bitReader hands out bit fields least-significant bit first.
type bitReader struct {
	data []byte
	pos  int
}

func (r *bitReader) take(n int) int {
	v := 0
	for k := 0; k < n; k++ {
		byteIdx, bit := r.pos/8, r.pos%8
		if r.data[byteIdx]>>uint(bit)&1 == 1 {
			v |= 1 << uint(k)
		}
		r.pos++
	}
	return v
}

// tripletTable maps 14-bit values to letter triplets: AAA..ZZZ in order,
// without a leading E and without the range TAA..TTV, 16384 entries.
var tripletTable = buildTriplets()

func buildTriplets() []string {
	out := make([]string, 0, 1<<14)
	for a := byte('A'); a <= 'Z'; a++ {
		if a == 'E' {
			continue
		}
		for b := byte('A'); b <= 'Z'; b++ {
			for c := byte('A'); c <= 'Z'; c++ {
				t := string([]byte{a, b, c})
				if t >= "TAA" && t <= "TTV" {
					continue
				}
				out = append(out, t)
			}
		}
	}
	return out
}

func doublet(v int) string {
	return string([]byte{byte('A' + v/26), byte('A' + v%26)})
}

func protonationFlag(p int) byte {
	if p == 0 {
		return 'N'
	}
	if p > 12 || p < -12 {
		return 'A'
	}
	return byte('N' + p)
}
