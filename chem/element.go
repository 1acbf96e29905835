package chem

import "strings"

// symbols is indexed by atomic number; 0 is the dummy atom.
var symbols = strings.Fields(`*
H He
Li Be B C N O F Ne
Na Mg Al Si P S Cl Ar
K Ca Sc Ti V Cr Mn Fe Co Ni Cu Zn Ga Ge As Se Br Kr
Rb Sr Y Zr Nb Mo Tc Ru Rh Pd Ag Cd In Sn Sb Te I Xe
Cs Ba La Ce Pr Nd Pm Sm Eu Gd Tb Dy Ho Er Tm Yb Lu Hf Ta W Re Os Ir Pt Au Hg Tl Pb Bi Po At Rn
Fr Ra Ac Th Pa U Np Pu Am Cm Bk Cf Es Fm Md No Lr Rf Db Sg Bh Hs Mt Ds Rg Cn Nh Fl Mc Lv Ts Og`)

var atomicNumbers = func() map[string]int {
	m := make(map[string]int, len(symbols))
	for z, s := range symbols {
		m[s] = z
	}
	// isotope and query aliases found in connection tables
	m["D"] = 1
	m["T"] = 1
	for _, q := range []string{"R", "R#", "A", "Q", "L", "X", "M"} {
		if _, taken := m[q]; !taken {
			m[q] = 0
		}
	}
	return m
}()

// defaultValences lists allowed neutral valences, lowest first.
// Elements without an entry never receive implicit hydrogens.
var defaultValences = map[int][]int{
	1:  {1},
	5:  {3},
	6:  {4},
	7:  {3, 5},
	8:  {2},
	9:  {1},
	14: {4},
	15: {3, 5, 7},
	16: {2, 4, 6},
	17: {1},
	33: {3, 5, 7},
	34: {2, 4, 6},
	35: {1},
	52: {2, 4, 6},
	53: {1, 3, 5},
}

// AtomicNumber returns the atomic number for an element symbol.
func AtomicNumber(symbol string) (int, bool) {
	z, ok := atomicNumbers[symbol]
	return z, ok
}

// Symbol returns the element symbol for an atomic number.
func Symbol(z int) string {
	if z < 0 || z >= len(symbols) {
		return "*"
	}
	return symbols[z]
}

// group returns the main-group column (1-18) for the light elements used in
// charge adjustment, and 0 otherwise.
func group(z int) int {
	switch z {
	case 5:
		return 13
	case 6, 14:
		return 14
	case 7, 15, 33:
		return 15
	case 8, 16, 34, 52:
		return 16
	case 9, 17, 35, 53:
		return 17
	}
	return 0
}

// allowedValences returns the charge-adjusted valences of an atom.
func allowedValences(z, charge int) []int {
	base, ok := defaultValences[z]
	if !ok {
		return nil
	}
	out := make([]int, 0, len(base))
	for _, v := range base {
		switch group(z) {
		case 13:
			v -= charge
		case 14:
			if charge < 0 {
				v += charge
			} else {
				v -= charge
			}
		case 15, 16, 17:
			v += charge
		default:
			v -= abs(charge)
		}
		if v >= 0 {
			out = append(out, v)
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
