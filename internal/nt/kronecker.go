// Package nt provides the elementary number theory used by the Frobenius
// classifiers: Kronecker symbols, segmented prime sieves, and primality
// checks for auditing stored data.
package nt

import "math/big"

// Kronecker computes the Kronecker symbol (a|n) for n >= 1, extending the
// Jacobi symbol by the 2-adic rule: (a|2) = 0 for even a, +1 for
// a = +-1 mod 8, -1 for a = +-3 mod 8. For odd n this is math/big's Jacobi.
func Kronecker(a int64, n uint64) int {
	if n == 0 {
		if a == 1 || a == -1 {
			return 1
		}
		return 0
	}
	result := 1
	for n%2 == 0 {
		s := kronecker2(a)
		if s == 0 {
			return 0
		}
		result *= s
		n /= 2
	}
	if n == 1 {
		return result
	}
	j := big.Jacobi(big.NewInt(a), new(big.Int).SetUint64(n))
	return result * j
}

func kronecker2(a int64) int {
	r := a % 8
	if r < 0 {
		r += 8
	}
	switch r {
	case 1, 7:
		return 1
	case 3, 5:
		return -1
	default:
		return 0
	}
}

// SymbolTriple evaluates (d1|p), (d2|p), (d3|p) for a quadratic-subfield
// discriminant triple.
func SymbolTriple(d [3]int64, p uint64) [3]int {
	return [3]int{Kronecker(d[0], p), Kronecker(d[1], p), Kronecker(d[2], p)}
}
