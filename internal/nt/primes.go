package nt

import (
	"math"
	"math/bits"

	"github.com/tuneinsight/lattigo/v4/ring"
)

// SievePrimes returns all primes p with lo <= p < hi in ascending order,
// using a segmented sieve so memory is proportional to the window and to
// sqrt(hi), never to hi itself.
func SievePrimes(lo, hi uint64) []uint64 {
	if hi <= 2 || hi <= lo {
		return nil
	}
	if lo < 2 {
		lo = 2
	}

	base := smallPrimes(isqrt(hi - 1))
	window := hi - lo
	composite := make([]bool, window)
	for _, q := range base {
		start := q * q
		if start < lo {
			start = ((lo + q - 1) / q) * q
		}
		for m := start; m < hi; m += q {
			composite[m-lo] = true
		}
	}

	out := make([]uint64, 0, window/8+8)
	for i := uint64(0); i < window; i++ {
		p := lo + i
		if !composite[i] {
			out = append(out, p)
		}
	}
	return out
}

// smallPrimes returns all primes <= n by a plain sieve of Eratosthenes.
func smallPrimes(n uint64) []uint64 {
	if n < 2 {
		return nil
	}
	composite := make([]bool, n+1)
	var out []uint64
	for p := uint64(2); p <= n; p++ {
		if composite[p] {
			continue
		}
		out = append(out, p)
		for m := p * p; m <= n; m += p {
			composite[m] = true
		}
	}
	return out
}

func isqrt(n uint64) uint64 {
	if n < 2 {
		return n
	}
	x := uint64(1) << ((bits.Len64(n) + 1) / 2)
	for {
		y := (x + n/x) / 2
		if y >= x {
			return x
		}
		x = y
	}
}

// IsPrime reports whether n is prime, by lattigo's Miller-Rabin test.
// Sweeps never call it (they sieve); it audits single values, like the
// prime keys of a stored classification file.
func IsPrime(n uint64) bool {
	return ring.IsPrime(n)
}

// NextPow10 returns the smallest power of ten >= x (and 10 for x <= 10).
// Used to suggest a plot bound from the largest classified prime.
func NextPow10(x uint64) uint64 {
	p := uint64(10)
	for p < x {
		p *= 10
	}
	return p
}

// EstimatePrimeCount approximates pi(n) as n/(ln n - 1), which stays
// within about one percent of the true count for n >= 10^4. Good enough
// for progress reporting; never used for correctness.
func EstimatePrimeCount(n uint64) uint64 {
	if n < 2 {
		return 0
	}
	if n < 11 {
		return uint64(len(smallPrimes(n)))
	}
	return uint64(float64(n) / (math.Log(float64(n)) - 1))
}
