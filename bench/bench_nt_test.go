package bench

import (
	"testing"

	"Q8-Frobenius/cases"
	"Q8-Frobenius/internal/ffpoly"
	"Q8-Frobenius/internal/nt"
)

func BenchmarkSievePrimesMillionWindow(b *testing.B) {
	for i := 0; i < b.N; i++ {
		nt.SievePrimes(100_000_000, 101_000_000)
	}
}

func BenchmarkSymbolTriple(b *testing.B) {
	c, err := cases.ByID(2)
	if err != nil {
		b.Fatal(err)
	}
	primes := nt.SievePrimes(2, 10_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		nt.SymbolTriple(c.Subfields, primes[i%len(primes)])
	}
}

func BenchmarkDegreePattern(b *testing.B) {
	c, err := cases.ByID(2)
	if err != nil {
		b.Fatal(err)
	}
	primes := nt.SievePrimes(1000, 20_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := primes[i%len(primes)]
		_, _ = ffpoly.DegreePattern(ffpoly.Reduce(c.Coeffs, p), p)
	}
}
