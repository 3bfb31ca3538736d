package main

import (
	"fmt"
	"math"
)

// ==================== PRIME GENERATION ====================

// SievePrimes returns every prime in [2, n] in ascending order.
func SievePrimes(n int) []int {
	if n < 2 {
		return []int{}
	}

	composite := make([]bool, n+1)
	for i := 2; i*i <= n; i++ {
		if composite[i] {
			continue
		}
		for j := i * i; j <= n; j += i {
			composite[j] = true
		}
	}

	primes := make([]int, 0, estimatePrimeCount(n))
	for i := 2; i <= n; i++ {
		if !composite[i] {
			primes = append(primes, i)
		}
	}
	return primes
}

// FilterEffective keeps the primes with (p-1) mod m == 0, preserving order.
func FilterEffective(primes []int, modulus int) []int {
	effective := make([]int, 0, len(primes)/modulus+1)
	for _, p := range primes {
		if (p-1)%modulus == 0 {
			effective = append(effective, p)
		}
	}
	return effective
}

// EffectivePrimes runs the sieve and the congruence filter for a bound. An
// empty result is a configuration defect, not an empty table.
func EffectivePrimes(bound int, c Construction) ([]int, error) {
	if bound < 2 {
		return nil, &ConfigurationError{Bound: bound, Reason: "bound must be at least 2"}
	}

	eff := FilterEffective(SievePrimes(bound), c.Modulus)
	if len(eff) == 0 {
		return nil, &ConfigurationError{
			Bound:  bound,
			Reason: fmt.Sprintf("no primes p <= %d with p ≡ 1 (mod %d)", bound, c.Modulus),
		}
	}
	return eff, nil
}

// estimatePrimeCount is a loose upper estimate of pi(n), used for capacity only.
func estimatePrimeCount(n int) int {
	if n < 17 {
		return 8
	}
	// pi(n) < 1.26 n / ln n for n > 1
	return int(1.26*float64(n)/math.Log(float64(n))) + 1
}
