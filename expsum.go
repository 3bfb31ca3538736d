package main

import (
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"
	"time"

	"github.com/sirupsen/logrus"
)

// ==================== FIXED CONSTRUCTION ====================

// Construction pins the polynomial Q(n) = n^d - (n-1)^d and the congruence
// class of the primes it is evaluated at.
type Construction struct {
	Exponent int `json:"exponent" yaml:"exponent"`
	Modulus  int `json:"modulus" yaml:"modulus"`
}

// Q47 is the only construction this program computes.
var Q47 = Construction{Exponent: 47, Modulus: 47}

// WeilBound is the largest |S_p|/sqrt(p) a correct evaluation can produce.
func (c Construction) WeilBound() float64 {
	return float64(c.Exponent - 1)
}

// ==================== EXPONENTIAL SUM ENGINE ====================

// ExponentialSumResult is the evaluation for one effective prime.
type ExponentialSumResult struct {
	Prime      int        `json:"prime_p"`
	Sum        complex128 `json:"-"`
	Normalized complex128 `json:"-"`
	Magnitude  float64    `json:"magnitude"`
}

// Re and Im are the components of S_p/sqrt(p).
func (r ExponentialSumResult) Re() float64 { return real(r.Normalized) }
func (r ExponentialSumResult) Im() float64 { return imag(r.Normalized) }

type ExponentialSumEvaluator struct {
	construction Construction
	logger       *logrus.Logger
}

func NewExponentialSumEvaluator(c Construction, logger *logrus.Logger) *ExponentialSumEvaluator {
	return &ExponentialSumEvaluator{
		construction: c,
		logger:       logger,
	}
}

// Evaluate computes S_p = sum_{n=0}^{p-1} exp(2*pi*i*Q(n)/p) and its
// normalization by sqrt(p). Terms are accumulated in ascending n so that
// rounding is reproducible.
func (e *ExponentialSumEvaluator) Evaluate(p int) (ExponentialSumResult, error) {
	if p < 2 {
		return ExponentialSumResult{}, fmt.Errorf("cannot evaluate exponential sum at p=%d", p)
	}
	start := time.Now()

	mod := uint64(p)
	exp := uint64(e.construction.Exponent)

	// powers[n] = n^d mod p; (n-1) mod p indexes the same table.
	powers := make([]uint64, p)
	for n := uint64(0); n < mod; n++ {
		powers[n] = modPow(n, exp, mod)
	}

	fp := float64(p)
	var sum complex128
	for n := 0; n < p; n++ {
		prev := n - 1
		if prev < 0 {
			prev = p - 1
		}
		r := (powers[n] + mod - powers[prev]) % mod
		sin, cos := math.Sincos(2 * math.Pi * float64(r) / fp)
		sum += complex(cos, sin)
	}

	sqrtp := math.Sqrt(fp)
	normalized := complex(real(sum)/sqrtp, imag(sum)/sqrtp)
	result := ExponentialSumResult{
		Prime:      p,
		Sum:        sum,
		Normalized: normalized,
		Magnitude:  cmplx.Abs(normalized),
	}

	if err := e.CheckWeilBound(result); err != nil {
		return ExponentialSumResult{}, err
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond && e.logger != nil {
		e.logger.Debugf("S_%d evaluation took %v", p, elapsed)
	}

	return result, nil
}

// CheckWeilBound flags a magnitude that no correct evaluation can reach.
func (e *ExponentialSumEvaluator) CheckWeilBound(r ExponentialSumResult) error {
	bound := e.construction.WeilBound()
	if r.Magnitude > bound || math.IsNaN(r.Magnitude) {
		return &ArithmeticInvariantViolation{
			Prime:     r.Prime,
			Magnitude: r.Magnitude,
			Bound:     bound,
		}
	}
	return nil
}

// modPow computes base^exp mod m by repeated squaring.
func modPow(base, exp, m uint64) uint64 {
	if m == 1 {
		return 0
	}
	result := uint64(1)
	base %= m
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, base, m)
		}
		base = mulMod(base, base, m)
		exp >>= 1
	}
	return result
}

// mulMod returns a*b mod m without overflowing 64 bits. Requires a, b < m.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, m)
}
