// This file is part of faultsim.
//
// faultsim is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// faultsim is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with faultsim.  If not, see <https://www.gnu.org/licenses/>.

// Package test contains small helper functions used throughout the test
// suites of this module. It intentionally mirrors the plain-testing style
// used everywhere else in the module rather than pulling in a third party
// assertion framework.
package test

import (
	"fmt"
	"math"
	"testing"
)

// Equate fails the test if got and want are not equal, as reported by the ==
// operator's cousin reflect-free comparison for comparable types.
func Equate[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, wanted %v", got, want)
	}
}

// ExpectEquality is an alias of Equate kept for readability at call sites
// that are asserting a computed result against an expected value.
func ExpectEquality[T comparable](t *testing.T, got, want T) {
	t.Helper()
	Equate(t, got, want)
}

// ExpectInequality fails the test if got and want are equal.
func ExpectInequality[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got == want {
		t.Errorf("got %v, did not want %v", got, want)
	}
}

// ExpectApproximate fails the test if got and want differ by more than
// tolerance.
func ExpectApproximate(t *testing.T, got, want, tolerance float64) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Errorf("got %v, wanted approximately %v (tolerance %v)", got, want, tolerance)
	}
}

// outcome normalises the accepted "truthy" types for ExpectSuccess and
// ExpectFailure: booleans and errors (nil error meaning success).
func outcome(v interface{}) bool {
	switch o := v.(type) {
	case bool:
		return o
	case error:
		return o == nil
	case nil:
		return true
	default:
		panic(fmt.Sprintf("test: unsupported outcome type %T", v))
	}
}

// ExpectSuccess fails the test unless v is true or a nil error.
func ExpectSuccess(t *testing.T, v interface{}) {
	t.Helper()
	if !outcome(v) {
		t.Errorf("expected success, got %v", v)
	}
}

// ExpectFailure fails the test unless v is false or a non-nil error.
func ExpectFailure(t *testing.T, v interface{}) {
	t.Helper()
	if outcome(v) {
		t.Errorf("expected failure, got %v", v)
	}
}

// ExpectedSuccess is an older spelling of ExpectSuccess kept for
// compatibility with call sites that predate the rename.
func ExpectedSuccess(t *testing.T, v interface{}) {
	t.Helper()
	ExpectSuccess(t, v)
}

// ExpectedFailure is an older spelling of ExpectFailure kept for
// compatibility with call sites that predate the rename.
func ExpectedFailure(t *testing.T, v interface{}) {
	t.Helper()
	ExpectFailure(t, v)
}
