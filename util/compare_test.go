// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package util

import "testing"

func TestJsonValEqual(t *testing.T) {
	cases := []struct {
		name     string
		a, b     any
		expected bool
	}{
		{"both nil", nil, nil, true},
		{"one nil", nil, 5, false},
		{"equal strings", "x", "x", true},
		{"different strings", "x", "y", false},
		{"int vs float64 equal", 5, float64(5), true},
		{"int vs float64 unequal", 5, float64(6), false},
		{"float64 vs int32", float64(3), int32(3), true},
		{"different types non-numeric", "5", 5, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := JsonValEqual(c.a, c.b); got != c.expected {
				t.Errorf("JsonValEqual(%v, %v) = %v, want %v", c.a, c.b, got, c.expected)
			}
		})
	}
}

func TestJsonValEqualSliceIdentity(t *testing.T) {
	s := []int{1, 2, 3}
	if !JsonValEqual(s, s) {
		t.Errorf("expected same slice to be equal to itself")
	}
	s2 := []int{1, 2, 3}
	if JsonValEqual(s, s2) {
		t.Errorf("expected distinct slices with equal contents to compare unequal (pointer-identity semantics)")
	}
}
