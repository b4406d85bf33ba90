// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"reflect"
	"testing"
)

type tagStruct struct {
	Name    string `json:"name"`
	Hidden  string `json:"-"`
	Bare    string
	Opt     string `json:"opt,omitempty"`
	AsStr   int    `json:"asstr,string"`
}

func TestParseJSONTag(t *testing.T) {
	typ := reflect.TypeOf(tagStruct{})

	info, ok := ParseJSONTag(typ.Field(0))
	if !ok || info.FieldName != "name" {
		t.Fatalf("expected field name 'name', got %+v ok=%v", info, ok)
	}

	_, ok = ParseJSONTag(typ.Field(1))
	if ok {
		t.Fatalf("json:\"-\" field should be excluded")
	}

	info, ok = ParseJSONTag(typ.Field(2))
	if !ok || info.FieldName != "Bare" {
		t.Fatalf("untagged field should fall back to its Go name, got %+v", info)
	}

	info, ok = ParseJSONTag(typ.Field(3))
	if !ok || info.FieldName != "opt" || !info.OmitEmpty {
		t.Fatalf("expected omitempty opt field, got %+v", info)
	}

	info, ok = ParseJSONTag(typ.Field(4))
	if !ok || info.FieldName != "asstr" || !info.AsString {
		t.Fatalf("expected string-encoded asstr field, got %+v", info)
	}
}

func TestStructToMap(t *testing.T) {
	m, err := StructToMap(tagStruct{Name: "alice", Bare: "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["name"] != "alice" {
		t.Fatalf("expected name=alice, got %v", m["name"])
	}
	if _, has := m["Hidden"]; has {
		t.Fatalf("json:\"-\" field should not appear in map")
	}

	// a map input should pass through unchanged
	orig := map[string]any{"x": 1}
	m2, err := StructToMap(orig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m2["x"] != 1 {
		t.Fatalf("expected passthrough map, got %v", m2)
	}

	if m3, err := StructToMap(nil); err != nil || m3 != nil {
		t.Fatalf("expected nil,nil for nil input, got %v, %v", m3, err)
	}
}

func TestGetTypedAtomValue(t *testing.T) {
	if got := GetTypedAtomValue[string](nil, "x"); got != "" {
		t.Fatalf("expected zero value for nil, got %q", got)
	}
	if got := GetTypedAtomValue[int](float64(42), "x"); got != 42 {
		t.Fatalf("expected float64->int conversion to 42, got %d", got)
	}
	if got := GetTypedAtomValue[string]("hello", "x"); got != "hello" {
		t.Fatalf("expected direct passthrough, got %q", got)
	}
}

func TestGetTypedAtomValuePanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on type mismatch")
		}
	}()
	GetTypedAtomValue[int]("not an int", "badatom")
}
