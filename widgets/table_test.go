// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package widgets

import "testing"

type person struct {
	Name string
	Age  int
}

func TestGetFieldValueWithReflection(t *testing.T) {
	p := person{Name: "Alice", Age: 30}
	if v := getFieldValueWithReflection(p, "Name"); v != "Alice" {
		t.Fatalf("expected Alice, got %v", v)
	}
	if v := getFieldValueWithReflection(&p, "Age"); v != 30 {
		t.Fatalf("expected 30, got %v", v)
	}
	if v := getFieldValueWithReflection(map[string]any{"Name": "Bob"}, "Name"); v != "Bob" {
		t.Fatalf("expected Bob from map, got %v", v)
	}
	if v := getFieldValueWithReflection(nil, "Name"); v != nil {
		t.Fatalf("expected nil for nil item, got %v", v)
	}
	if v := getFieldValueWithReflection(p, "NoSuchField"); v != nil {
		t.Fatalf("expected nil for missing field, got %v", v)
	}
}

func TestSortData(t *testing.T) {
	people := []person{
		{Name: "Carol", Age: 22},
		{Name: "Alice", Age: 30},
		{Name: "Bob", Age: 25},
	}
	col := TableColumn[person]{AccessorKey: "Name"}

	asc := sortData(people, col, "asc")
	if asc[0].Name != "Alice" || asc[1].Name != "Bob" || asc[2].Name != "Carol" {
		t.Fatalf("unexpected ascending sort: %+v", asc)
	}

	desc := sortData(people, col, "desc")
	if desc[0].Name != "Carol" || desc[2].Name != "Alice" {
		t.Fatalf("unexpected descending sort: %+v", desc)
	}

	// original slice must be untouched
	if people[0].Name != "Carol" {
		t.Fatalf("sortData must not mutate its input, got %+v", people)
	}
}

func TestSortDataNoAccessorIsNoop(t *testing.T) {
	people := []person{{Name: "Carol"}, {Name: "Alice"}}
	col := TableColumn[person]{}
	result := sortData(people, col, "asc")
	if result[0].Name != "Carol" {
		t.Fatalf("expected no-op sort when column has no accessor, got %+v", result)
	}
}

func TestPaginateData(t *testing.T) {
	data := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	page0 := paginateData(data, &PaginationConfig{PageSize: 3, CurrentPage: 0})
	if len(page0) != 3 || page0[0] != 0 || page0[2] != 2 {
		t.Fatalf("unexpected page 0: %v", page0)
	}

	page3 := paginateData(data, &PaginationConfig{PageSize: 3, CurrentPage: 3})
	if len(page3) != 1 || page3[0] != 9 {
		t.Fatalf("expected partial last page [9], got %v", page3)
	}

	beyond := paginateData(data, &PaginationConfig{PageSize: 3, CurrentPage: 10})
	if len(beyond) != 0 {
		t.Fatalf("expected empty page past the end, got %v", beyond)
	}

	if out := paginateData(data, nil); len(out) != len(data) {
		t.Fatalf("nil config should return data unchanged")
	}
}

func TestFindColumnByKey(t *testing.T) {
	cols := []TableColumn[person]{
		{AccessorKey: "Name"},
		{AccessorKey: "Age"},
	}
	if col := findColumnByKey(cols, "Age"); col == nil || col.AccessorKey != "Age" {
		t.Fatalf("expected to find Age column, got %v", col)
	}
	if col := findColumnByKey(cols, "Missing"); col != nil {
		t.Fatalf("expected nil for missing column, got %v", col)
	}
}
