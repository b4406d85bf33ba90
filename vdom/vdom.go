// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package vdom

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/tsunami-engine/tsunami/util"
)

// ReactNode types = nil | string | Elem

type Component[P any] func(props P) *VDomElem

func (e *VDomElem) Key() string {
	keyVal, ok := e.Props[KeyPropKey]
	if !ok {
		return ""
	}
	keyStr, ok := keyVal.(string)
	if ok {
		return keyStr
	}
	return ""
}

func (e *VDomElem) WithKey(key string) *VDomElem {
	if e == nil {
		return nil
	}
	if e.Props == nil {
		e.Props = make(map[string]any)
	}
	e.Props[KeyPropKey] = key
	return e
}

func TextElem(text string) VDomElem {
	return VDomElem{Tag: TextTag, Text: text}
}

// Classes joins a variadic list of class-name fragments, skipping empties and
// nils. Useful for building a conditional className prop.
func Classes(classes ...any) string {
	var parts []string
	for _, class := range classes {
		switch c := class.(type) {
		case nil:
			continue
		case string:
			if c != "" {
				parts = append(parts, c)
			}
		}
		// Ignore any other types
	}
	return strings.Join(parts, " ")
}

// H is the primary element builder: H("div", props, child1, child2, ...).
// Children are normalized through PartToElems so strings, elements, slices,
// and nested []any are all accepted.
func H(tag string, props map[string]any, children ...any) *VDomElem {
	rtn := &VDomElem{Tag: tag, Props: props}
	if len(children) > 0 {
		for _, part := range children {
			elems := PartToElems(part)
			rtn.Children = append(rtn.Children, elems...)
		}
	}
	return rtn
}

func If(cond bool, part any) any {
	if cond {
		return part
	}
	return nil
}

func IfElse(cond bool, part any, elsePart any) any {
	if cond {
		return part
	}
	return elsePart
}

func Ternary[T any](cond bool, trueRtn T, falseRtn T) T {
	if cond {
		return trueRtn
	}
	return falseRtn
}

// ForEach maps a slice into VDOM parts, mirroring .map() in the original
// React-oriented ecosystem. Callers typically .WithKey() each result.
func ForEach[T any](items []T, fn func(T, int) any) []any {
	elems := make([]any, 0, len(items))
	for idx, item := range items {
		elems = append(elems, fn(item, idx))
	}
	return elems
}

// Props converts a typed props struct into the map[string]any shape H()
// expects, round-tripping through JSON so field tags control the wire names.
func Props(props any) map[string]any {
	m, err := util.StructToMap(props)
	if err != nil {
		return nil
	}
	return m
}

// ToElems normalizes a component's return value (nil, a string, an element,
// or a slice of them) into a flat list of elements.
func ToElems(part any) []VDomElem {
	return PartToElems(part)
}

func PartToElems(part any) []VDomElem {
	if part == nil {
		return nil
	}
	switch partTyped := part.(type) {
	case string:
		return []VDomElem{TextElem(partTyped)}
	case VDomElem:
		return []VDomElem{partTyped}
	case *VDomElem:
		if partTyped == nil {
			return nil
		}
		return []VDomElem{*partTyped}
	case []VDomElem:
		return partTyped
	case []*VDomElem:
		var rtn []VDomElem
		for _, elem := range partTyped {
			if elem != nil {
				rtn = append(rtn, *elem)
			}
		}
		return rtn
	case []any:
		var rtn []VDomElem
		for _, subPart := range partTyped {
			rtn = append(rtn, PartToElems(subPart)...)
		}
		return rtn
	default:
		partVal := reflect.ValueOf(part)
		if partVal.Kind() == reflect.Slice {
			var rtn []VDomElem
			for i := 0; i < partVal.Len(); i++ {
				rtn = append(rtn, PartToElems(partVal.Index(i).Interface())...)
			}
			return rtn
		}
		strVal, ok := util.NumToString(part)
		if ok {
			return []VDomElem{TextElem(strVal)}
		}
		return nil
	}
}

// IsBaseTag reports whether tag names a base/DOM node (as opposed to a
// custom, uppercase-led component tag). Fragments, #-prefixed special tags,
// and lowercase HTML tag names are all base tags.
func IsBaseTag(tag string) bool {
	if tag == "" {
		return false
	}
	if tag == TextTag || tag == WaveTextTag || tag == WaveNullTag || tag == FragmentTag {
		return true
	}
	if tag[0] == '#' {
		return true
	}
	firstChar := rune(tag[0])
	return unicode.IsLower(firstChar)
}
