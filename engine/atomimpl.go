// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// AtomMeta carries optional schema-export metadata for a config/data atom:
// human-facing description plus validation/display hints. Overlaid on top of
// the atom's own declared Go type when generating a JSON Schema (schema.go).
type AtomMeta struct {
	Description string
	Units       string
	Min         *float64
	Max         *float64
	Enum        []string
	Pattern     string
}

// atomImpl is a strongly-typed reactive cell: a value guarded by its own
// lock, a set of component waveIds that read it during their last render
// (usedBy), and optional schema metadata. It satisfies the genAtom interface
// used by RootElem.
type atomImpl struct {
	lock     sync.Mutex
	val      any
	atomType reflect.Type
	meta     *AtomMeta
	usedBy   map[string]bool // component waveid -> true
}

// MakeAtomImpl constructs an atom seeded with initialVal. The atom's
// declared type is fixed at construction time (reflect.TypeOf(initialVal)),
// and all future values are adapted to match it.
func MakeAtomImpl(initialVal any, meta *AtomMeta) *atomImpl {
	var t reflect.Type
	if initialVal != nil {
		t = reflect.TypeOf(initialVal)
	}
	return &atomImpl{
		val:      initialVal,
		atomType: t,
		meta:     meta,
		usedBy:   make(map[string]bool),
	}
}

func (a *atomImpl) GetVal() any {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.val
}

// adaptVal converts rawVal to match the atom's declared type. Path:
// (1) nil resets to the type's zero value, (2) direct assignment if rawVal
// already matches, (3) otherwise round-trip through JSON. A type mismatch
// that survives round-trip is an error.
func (a *atomImpl) adaptVal(rawVal any) (any, error) {
	if a.atomType == nil {
		return rawVal, nil
	}
	if rawVal == nil {
		return reflect.Zero(a.atomType).Interface(), nil
	}
	if reflect.TypeOf(rawVal) == a.atomType {
		return rawVal, nil
	}
	data, err := json.Marshal(rawVal)
	if err != nil {
		return nil, fmt.Errorf("cannot adapt value of type %T to %s: %w", rawVal, a.atomType, err)
	}
	target := reflect.New(a.atomType)
	if err := json.Unmarshal(data, target.Interface()); err != nil {
		return nil, fmt.Errorf("value of type %T is not assignable to atom type %s: %w", rawVal, a.atomType, err)
	}
	return target.Elem().Interface(), nil
}

func (a *atomImpl) SetVal(rawVal any) error {
	newVal, err := a.adaptVal(rawVal)
	if err != nil {
		return err
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	a.val = newVal
	return nil
}

// SetFnVal applies fn to the current value and stores the (adapted) result.
func (a *atomImpl) SetFnVal(fn func(any) any) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	updated := fn(a.val)
	newVal, err := a.adaptVal(updated)
	if err != nil {
		return err
	}
	a.val = newVal
	return nil
}

func (a *atomImpl) SetUsedBy(waveId string, used bool) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if used {
		a.usedBy[waveId] = true
	} else {
		delete(a.usedBy, waveId)
	}
}

func (a *atomImpl) GetUsedBy() []string {
	a.lock.Lock()
	defer a.lock.Unlock()
	rtn := make([]string, 0, len(a.usedBy))
	for waveId := range a.usedBy {
		rtn = append(rtn, waveId)
	}
	return rtn
}

func (a *atomImpl) GetMeta() *AtomMeta {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.meta
}

func (a *atomImpl) GetAtomType() reflect.Type {
	return a.atomType
}

// CreateAtom registers a new top-level atom (config/data/shared) on client's
// root, with optional schema metadata. Generic methods aren't legal Go, so
// this is a free function taking the client explicitly.
func CreateAtom[T any](client *ClientImpl, name string, defaultValue T, meta *AtomMeta) {
	atom := MakeAtomImpl(defaultValue, meta)
	client.Root.RegisterAtom(name, atom)
}
