// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"sync"

	"github.com/outrigdev/goid"
	"github.com/tsunami-engine/tsunami/vdom"
)

// The engine tracks, per goroutine, which of four context kinds is currently
// active: render, event, effect, or (by absence of the other three) async.
// Hooks and atom writes call GetGlobalContext/InContextType to decide
// whether they're being invoked legally and whether a write needs to notify
// the async batcher (only async writes do - see asyncnotify.go).

type ContextKind string

const (
	ContextKindRender ContextKind = "render"
	ContextKindEvent  ContextKind = "event"
	ContextKindEffect ContextKind = "effect"
	ContextKindAsync  ContextKind = "async"
)

var globalCtxMutex sync.Mutex

// is set ONLY when we're in the render function of a component
// used for hooks, and automatic dependency tracking
var globalRenderContext *RenderContextImpl
var globalRenderGoId uint64

var globalEventContext *EventContextImpl
var globalEventGoId uint64

var globalEffectContext *EffectContextImpl
var globalEffectGoId uint64

type EventContextImpl struct {
	Event vdom.VDomEvent
}

// EffectContextImpl marks the goroutine running an effect's cleanup or run
// phase (see asyncnotify.go / rootelem.go RunWork).
type EffectContextImpl struct {
	WaveId string
	Phase  string // "cleanup" | "run"
}

func setGlobalRenderContext(vc *RenderContextImpl) {
	globalCtxMutex.Lock()
	defer globalCtxMutex.Unlock()
	globalRenderContext = vc
	globalRenderGoId = goid.Get()
}

func clearGlobalRenderContext() {
	globalCtxMutex.Lock()
	defer globalCtxMutex.Unlock()
	globalRenderContext = nil
	globalRenderGoId = 0
}

func withGlobalCtx[T any](vc *RenderContextImpl, fn func() T) T {
	setGlobalRenderContext(vc)
	defer clearGlobalRenderContext()
	return fn()
}

func GetGlobalContext() *RenderContextImpl {
	globalCtxMutex.Lock()
	defer globalCtxMutex.Unlock()
	gid := goid.Get()
	if gid != globalRenderGoId {
		return nil
	}
	return globalRenderContext
}

func setGlobalEventContext(ec *EventContextImpl) {
	globalCtxMutex.Lock()
	defer globalCtxMutex.Unlock()
	globalEventContext = ec
	globalEventGoId = goid.Get()
}

func clearGlobalEventContext() {
	globalCtxMutex.Lock()
	defer globalCtxMutex.Unlock()
	globalEventContext = nil
	globalEventGoId = 0
}

func withGlobalEventCtx[T any](ec *EventContextImpl, fn func() T) T {
	setGlobalEventContext(ec)
	defer clearGlobalEventContext()
	return fn()
}

func GetGlobalEventContext() *EventContextImpl {
	globalCtxMutex.Lock()
	defer globalCtxMutex.Unlock()
	gid := goid.Get()
	if gid != globalEventGoId {
		return nil
	}
	return globalEventContext
}

func setGlobalEffectContext(ec *EffectContextImpl) {
	globalCtxMutex.Lock()
	defer globalCtxMutex.Unlock()
	globalEffectContext = ec
	globalEffectGoId = goid.Get()
}

func clearGlobalEffectContext() {
	globalCtxMutex.Lock()
	defer globalCtxMutex.Unlock()
	globalEffectContext = nil
	globalEffectGoId = 0
}

func withGlobalEffectCtx[T any](ec *EffectContextImpl, fn func() T) T {
	setGlobalEffectContext(ec)
	defer clearGlobalEffectContext()
	return fn()
}

func GetGlobalEffectContext() *EffectContextImpl {
	globalCtxMutex.Lock()
	defer globalCtxMutex.Unlock()
	gid := goid.Get()
	if gid != globalEffectGoId {
		return nil
	}
	return globalEffectContext
}

// InContextType reports which of the four context kinds the calling
// goroutine is currently executing under. A goroutine matching none of the
// render/event/effect markers is considered "async" - this is the only
// consumer that needs to self-identify (it decides whether an atom write
// must poke the async-notify batcher).
func InContextType() ContextKind {
	globalCtxMutex.Lock()
	gid := goid.Get()
	isRender := gid == globalRenderGoId && globalRenderContext != nil
	isEvent := gid == globalEventGoId && globalEventContext != nil
	isEffect := gid == globalEffectGoId && globalEffectContext != nil
	globalCtxMutex.Unlock()
	switch {
	case isRender:
		return ContextKindRender
	case isEvent:
		return ContextKindEvent
	case isEffect:
		return ContextKindEffect
	default:
		return ContextKindAsync
	}
}
