// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"unicode"

	"github.com/google/uuid"
	"github.com/tsunami-engine/tsunami/rpctypes"
	"github.com/tsunami-engine/tsunami/util"
	"github.com/tsunami-engine/tsunami/vdom"
)

// see render.md for a complete guide to how tsunami rendering, lifecycle, and reconciliation works

type RenderOpts struct {
	Resync bool
}

func (r *RootElem) Render(elem *vdom.VDomElem, opts *RenderOpts) {
	r.render(elem, &r.Root, opts)
}

func getElemKey(elem *vdom.VDomElem) string {
	if elem == nil {
		return ""
	}
	keyVal, ok := elem.Props[vdom.KeyPropKey]
	if !ok {
		return ""
	}
	return fmt.Sprint(keyVal)
}

func (r *RootElem) render(elem *vdom.VDomElem, comp **ComponentImpl, opts *RenderOpts) {
	if elem == nil || elem.Tag == "" {
		r.unmount(comp)
		return
	}
	elemKey := getElemKey(elem)
	if *comp == nil || !(*comp).compMatch(elem.Tag, elemKey) {
		r.unmount(comp)
		r.createComp(elem.Tag, elemKey, comp)
	}
	oldElem := (*comp).Elem
	(*comp).Elem = elem
	if elem.Tag == vdom.TextTag {
		// Pattern 1: Text Nodes
		r.renderText(elem.Text, comp)
		return
	}
	if isBaseTag(elem.Tag) {
		// Pattern 2: Base elements
		r.renderSimple(elem, oldElem, comp, opts)
		return
	}
	cfunc := r.CFuncs[elem.Tag]
	if cfunc == nil {
		text := fmt.Sprintf("<%s>", elem.Tag)
		r.renderText(text, comp)
		return
	}
	// Pattern 3: components
	r.renderComponent(cfunc, elem, comp, opts)
}

// Pattern 1
func (r *RootElem) renderText(text string, comp **ComponentImpl) {
	// No need to clear Children/Comp - text components cannot have them
	if (*comp).Text != text {
		(*comp).Text = text
		(*comp).Dirty = true
	}
}

// Pattern 2
func (r *RootElem) renderSimple(elem *vdom.VDomElem, oldElem *vdom.VDomElem, comp **ComponentImpl, opts *RenderOpts) {
	if (*comp).RenderedComp != nil {
		// Clear Comp since base elements don't use it
		r.unmount(&(*comp).RenderedComp)
	}
	oldChildren := (*comp).Children
	newChildren := r.renderChildren(elem.Children, oldChildren, opts)
	var oldProps map[string]any
	if oldElem != nil {
		oldProps = oldElem.Props
	}
	if !propsSerializeEqual(oldProps, elem.Props) || !childrenIdentityEqual(oldChildren, newChildren) {
		(*comp).Dirty = true
	}
	(*comp).Children = newChildren
}

// propsSerializeEqual reports whether oldProps and newProps would produce the
// same wire payload via convertPropsToVDom. Go closures get a fresh identity
// on every render but collapse to the same opaque placeholder on the wire, so
// they compare equal here even when the underlying func value differs.
func propsSerializeEqual(oldProps, newProps map[string]any) bool {
	return reflect.DeepEqual(normalizePropsForCompare(oldProps), normalizePropsForCompare(newProps))
}

func normalizePropsForCompare(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	out := make(map[string]any, len(props))
	for k, v := range props {
		if v == nil {
			continue
		}
		if vdomFunc, ok := v.(vdom.VDomFunc); ok {
			vdomFunc.Fn = nil
			vdomFunc.Type = vdom.ObjectType_Func
			out[k] = vdomFunc
			continue
		}
		if vdomRef, ok := v.(vdom.VDomRef); ok {
			vdomRef.Type = vdom.ObjectType_Ref
			out[k] = vdomRef
			continue
		}
		if reflect.ValueOf(v).Kind() == reflect.Func {
			out[k] = vdom.VDomFunc{Type: vdom.ObjectType_Func}
			continue
		}
		out[k] = v
	}
	return out
}

// childrenIdentityEqual reports whether newChildren is the same sequence of
// ComponentImpl nodes as oldChildren (same pointers, same order). A mismatch
// means a child was added, removed, or reordered, which changes this node's
// own serialized Children list even if none of the surviving children's own
// content changed.
func childrenIdentityEqual(oldChildren, newChildren []*ComponentImpl) bool {
	if len(oldChildren) != len(newChildren) {
		return false
	}
	for i := range oldChildren {
		if oldChildren[i] != newChildren[i] {
			return false
		}
	}
	return true
}

// Pattern 3
func (r *RootElem) renderComponent(cfunc any, elem *vdom.VDomElem, comp **ComponentImpl, opts *RenderOpts) {
	if (*comp).Children != nil {
		// Clear Children since custom components don't use them
		for _, child := range (*comp).Children {
			r.unmount(&child)
		}
		(*comp).Children = nil
	}
	props := make(map[string]any)
	for k, v := range elem.Props {
		props[k] = v
	}
	props[ChildrenPropKey] = elem.Children
	vc := makeContextVal(r, *comp, opts)
	rtnElemArr := r.renderComponentSafe(vc, cfunc, elem.Tag, props)
	oldUsedAtoms := (*comp).UsedAtoms
	// Dirty is intentionally not set here: convertCompToRendered forwards a
	// component node straight to its RenderedComp, so this node's own
	// serialized output is entirely determined by whatever the recursive
	// r.render call below marks dirty further down the tree.
	(*comp).UsedAtoms = vc.UsedAtoms
	r.reconcileUsedAtoms(*comp, oldUsedAtoms)
	var rtnElem *vdom.VDomElem
	if len(rtnElemArr) == 0 {
		rtnElem = nil
	} else if len(rtnElemArr) == 1 {
		rtnElem = &rtnElemArr[0]
	} else {
		rtnElem = &vdom.VDomElem{Tag: vdom.FragmentTag, Children: rtnElemArr}
	}
	r.render(rtnElem, &(*comp).RenderedComp, opts)
}

// renderComponentSafe invokes a component function under the render context,
// recovering any panic into an error-card element instead of aborting the
// whole render pass (see render.md failure semantics).
func (r *RootElem) renderComponentSafe(vc *RenderContextImpl, cfunc any, tag string, props map[string]any) (rtnElemArr []vdom.VDomElem) {
	defer func() {
		if recoverVal := recover(); recoverVal != nil {
			log.Printf("[panic] in component %q: %v\n", tag, recoverVal)
			errElem := renderErrorComponent(tag, fmt.Sprintf("%v", recoverVal))
			rtnElemArr = vdom.ToElems(errElem)
		}
	}()
	return withGlobalCtx(vc, func() []vdom.VDomElem {
		ctx := r.OuterCtx
		if ctx == nil {
			ctx = context.Background()
		}
		renderedElem := callCFunc(cfunc, ctx, props)
		return vdom.ToElems(renderedElem)
	})
}

// reconcileUsedAtoms updates each atom's usedBy set to reflect comp's latest
// render: atoms read in oldUsedAtoms but not in comp.UsedAtoms are cleared,
// newly read atoms are marked.
func (r *RootElem) reconcileUsedAtoms(comp *ComponentImpl, oldUsedAtoms map[string]bool) {
	for atomName := range comp.UsedAtoms {
		r.AtomSetUsedBy(atomName, comp.WaveId, true)
	}
	for atomName := range oldUsedAtoms {
		if !comp.UsedAtoms[atomName] {
			r.AtomSetUsedBy(atomName, comp.WaveId, false)
		}
	}
}

func (r *RootElem) unmount(comp **ComponentImpl) {
	if *comp == nil {
		return
	}
	waveId := (*comp).WaveId
	for _, hook := range (*comp).Hooks {
		if hook.UnmountFn != nil {
			hook.UnmountFn()
		}
	}
	if (*comp).RenderedComp != nil {
		r.unmount(&(*comp).RenderedComp)
	}
	if (*comp).Children != nil {
		for _, child := range (*comp).Children {
			r.unmount(&child)
		}
	}
	delete(r.CompMap, waveId)
	r.cleanupUsedByForUnmount(waveId)
	*comp = nil
}

func (r *RootElem) createComp(tag string, key string, comp **ComponentImpl) {
	*comp = &ComponentImpl{WaveId: uuid.New().String(), Tag: tag, Key: key}
	r.CompMap[(*comp).WaveId] = *comp
}

// handles reconcilation
// maps children via key or index (exclusively)
func (r *RootElem) renderChildren(elems []vdom.VDomElem, curChildren []*ComponentImpl, opts *RenderOpts) []*ComponentImpl {
	newChildren := make([]*ComponentImpl, len(elems))
	curCM := make(map[ChildKey]*ComponentImpl)
	usedMap := make(map[*ComponentImpl]bool)
	for idx, child := range curChildren {
		if child.Key != "" {
			curCM[ChildKey{Tag: child.Tag, Idx: 0, Key: child.Key}] = child
		} else {
			curCM[ChildKey{Tag: child.Tag, Idx: idx, Key: ""}] = child
		}
	}
	for idx, elem := range elems {
		elemKey := getElemKey(&elem)
		var curChild *ComponentImpl
		if elemKey != "" {
			curChild = curCM[ChildKey{Tag: elem.Tag, Idx: 0, Key: elemKey}]
		} else {
			curChild = curCM[ChildKey{Tag: elem.Tag, Idx: idx, Key: ""}]
		}
		usedMap[curChild] = true
		newChildren[idx] = curChild
		r.render(&elem, &newChildren[idx], opts)
	}
	for _, child := range curChildren {
		if !usedMap[child] {
			r.unmount(&child)
		}
	}
	return newChildren
}

// uses reflection to call the component function
func callCFunc(cfunc any, ctx context.Context, props map[string]any) any {
	rval := reflect.ValueOf(cfunc)
	arg2Type := rval.Type().In(1)

	var arg2Val reflect.Value
	if arg2Type.Kind() == reflect.Interface && arg2Type.NumMethod() == 0 {
		arg2Val = reflect.New(arg2Type)
	} else {
		arg2Val = reflect.New(arg2Type)
		if arg2Type.Kind() == reflect.Map {
			arg2Val.Elem().Set(reflect.ValueOf(props))
		} else {
			err := util.MapToStruct(props, arg2Val.Interface())
			if err != nil {
				fmt.Printf("error unmarshalling props: %v\n", err)
			}
		}
	}
	rtnVal := rval.Call([]reflect.Value{reflect.ValueOf(ctx), arg2Val.Elem()})
	if len(rtnVal) == 0 {
		return nil
	}
	return rtnVal[0].Interface()
}

func convertPropsToVDom(props map[string]any) map[string]any {
	if len(props) == 0 {
		return nil
	}
	vdomProps := make(map[string]any)
	for k, v := range props {
		if v == nil {
			continue
		}
		if vdomFunc, ok := v.(vdom.VDomFunc); ok {
			// ensure Type is set on all VDomFuncs
			vdomFunc.Type = vdom.ObjectType_Func
			vdomProps[k] = vdomFunc
			continue
		}
		if vdomRef, ok := v.(vdom.VDomRef); ok {
			// ensure Type is set on all VDomRefs
			vdomRef.Type = vdom.ObjectType_Ref
			vdomProps[k] = vdomRef
			continue
		}
		val := reflect.ValueOf(v)
		if val.Kind() == reflect.Func {
			// convert go functions passed to event handlers to VDomFuncs
			vdomProps[k] = vdom.VDomFunc{Type: vdom.ObjectType_Func}
			continue
		}
		vdomProps[k] = v
	}
	return vdomProps
}

func (r *RootElem) MakeRendered() *rpctypes.RenderedElem {
	if r.Root == nil {
		return nil
	}
	return r.convertCompToRendered(r.Root)
}

// MakeIncrementalRenderUpdates walks the shadow tree collecting a "replace"
// update for each dirty component subtree, then clears the Dirty flags it
// consumed. A component is only reported once: if an ancestor is dirty its
// subtree already captures any dirty descendants, so we don't descend into
// them as a separate update (but we still clear their flags).
func (r *RootElem) MakeIncrementalRenderUpdates() []rpctypes.VDomRenderUpdate {
	if r.Root == nil {
		return nil
	}
	var updates []rpctypes.VDomRenderUpdate
	r.collectDirtyUpdates(r.Root, &updates)
	return updates
}

func (r *RootElem) collectDirtyUpdates(c *ComponentImpl, updates *[]rpctypes.VDomRenderUpdate) {
	if c == nil {
		return
	}
	if c.Dirty {
		if rendered := r.convertCompToRendered(c); rendered != nil {
			*updates = append(*updates, rpctypes.VDomRenderUpdate{
				UpdateType: "replace",
				WaveId:     rendered.WaveId,
				VDom:       rendered,
			})
		}
		r.clearDirtyRecursive(c)
		return
	}
	if c.RenderedComp != nil {
		r.collectDirtyUpdates(c.RenderedComp, updates)
	}
	for _, child := range c.Children {
		r.collectDirtyUpdates(child, updates)
	}
}

// ClearAllDirty clears the Dirty flag across the whole shadow tree. Called
// after a full render, whose single snapshot already covers every node that
// would otherwise be queued for the next incremental update.
func (r *RootElem) ClearAllDirty() {
	r.clearDirtyRecursive(r.Root)
}

func (r *RootElem) clearDirtyRecursive(c *ComponentImpl) {
	if c == nil {
		return
	}
	c.Dirty = false
	if c.RenderedComp != nil {
		r.clearDirtyRecursive(c.RenderedComp)
	}
	for _, child := range c.Children {
		r.clearDirtyRecursive(child)
	}
}

func (r *RootElem) convertCompToRendered(c *ComponentImpl) *rpctypes.RenderedElem {
	if c == nil {
		return nil
	}
	if c.RenderedComp != nil {
		return r.convertCompToRendered(c.RenderedComp)
	}
	if len(c.Children) == 0 && r.CFuncs[c.Tag] != nil {
		return nil
	}
	return r.convertBaseToRendered(c)
}

func (r *RootElem) convertBaseToRendered(c *ComponentImpl) *rpctypes.RenderedElem {
	elem := &rpctypes.RenderedElem{WaveId: c.WaveId, Tag: c.Tag}
	if c.Elem != nil {
		elem.Props = convertPropsToVDom(c.Elem.Props)
	}
	for _, child := range c.Children {
		childElem := r.convertCompToRendered(child)
		if childElem != nil {
			elem.Children = append(elem.Children, *childElem)
		}
	}
	if c.Tag == vdom.TextTag {
		elem.Text = c.Text
	}
	return elem
}

func isBaseTag(tag string) bool {
	if tag == "" {
		return false
	}
	if tag == vdom.TextTag || tag == vdom.WaveTextTag || tag == vdom.WaveNullTag || tag == vdom.FragmentTag {
		return true
	}
	if tag[0] == '#' {
		return true
	}
	firstChar := rune(tag[0])
	return unicode.IsLower(firstChar)
}
