package sched

import "sync"

// Kind discriminates the payload of a state Value.
type Kind uint8

// Supported payload kinds.
const (
	KindNone Kind = iota
	KindFloat
	KindInt
	KindBool
	KindString
)

// Value is a typed box in the task state store. Boxes are allocated once
// per key and never move, so a *Value stays valid for the lifetime of its
// task, across suspension boundaries and store growth.
//
// Accessors are type-checked: a getter returns false when the stored kind
// does not match the requested one.
type Value struct {
	mu   sync.RWMutex
	kind Kind
	f    float64
	i    int64
	b    bool
	s    string
}

// NewFloat returns a float64 value.
func NewFloat(f float64) *Value {
	return &Value{kind: KindFloat, f: f}
}

// NewInt returns an int64 value.
func NewInt(i int64) *Value {
	return &Value{kind: KindInt, i: i}
}

// NewBool returns a bool value.
func NewBool(b bool) *Value {
	return &Value{kind: KindBool, b: b}
}

// NewString returns a string value.
func NewString(s string) *Value {
	return &Value{kind: KindString, s: s}
}

// Kind returns the kind of the stored payload.
func (v *Value) Kind() Kind {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.kind
}

// Float returns the stored float64, false on kind mismatch.
func (v *Value) Float() (float64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.f, v.kind == KindFloat
}

// Int returns the stored int64, false on kind mismatch.
func (v *Value) Int() (int64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.i, v.kind == KindInt
}

// Bool returns the stored bool, false on kind mismatch.
func (v *Value) Bool() (bool, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.b, v.kind == KindBool
}

// Text returns the stored string, false on kind mismatch.
func (v *Value) Text() (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.s, v.kind == KindString
}

// SetFloat stores a float64 in place.
func (v *Value) SetFloat(f float64) {
	v.mu.Lock()
	v.kind, v.f = KindFloat, f
	v.mu.Unlock()
}

// SetInt stores an int64 in place.
func (v *Value) SetInt(i int64) {
	v.mu.Lock()
	v.kind, v.i = KindInt, i
	v.mu.Unlock()
}

// SetBool stores a bool in place.
func (v *Value) SetBool(b bool) {
	v.mu.Lock()
	v.kind, v.b = KindBool, b
	v.mu.Unlock()
}

// SetString stores a string in place.
func (v *Value) SetString(s string) {
	v.mu.Lock()
	v.kind, v.s = KindString, s
	v.mu.Unlock()
}

// set copies the payload of src into v, keeping the box stable.
func (v *Value) set(src *Value) {
	src.mu.RLock()
	kind, f, i, b, s := src.kind, src.f, src.i, src.b, src.s
	src.mu.RUnlock()
	v.mu.Lock()
	v.kind, v.f, v.i, v.b, v.s = kind, f, i, b, s
	v.mu.Unlock()
}
