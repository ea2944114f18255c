// ============================================================================
// DAL Runtime
// ============================================================================
//
// Package:     runtime
// Description: Runtime value model
// Author:      Mike Stoffels
// Created:     2025-06-02
// License:     MIT
// ============================================================================

package runtime

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/msto63/dal/internal/ast"
)

// Kind identifies the variant held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindVector
	KindMap
	KindFunction
	KindInstance
	KindAgent
)

var kindNames = [...]string{
	KindNull:     "null",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindBool:     "bool",
	KindVector:   "vector",
	KindMap:      "map",
	KindFunction: "function",
	KindInstance: "service",
	KindAgent:    "agent",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a tagged union. Vectors, maps and instances are references:
// copying a Value shares the underlying container.
type Value struct {
	kind Kind
	data interface{}
}

// Null is the null value
var Null = Value{}

func Int(v int64) Value                  { return Value{kind: KindInt, data: v} }
func Float(v float64) Value              { return Value{kind: KindFloat, data: v} }
func String(v string) Value              { return Value{kind: KindString, data: v} }
func Bool(v bool) Value                  { return Value{kind: KindBool, data: v} }
func VectorOf(v *Vector) Value           { return Value{kind: KindVector, data: v} }
func MapOf(m *Map) Value                 { return Value{kind: KindMap, data: m} }
func FunctionOf(f *Function) Value       { return Value{kind: KindFunction, data: f} }
func InstanceOf(i *Instance) Value       { return Value{kind: KindInstance, data: i} }
func AgentOf(a *AgentHandle) Value       { return Value{kind: KindAgent, data: a} }
func NewVectorValue(items ...Value) Value { return VectorOf(NewVector(items...)) }

// Kind returns the variant
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt() (int64, bool) {
	i, ok := v.data.(int64)
	return i, ok && v.kind == KindInt
}

func (v Value) AsFloat() (float64, bool) {
	f, ok := v.data.(float64)
	return f, ok && v.kind == KindFloat
}

// AsNumber returns ints and floats as float64
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.data.(int64)), true
	case KindFloat:
		return v.data.(float64), true
	}
	return 0, false
}

func (v Value) AsString() (string, bool) {
	s, ok := v.data.(string)
	return s, ok && v.kind == KindString
}

func (v Value) AsBool() (bool, bool) {
	b, ok := v.data.(bool)
	return b, ok && v.kind == KindBool
}

func (v Value) AsVector() (*Vector, bool) {
	vec, ok := v.data.(*Vector)
	return vec, ok
}

func (v Value) AsMap() (*Map, bool) {
	m, ok := v.data.(*Map)
	return m, ok
}

func (v Value) AsFunction() (*Function, bool) {
	f, ok := v.data.(*Function)
	return f, ok
}

func (v Value) AsInstance() (*Instance, bool) {
	i, ok := v.data.(*Instance)
	return i, ok
}

func (v Value) AsAgent() (*AgentHandle, bool) {
	a, ok := v.data.(*AgentHandle)
	return a, ok
}

// TypeName returns the DAL type name; instances report their service name
func (v Value) TypeName() string {
	if inst, ok := v.AsInstance(); ok {
		return inst.Type
	}
	return v.kind.String()
}

// Truthy reports the boolean interpretation used by conditions
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.data.(bool)
	case KindInt:
		return v.data.(int64) != 0
	case KindFloat:
		return v.data.(float64) != 0
	case KindString:
		return v.data.(string) != ""
	case KindVector:
		return v.data.(*Vector).Len() > 0
	case KindMap:
		return v.data.(*Map).Len() > 0
	}
	return true
}

// Equal compares by value for scalars and by identity for references,
// except that an int and a float compare numerically.
func (v Value) Equal(o Value) bool {
	if a, ok := v.AsNumber(); ok {
		if b, ok := o.AsNumber(); ok {
			return a == b
		}
		return false
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString, KindBool:
		return v.data == o.data
	case KindAgent:
		return v.data.(*AgentHandle).ID == o.data.(*AgentHandle).ID
	}
	return v.data == o.data
}

// String renders v the way print shows it
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return strconv.FormatInt(v.data.(int64), 10)
	case KindFloat:
		return strconv.FormatFloat(v.data.(float64), 'g', -1, 64)
	case KindString:
		return v.data.(string)
	case KindBool:
		return strconv.FormatBool(v.data.(bool))
	case KindVector:
		items := v.data.(*Vector).Items()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.quoted()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		m := v.data.(*Map)
		keys := m.Keys()
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			item, _ := m.Get(k)
			parts = append(parts, k+": "+item.quoted())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindFunction:
		return "<fn " + v.data.(*Function).Name + ">"
	case KindInstance:
		inst := v.data.(*Instance)
		return "<" + inst.Type + " " + inst.ID + ">"
	case KindAgent:
		a := v.data.(*AgentHandle)
		return "<agent " + a.Name + " " + a.ID + ">"
	}
	return "?"
}

func (v Value) quoted() string {
	if s, ok := v.AsString(); ok {
		return strconv.Quote(s)
	}
	return v.String()
}

// Interface converts v to plain Go data for handlers, logging and JSON
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindNull:
		return nil
	case KindVector:
		items := v.data.(*Vector).Items()
		out := make([]interface{}, len(items))
		for i, item := range items {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		m := v.data.(*Map)
		out := make(map[string]interface{}, m.Len())
		for _, k := range m.Keys() {
			item, _ := m.Get(k)
			out[k] = item.Interface()
		}
		return out
	case KindFunction, KindInstance:
		return v.String()
	case KindAgent:
		return v.data.(*AgentHandle).ID
	}
	return v.data
}

// FromInterface converts plain Go data into a Value
func FromInterface(x interface{}) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case Value:
		return t
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return Int(int64(t))
	case uint32:
		return Int(int64(t))
	case uint64:
		return Int(int64(t))
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case string:
		return String(t)
	case []byte:
		return String(string(t))
	case bool:
		return Bool(t)
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return NewVectorValue(items...)
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromInterface(item)
		}
		return NewVectorValue(items...)
	case map[string]interface{}:
		m := NewMap()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, FromInterface(t[k]))
		}
		return MapOf(m)
	case map[string]string:
		m := NewMap()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, String(t[k]))
		}
		return MapOf(m)
	case fmt.Stringer:
		return String(t.String())
	}
	return String(fmt.Sprint(x))
}

// Vector is a growable, mutex-guarded list
type Vector struct {
	mu    sync.RWMutex
	items []Value
}

// NewVector creates a vector holding a copy of items
func NewVector(items ...Value) *Vector {
	return &Vector{items: append([]Value(nil), items...)}
}

func (v *Vector) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.items)
}

// Get returns the element at i; negative indices are not supported
func (v *Vector) Get(i int) (Value, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if i < 0 || i >= len(v.items) {
		return Null, false
	}
	return v.items[i], true
}

func (v *Vector) Set(i int, val Value) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i < 0 || i >= len(v.items) {
		return false
	}
	v.items[i] = val
	return true
}

func (v *Vector) Append(vals ...Value) {
	v.mu.Lock()
	v.items = append(v.items, vals...)
	v.mu.Unlock()
}

// Pop removes and returns the last element
func (v *Vector) Pop() (Value, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.items) == 0 {
		return Null, false
	}
	last := v.items[len(v.items)-1]
	v.items = v.items[:len(v.items)-1]
	return last, true
}

// Items returns a snapshot of the elements
func (v *Vector) Items() []Value {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Value(nil), v.items...)
}

// Map is an insertion-ordered, mutex-guarded string-keyed map
type Map struct {
	mu      sync.RWMutex
	keys    []string
	entries map[string]Value
}

func NewMap() *Map {
	return &Map{entries: make(map[string]Value)}
}

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

func (m *Map) Get(key string) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m *Map) Set(key string, v Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = v
}

// Delete removes key and reports whether it was present
func (m *Map) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		return false
	}
	delete(m.entries, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in insertion order
func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.keys...)
}

// Update applies fn to the current value of key under the map lock
func (m *Map) Update(key string, fn func(old Value, ok bool) (Value, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.entries[key]
	next, err := fn(old, ok)
	if err != nil {
		return err
	}
	if !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = next
	return nil
}

// NativeFunc implements a function in Go
type NativeFunc func(ctx context.Context, args []Value) (Value, error)

// Function is a DAL function, service method, closure or native builtin
type Function struct {
	Name       string
	Params     []ast.Param
	ReturnType string
	Body       *ast.BlockStatement
	Attributes ast.Attributes
	IsAsync    bool
	Closure    *Environment
	Service    *ast.ServiceStatement
	Native     NativeFunc
}

func newFunction(decl *ast.FunctionStatement, env *Environment, svc *ast.ServiceStatement) *Function {
	return &Function{
		Name:       decl.Name,
		Params:     decl.Params,
		ReturnType: decl.ReturnType,
		Body:       decl.Body,
		Attributes: decl.Attributes,
		IsAsync:    decl.IsAsync,
		Closure:    env,
		Service:    svc,
	}
}

// Instance is a service instance. Fields are guarded by the instance's
// own mutex; assignment statements that target a field additionally hold
// stmt for their whole read-modify-write.
type Instance struct {
	ID      string
	Type    string
	Service *ast.ServiceStatement

	mu     sync.Mutex
	fields map[string]Value
	order  []string

	stmt statementLock
}

func newInstance(id string, svc *ast.ServiceStatement) *Instance {
	return &Instance{
		ID:      id,
		Type:    svc.Name,
		Service: svc,
		fields:  make(map[string]Value),
	}
}

// Field returns a field value
func (i *Instance) Field(name string) (Value, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, ok := i.fields[name]
	return v, ok
}

// SetField writes a field value
func (i *Instance) SetField(name string, v Value) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.fields[name]; !ok {
		i.order = append(i.order, name)
	}
	i.fields[name] = v
}

// HasField reports whether the instance has a field called name
func (i *Instance) HasField(name string) bool {
	_, ok := i.Field(name)
	return ok
}

// Fields returns a snapshot of the fields in declaration order
func (i *Instance) Fields() *Map {
	i.mu.Lock()
	defer i.mu.Unlock()
	m := NewMap()
	for _, name := range i.order {
		m.Set(name, i.fields[name])
	}
	return m
}

// AgentHandle refers to a spawned agent
type AgentHandle struct {
	ID   string
	Name string
	Type string
}

// zeroValue derives a field's initial value from its declared type
func zeroValue(typ string) Value {
	t := strings.ToLower(strings.TrimSpace(typ))
	switch {
	case t == "int" || t == "i32" || t == "i64" || t == "u64" || t == "u256" || t == "uint" || t == "uint256":
		return Int(0)
	case t == "float" || t == "f64" || t == "f32":
		return Float(0)
	case t == "string" || t == "address":
		return String("")
	case t == "bool":
		return Bool(false)
	case strings.HasPrefix(t, "map"):
		return MapOf(NewMap())
	case strings.HasPrefix(t, "vec") || strings.HasPrefix(t, "list") || strings.HasPrefix(t, "["):
		return VectorOf(NewVector())
	}
	return Null
}
