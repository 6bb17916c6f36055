package jsliteral

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Node is one literal value. The implementations are Object, Array, String,
// Number, Bool and Null.
type Node interface {
	literal()
}

// Property is one key/value pair of an Object.
type Property struct {
	Key   string
	Value Node
}

// Object is an ordered object literal.
type Object []Property

// Array is an array literal.
type Array []Node

// String is a string literal.
type String string

// Number holds the source text of a numeric literal.
type Number string

// Bool is a boolean literal.
type Bool bool

// Null is the null literal.
type Null struct{}

func (Object) literal() {}
func (Array) literal()  {}
func (String) literal() {}
func (Number) literal() {}
func (Bool) literal()   {}
func (Null) literal()   {}

// Int returns the literal for an integer.
func Int(v int64) Number { return Number(strconv.FormatInt(v, 10)) }

// Float returns the shortest literal that round-trips v.
func Float(v float64) Number { return Number(strconv.FormatFloat(v, 'f', -1, 64)) }

// Set appends a property, replacing the value in place when key exists.
func (o Object) Set(key string, value Node) Object {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = value
			return o
		}
	}
	return append(o, Property{Key: key, Value: value})
}

// FromValue converts decoded data (maps with string keys, slices, strings,
// numbers, booleans and nil) into a Node. Map keys are sorted.
func FromValue(v any) (Node, error) {
	if v == nil {
		return Null{}, nil
	}
	switch typed := v.(type) {
	case Node:
		return typed, nil
	case string:
		return String(typed), nil
	case bool:
		return Bool(typed), nil
	case map[string]any:
		return fromStringMap(typed)
	case []any:
		return fromSlice(reflect.ValueOf(typed))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(strconv.FormatUint(rv.Uint(), 10)), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("jsliteral: non-finite number %v", f)
		}
		return Float(f), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Slice, reflect.Array:
		return fromSlice(rv)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("jsliteral: unsupported map key type %s", rv.Type().Key())
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return fromStringMap(m)
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return FromValue(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("jsliteral: unsupported value type %T", v)
}

func fromStringMap(m map[string]any) (Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := make(Object, 0, len(keys))
	for _, k := range keys {
		value, err := FromValue(m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		obj = append(obj, Property{Key: k, Value: value})
	}
	return obj, nil
}

func fromSlice(rv reflect.Value) (Node, error) {
	arr := make(Array, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		value, err := FromValue(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		arr = append(arr, value)
	}
	return arr, nil
}
