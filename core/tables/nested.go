/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The TrafficEye Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package tables

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// GetNestedValue resolves a dot path such as "owner.username" against a
// record. Maps with string keys, structs (matched by json tag or field
// name), slices (numeric segments) and pointers are traversed. The boolean
// is false when any segment is missing; it never panics.
func GetNestedValue(record any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	cur := reflect.ValueOf(record)
	for _, segment := range strings.Split(path, ".") {
		cur = indirect(cur)
		if !cur.IsValid() {
			return nil, false
		}

		switch cur.Kind() {
		case reflect.Map:
			if cur.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			v := cur.MapIndex(reflect.ValueOf(segment).Convert(cur.Type().Key()))
			if !v.IsValid() {
				return nil, false
			}
			cur = v
		case reflect.Struct:
			f, ok := structField(cur, segment)
			if !ok {
				return nil, false
			}
			cur = f
		case reflect.Slice, reflect.Array:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= cur.Len() {
				return nil, false
			}
			cur = cur.Index(i)
		default:
			return nil, false
		}
	}

	cur = indirect(cur)
	if !cur.IsValid() {
		// Present but nil
		return nil, true
	}
	return cur.Interface(), true
}

// indirect unwraps interfaces and pointers, returning the zero Value for nil.
func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func structField(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if jsonName(sf) == name || strings.EqualFold(sf.Name, name) {
			return v.Field(i), true
		}
	}
	// Fields promoted from embedded structs
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous || !sf.IsExported() {
			continue
		}
		inner := indirect(v.Field(i))
		if inner.IsValid() && inner.Kind() == reflect.Struct {
			if f, ok := structField(inner, name); ok {
				return f, true
			}
		}
	}
	return reflect.Value{}, false
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	if idx := strings.Index(tag, ","); idx != -1 {
		return tag[:idx]
	}
	return tag
}

// CellText renders a resolved value as plain text. Nil and missing values
// render as "".
func CellText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("2006-01-02 15:04")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// LookupText resolves a path and renders it as text.
func LookupText(record any, path string) string {
	v, _ := GetNestedValue(record, path)
	return CellText(v)
}
