package resolve

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// NamedValues delegates to objects implementing NamedValueProvider.
func NamedValues(next Resolver) Resolver {
	return ResolverFunc(func(ctx context.Context, name string, object any) (any, bool, error) {
		if p, ok := object.(NamedValueProvider); ok {
			if !indirect(reflect.ValueOf(object)).IsValid() {
				return nil, false, nil
			}
			return lookupNamed(ctx, p, name)
		}
		return next.TryGetValue(ctx, name, object)
	})
}

func lookupNamed(ctx context.Context, p NamedValueProvider, name string) (out any, found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, found, err = nil, false, fmt.Errorf("LookupValue(%q) panicked: %v", name, r)
		}
	}()
	return p.LookupValue(ctx, name)
}

// Maps reads string-keyed maps. A map type without methods has nothing else to
// offer, so a missing key is a definitive failure for it.
func Maps(next Resolver) Resolver {
	return ResolverFunc(func(ctx context.Context, name string, object any) (any, bool, error) {
		switch m := object.(type) {
		case map[string]any:
			v, ok := m[name]
			return v, ok, nil
		case map[string]string:
			v, ok := m[name]
			return v, ok, nil
		}

		v := indirect(reflect.ValueOf(object))
		if !v.IsValid() || v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
			return next.TryGetValue(ctx, name, object)
		}
		if elem := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key())); elem.IsValid() {
			return elem.Interface(), true, nil
		}
		if reflect.TypeOf(object).NumMethod() == 0 && v.Type().NumMethod() == 0 {
			return nil, false, nil
		}
		return next.TryGetValue(ctx, name, object)
	})
}

// Sequences indexes slices and arrays with non-negative integer names.
func Sequences(next Resolver) Resolver {
	return ResolverFunc(func(ctx context.Context, name string, object any) (any, bool, error) {
		v := indirect(reflect.ValueOf(object))
		if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
			return next.TryGetValue(ctx, name, object)
		}
		idx, ok := parseIndex(name)
		if !ok {
			return next.TryGetValue(ctx, name, object)
		}
		if idx >= v.Len() {
			return nil, false, nil
		}
		return v.Index(idx).Interface(), true, nil
	})
}

// Reflection is the structural fallback: exported fields (by name, capitalised
// name or json tag), zero-argument methods, then a Get(string) or Get(int)
// accessor and integer-keyed maps.
func Reflection(next Resolver) Resolver {
	return ResolverFunc(func(ctx context.Context, name string, object any) (any, bool, error) {
		value, found, err := reflectMember(ctx, name, object)
		if err != nil || found {
			return value, found, err
		}
		value, found, err = reflectIndexer(ctx, name, object)
		if err != nil || found {
			return value, found, err
		}
		return next.TryGetValue(ctx, name, object)
	})
}

func reflectMember(ctx context.Context, name string, object any) (any, bool, error) {
	raw := reflect.ValueOf(object)
	if !raw.IsValid() {
		return nil, false, nil
	}
	candidates := []string{name}
	if exported := exportedName(name); exported != name {
		candidates = append(candidates, exported)
	}

	for _, n := range candidates {
		if m := methodByName(raw, n); m.IsValid() {
			if out, ok, err := callAccessor(ctx, m, n); ok || err != nil {
				return out, ok, err
			}
		}
	}

	v := indirect(raw)
	if v.Kind() != reflect.Struct {
		return nil, false, nil
	}
	for _, n := range candidates {
		if sf, ok := v.Type().FieldByName(n); ok && sf.IsExported() {
			f, err := v.FieldByIndexErr(sf.Index)
			if err != nil {
				// A nil embedded pointer hides the field.
				return nil, false, nil
			}
			return f.Interface(), true, nil
		}
	}
	for _, sf := range reflect.VisibleFields(v.Type()) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		if tag := jsonName(sf); tag != "" && tag == name {
			f, err := v.FieldByIndexErr(sf.Index)
			if err != nil {
				return nil, false, nil
			}
			return f.Interface(), true, nil
		}
	}
	return nil, false, nil
}

func reflectIndexer(ctx context.Context, name string, object any) (any, bool, error) {
	raw := reflect.ValueOf(object)
	if !raw.IsValid() {
		return nil, false, nil
	}
	if get := methodByName(raw, "Get"); get.IsValid() && get.Type().NumIn() == 1 {
		in := get.Type().In(0)
		switch {
		case in.Kind() == reflect.String:
			return callIndexer(get, reflect.ValueOf(name).Convert(in), name)
		case isInteger(in.Kind()):
			if idx, ok := parseIndex(name); ok {
				return callIndexer(get, reflect.ValueOf(idx).Convert(in), name)
			}
		}
	}

	v := indirect(raw)
	if v.Kind() == reflect.Map && isInteger(v.Type().Key().Kind()) {
		n, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			return nil, false, nil
		}
		key := reflect.ValueOf(n)
		if !key.CanConvert(v.Type().Key()) {
			return nil, false, nil
		}
		if elem := v.MapIndex(key.Convert(v.Type().Key())); elem.IsValid() {
			return elem.Interface(), true, nil
		}
	}
	return nil, false, nil
}

// callAccessor invokes a method that takes no arguments or only a context.
// Methods with any other signature are not accessors and are skipped.
func callAccessor(ctx context.Context, m reflect.Value, name string) (out any, found bool, err error) {
	t := m.Type()
	var args []reflect.Value
	switch {
	case t.NumIn() == 0:
	case t.NumIn() == 1 && t.In(0) == contextType:
		args = []reflect.Value{reflect.ValueOf(ctx)}
	default:
		return nil, false, nil
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			out, found, err = nil, false, fmt.Errorf("method %s panicked: %v", name, r)
		}
	}()
	results := m.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, false, fmt.Errorf("method %s: %w", name, results[1].Interface().(error))
	}
	return results[0].Interface(), true, nil
}

// callIndexer invokes Get(key). Supported results are (T), (T, bool) and (T, error).
func callIndexer(get reflect.Value, key reflect.Value, name string) (out any, found bool, err error) {
	t := get.Type()
	if t.NumOut() < 1 || t.NumOut() > 2 {
		return nil, false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			out, found, err = nil, false, fmt.Errorf("Get(%q) panicked: %v", name, r)
		}
	}()
	results := get.Call([]reflect.Value{key})
	if len(results) == 1 {
		return results[0].Interface(), true, nil
	}
	switch {
	case t.Out(1).Kind() == reflect.Bool:
		if !results[1].Bool() {
			return nil, false, nil
		}
	case t.Out(1) == errorType:
		if !results[1].IsNil() {
			return nil, false, fmt.Errorf("Get(%q): %w", name, results[1].Interface().(error))
		}
	default:
		return nil, false, nil
	}
	return results[0].Interface(), true, nil
}

func methodByName(v reflect.Value, name string) reflect.Value {
	if name == "" || !isExported(name) {
		return reflect.Value{}
	}
	if m := v.MethodByName(name); m.IsValid() {
		return m
	}
	// Value receivers stored in an interface can still reach pointer methods when addressable.
	if v.Kind() != reflect.Pointer && v.CanAddr() {
		return v.Addr().MethodByName(name)
	}
	return reflect.Value{}
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func parseIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(name)
	if err != nil {
		return 0, false
	}
	return idx, true
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func exportedName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func jsonName(sf reflect.StructField) string {
	tag, ok := sf.Tag.Lookup("json")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
