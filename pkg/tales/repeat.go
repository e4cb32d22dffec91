package tales

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// RepeatState describes the current iteration of a tal:repeat loop.
type RepeatState struct {
	Name   string
	Index  int
	Length int
	// Key is the map key of the current item when iterating a map.
	Key any
}

// Number is the 1-based index.
func (s *RepeatState) Number() int { return s.Index + 1 }

// Even reports whether Index is even.
func (s *RepeatState) Even() bool { return s.Index%2 == 0 }

// Odd reports whether Index is odd.
func (s *RepeatState) Odd() bool { return s.Index%2 == 1 }

// Start reports whether this is the first iteration.
func (s *RepeatState) Start() bool { return s.Index == 0 }

// End reports whether this is the last iteration.
func (s *RepeatState) End() bool { return s.Index == s.Length-1 }

// Parity is "even" or "odd".
func (s *RepeatState) Parity() string {
	if s.Even() {
		return "even"
	}
	return "odd"
}

// Letter is a lowercase spreadsheet-style label: a, b, ..., z, aa, ab.
func (s *RepeatState) Letter() string {
	var b []byte
	for n := s.Index; n >= 0; n = n/26 - 1 {
		b = append([]byte{byte('a' + n%26)}, b...)
	}
	return string(b)
}

// Roman is the lowercase roman numeral of Number.
func (s *RepeatState) Roman() string {
	return strings.ToLower(toRoman(s.Number()))
}

// LookupValue exposes the state to path expressions such as repeat/item/index.
func (s *RepeatState) LookupValue(_ context.Context, name string) (any, bool, error) {
	switch name {
	case "index":
		return s.Index, true, nil
	case "number":
		return s.Number(), true, nil
	case "length", "size":
		return s.Length, true, nil
	case "even":
		return s.Even(), true, nil
	case "odd":
		return s.Odd(), true, nil
	case "parity":
		return s.Parity(), true, nil
	case "start", "first":
		return s.Start(), true, nil
	case "end", "last":
		return s.End(), true, nil
	case "letter":
		return s.Letter(), true, nil
	case "Letter":
		return strings.ToUpper(s.Letter()), true, nil
	case "roman":
		return s.Roman(), true, nil
	case "Roman":
		return toRoman(s.Number()), true, nil
	case "key":
		return s.Key, s.Key != nil, nil
	}
	return nil, false, nil
}

func toRoman(n int) string {
	if n <= 0 {
		return ""
	}
	values := []int{1000, 900, 500, 400, 100, 90, 50, 40, 10, 9, 5, 4, 1}
	symbols := []string{"M", "CM", "D", "CD", "C", "XC", "L", "XL", "X", "IX", "V", "IV", "I"}
	var b strings.Builder
	for i, v := range values {
		for n >= v {
			b.WriteString(symbols[i])
			n -= v
		}
	}
	return b.String()
}

// RepeatVariables is the value of the "repeat" built-in.
type RepeatVariables struct {
	ctx *ExpressionContext
}

// LookupValue returns the state of the innermost loop named name.
func (r RepeatVariables) LookupValue(_ context.Context, name string) (any, bool, error) {
	if r.ctx == nil {
		return nil, false, nil
	}
	st, ok := r.ctx.Repeat(name)
	if !ok {
		return nil, false, nil
	}
	return st, true, nil
}

// Item is one element of a sequence to repeat over.
type Item struct {
	Value any
	Key   any
}

// Sequence flattens v into repeat items. Slices and arrays iterate in order,
// maps iterate in sorted key order, and channels are drained until closed or
// until ctx is done. nil yields no items. Scalars are an error.
func Sequence(ctx context.Context, v any) ([]Item, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []any:
		items := make([]Item, len(val))
		for i, x := range val {
			items[i] = Item{Value: x}
		}
		return items, nil
	case string:
		return nil, fmt.Errorf("cannot repeat over string %q", val)
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]Item, rv.Len())
		for i := range items {
			items[i] = Item{Value: rv.Index(i).Interface()}
		}
		return items, nil
	case reflect.Map:
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		items := make([]Item, len(keys))
		for i, k := range keys {
			items[i] = Item{Value: rv.MapIndex(k).Interface(), Key: k.Interface()}
		}
		return items, nil
	case reflect.Chan:
		return drain(ctx, rv)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// "range" style: repeat over 0..n-1.
		n := int(rv.Int())
		items := make([]Item, 0, max(n, 0))
		for i := 0; i < n; i++ {
			items = append(items, Item{Value: i})
		}
		return items, nil
	}
	return nil, fmt.Errorf("cannot repeat over %T", v)
}

func drain(ctx context.Context, ch reflect.Value) ([]Item, error) {
	if ch.Type().ChanDir()&reflect.RecvDir == 0 {
		return nil, fmt.Errorf("cannot repeat over send-only %s", ch.Type())
	}
	cases := []reflect.SelectCase{
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
		{Dir: reflect.SelectRecv, Chan: ch},
	}
	var items []Item
	for {
		chosen, x, ok := reflect.Select(cases)
		if chosen == 0 {
			return nil, ctx.Err()
		}
		if !ok {
			return items, nil
		}
		items = append(items, Item{Value: x.Interface()})
	}
}
