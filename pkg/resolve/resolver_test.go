package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type article struct {
	Title   string
	Summary string `json:"summary_text"`
	secret  string
	Author  *author
}

type author struct {
	Name string
}

func (a *author) Initials() string { return a.Name[:1] }

func (a article) WordCount(ctx context.Context) (int, error) {
	if ctx == nil {
		return 0, errors.New("no context")
	}
	return 3, nil
}

func (a article) Explode() string { panic("kaboom") }

type provider map[string]any

func (p provider) LookupValue(_ context.Context, name string) (any, bool, error) {
	if name == "fail" {
		return nil, false, errors.New("provider failure")
	}
	v, ok := p[name]
	return v, ok, nil
}

type getter struct{}

func (getter) Get(key string) (string, bool) {
	if key == "known" {
		return "value", true
	}
	return "", false
}

type indexed struct{}

func (indexed) Get(i int) (string, error) {
	if i > 1 {
		return "", errors.New("out of range")
	}
	return []string{"zero", "one"}[i], nil
}

func TestDefaultChain(t *testing.T) {
	r := Default()
	ctx := context.Background()
	a := article{Title: "Go", Summary: "short", secret: "x", Author: &author{Name: "Rob"}}

	tests := []struct {
		name    string
		object  any
		key     string
		want    any
		found   bool
		wantErr string
	}{
		{"map hit", map[string]any{"a": 1}, "a", 1, true, ""},
		{"map miss", map[string]any{"a": 1}, "b", nil, false, ""},
		{"string map", map[string]string{"a": "x"}, "a", "x", true, ""},
		{"typed map", map[string]int{"n": 5}, "n", 5, true, ""},
		{"slice index", []string{"a", "b"}, "1", "b", true, ""},
		{"slice out of range", []string{"a"}, "4", nil, false, ""},
		{"array index", [2]int{7, 8}, "0", 7, true, ""},
		{"struct field", a, "Title", "Go", true, ""},
		{"lowercase field", a, "title", "Go", true, ""},
		{"json tag", a, "summary_text", "short", true, ""},
		{"unexported field", a, "secret", nil, false, ""},
		{"pointer field", &a, "Title", "Go", true, ""},
		{"context method", a, "wordCount", 3, true, ""},
		{"pointer method", a.Author, "Initials", "R", true, ""},
		{"panicking method", a, "Explode", nil, false, "panicked"},
		{"named provider", provider{"k": "v"}, "k", "v", true, ""},
		{"provider miss", provider{}, "k", nil, false, ""},
		{"provider error", provider{}, "fail", nil, false, "provider failure"},
		{"string getter", getter{}, "known", "value", true, ""},
		{"string getter miss", getter{}, "other", nil, false, ""},
		{"int getter", indexed{}, "1", "one", true, ""},
		{"int getter error", indexed{}, "5", nil, false, "out of range"},
		{"int keyed map", map[int]string{3: "three"}, "3", "three", true, ""},
		{"nil object", nil, "x", nil, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, found, err := r.TryGetValue(ctx, tt.key, tt.object)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestWithStrategies_RunBeforeReflection(t *testing.T) {
	upper := func(next Resolver) Resolver {
		return ResolverFunc(func(ctx context.Context, name string, object any) (any, bool, error) {
			if s, ok := object.(string); ok && name == "upper" {
				return s + "!", true, nil
			}
			return next.TryGetValue(ctx, name, object)
		})
	}
	r := WithStrategies(upper)

	v, found, err := r.TryGetValue(context.Background(), "upper", "hi")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hi!", v)

	// Maps still take precedence.
	v, found, err = r.TryGetValue(context.Background(), "upper", map[string]any{"upper": 1})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, v)
}

func TestNewChain_Empty(t *testing.T) {
	v, found, err := NewChain().TryGetValue(context.Background(), "x", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)
}

type profile struct {
	Bio string
}

func (p *profile) LookupValue(_ context.Context, name string) (any, bool, error) {
	if name == "bio" {
		return p.Bio, true, nil
	}
	return nil, false, nil
}

type explosive struct{}

func (explosive) LookupValue(context.Context, string) (any, bool, error) { panic("kaboom") }

func TestNamedValues_NilAndPanickingProviders(t *testing.T) {
	r := Default()
	ctx := context.Background()

	var missing *profile
	v, found, err := r.TryGetValue(ctx, "bio", missing)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, v)

	v, found, err = r.TryGetValue(ctx, "bio", &profile{Bio: "hi"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hi", v)

	_, found, err = r.TryGetValue(ctx, "bio", explosive{})
	require.Error(t, err)
	assert.False(t, found)
	assert.Contains(t, err.Error(), "kaboom")
}
