package linker

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/errors"
)

func TestLoweredSignature(t *testing.T) {
	tests := []struct {
		name    string
		ft      component.ResolvedFuncType
		params  []api.ValueType
		results []api.ValueType
	}{
		{
			name: "no params, no result",
			ft:   component.ResolvedFuncType{FlatParams: true, FlatResult: true},
		},
		{
			name: "flat params and result",
			ft: component.ResolvedFuncType{
				Params: []component.ResolvedParam{
					{Kind: component.KindU8},
					{Kind: component.KindString},
					{Kind: component.KindS64},
					{Kind: component.KindF32},
				},
				Result:     component.ResolvedParam{Kind: component.KindF64},
				FlatParams: true,
				FlatResult: true,
			},
			params:  []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32},
			results: []api.ValueType{api.ValueTypeF64},
		},
		{
			name: "string result through a return pointer",
			ft: component.ResolvedFuncType{
				Params:     []component.ResolvedParam{{Kind: component.KindChar}},
				Result:     component.ResolvedParam{Kind: component.KindString},
				FlatParams: true,
			},
			params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32},
		},
		{
			name: "params record",
			ft: component.ResolvedFuncType{
				Params:     []component.ResolvedParam{{Kind: component.KindU64}},
				Result:     component.ResolvedParam{Kind: component.KindU64},
				FlatResult: true,
			},
			params:  []api.ValueType{api.ValueTypeI32},
			results: []api.ValueType{api.ValueTypeI64},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params, results := loweredSignature(&tc.ft)
			if !equalTypes(params, tc.params) {
				t.Errorf("params = %v, want %v", params, tc.params)
			}
			if !equalTypes(results, tc.results) {
				t.Errorf("results = %v, want %v", results, tc.results)
			}
		})
	}
}

func equalTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFlatTypes_MatchFlatCount(t *testing.T) {
	for k := component.KindUnit; k <= component.KindString; k++ {
		if got := len(flatTypes(k)); got != component.FlatCount(k) {
			t.Errorf("%v: %d flat types, FlatCount %d", k, got, component.FlatCount(k))
		}
	}
}

func TestWithPath(t *testing.T) {
	if withPath(nil, "f") != nil {
		t.Error("nil error should stay nil")
	}

	bare := errors.TypeMismatch(errors.PhaseLower, nil, "string", "u32")
	withPath(bare, "f", "x")
	if len(bare.Path) != 2 || bare.Path[1] != "x" {
		t.Errorf("Path = %v", bare.Path)
	}

	located := errors.TypeMismatch(errors.PhaseLower, []string{"inner"}, "string", "u32")
	withPath(located, "f")
	if len(located.Path) != 1 || located.Path[0] != "inner" {
		t.Errorf("existing path replaced: %v", located.Path)
	}
}

func TestHostFunc(t *testing.T) {
	var c Callable = HostFunc(func(_ context.Context, args ...any) (any, error) {
		return len(args), nil
	})
	out, err := c.Call(context.Background(), 1, "two")
	if err != nil || out != 2 {
		t.Errorf("Call = %v, %v", out, err)
	}
}
