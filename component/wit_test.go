package component

import "testing"

func TestWIT_RoundTrip(t *testing.T) {
	for k := KindBool; k <= KindString; k++ {
		t.Run(k.String(), func(t *testing.T) {
			wt := ToWIT(k)
			if wt == nil {
				t.Fatalf("ToWIT(%v) = nil", k)
			}
			got, err := FromWIT(wt)
			if err != nil {
				t.Fatalf("FromWIT: %v", err)
			}
			if got != k {
				t.Errorf("round trip = %v, want %v", got, k)
			}
		})
	}

	if ToWIT(KindUnit) != nil {
		t.Error("unit has no WIT type")
	}
	if k, err := FromWIT(nil); err != nil || k != KindUnit {
		t.Errorf("FromWIT(nil) = %v, %v", k, err)
	}
}

func TestParseValueType(t *testing.T) {
	tests := []struct {
		in      string
		want    ValueKind
		wantErr bool
	}{
		{in: "u32", want: KindU32},
		{in: " string ", want: KindString},
		{in: "char", want: KindChar},
		{in: "f64", want: KindF64},
		{in: "", want: KindUnit},
		{in: "unit", want: KindUnit},
		{in: "list<u8>", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValueType(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseValueType(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseValueType(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatFuncType(t *testing.T) {
	tests := []struct {
		name string
		ft   ResolvedFuncType
		want string
	}{
		{
			name: "no params",
			ft:   ResolvedFuncType{},
			want: "func()",
		},
		{
			name: "params and result",
			ft: ResolvedFuncType{
				Params: []ResolvedParam{{Name: "name", Kind: KindString}, {Name: "n", Kind: KindU32}},
				Result: ResolvedParam{Kind: KindBool},
			},
			want: "func(name: string, n: u32) -> bool",
		},
		{
			name: "unnamed param",
			ft:   ResolvedFuncType{Params: []ResolvedParam{{Kind: KindChar}}},
			want: "func(p0: char)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFuncType(tt.ft); got != tt.want {
				t.Errorf("FormatFuncType() = %q, want %q", got, tt.want)
			}
		})
	}
}
