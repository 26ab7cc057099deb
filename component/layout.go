package component

// Calling convention limits of the canonical ABI
const (
	MaxFlatParams  = 16
	MaxFlatResults = 1
)

// Info holds size and alignment of a value in linear memory
type Info struct {
	Size  uint32
	Align uint32
}

// LayoutOf returns the memory layout of a primitive kind
func LayoutOf(k ValueKind) Info {
	switch k {
	case KindBool, KindS8, KindU8:
		return Info{Size: 1, Align: 1}
	case KindS16, KindU16:
		return Info{Size: 2, Align: 2}
	case KindS32, KindU32, KindF32, KindChar:
		return Info{Size: 4, Align: 4}
	case KindS64, KindU64, KindF64:
		return Info{Size: 8, Align: 8}
	case KindString:
		return Info{Size: 8, Align: 4} // [ptr: u32, len: u32]
	default:
		return Info{Size: 0, Align: 1}
	}
}

// FlatCount returns how many core values a kind flattens to
func FlatCount(k ValueKind) int {
	switch k {
	case KindUnit:
		return 0
	case KindString:
		return 2
	default:
		return 1
	}
}

// AlignTo rounds offset up to align
func AlignTo(offset, align uint32) uint32 {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// TupleLayout lays kinds out as a record and returns each field offset
// together with the record's size and alignment.
func TupleLayout(kinds []ValueKind) ([]uint32, Info) {
	offsets := make([]uint32, len(kinds))
	maxAlign := uint32(1)
	offset := uint32(0)
	for i, k := range kinds {
		info := LayoutOf(k)
		offset = AlignTo(offset, info.Align)
		offsets[i] = offset
		offset += info.Size
		if info.Align > maxAlign {
			maxAlign = info.Align
		}
	}
	return offsets, Info{Size: AlignTo(offset, maxAlign), Align: maxAlign}
}

// annotate fills offsets and convention flags of ft from its resolved kinds.
// Params with at most MaxFlatParams flat values use flat slot indices,
// otherwise record byte offsets. A result with at most MaxFlatResults flat
// values is returned flat, otherwise through memory at offset 0.
func annotate(ft *FuncType, params []ValueKind, result ValueKind) {
	flat := 0
	for _, k := range params {
		flat += FlatCount(k)
	}
	ft.FlatParams = flat <= MaxFlatParams
	if ft.FlatParams {
		slot := uint32(0)
		for i, k := range params {
			ft.Params[i].Offset = slot
			slot += uint32(FlatCount(k))
		}
	} else {
		offsets, _ := TupleLayout(params)
		for i := range params {
			ft.Params[i].Offset = offsets[i]
		}
	}
	ft.FlatResult = FlatCount(result) <= MaxFlatResults
	ft.Result.Offset = 0
}
