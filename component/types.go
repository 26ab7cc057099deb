package component

import "fmt"

// ValueKind is a primitive component value type, or KindIndex for a
// reference into the type table.
type ValueKind byte

const (
	KindUnit ValueKind = iota
	KindBool
	KindS8
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindS64
	KindU64
	KindF32
	KindF64
	KindChar
	KindString
	KindIndex
)

var kindNames = [...]string{
	KindUnit:   "unit",
	KindBool:   "bool",
	KindS8:     "s8",
	KindU8:     "u8",
	KindS16:    "s16",
	KindU16:    "u16",
	KindS32:    "s32",
	KindU32:    "u32",
	KindS64:    "s64",
	KindU64:    "u64",
	KindF32:    "f32",
	KindF64:    "f64",
	KindChar:   "char",
	KindString: "string",
	KindIndex:  "idx",
}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// IsPrimitive reports whether k needs no further resolution.
func (k ValueKind) IsPrimitive() bool {
	return k < KindIndex
}

// ValueType is a value type as it appears in the description.
// Index is meaningful only when Kind is KindIndex.
type ValueType struct {
	Kind  ValueKind
	Index uint32
}

// Prim returns the ValueType for a primitive kind.
func Prim(k ValueKind) ValueType {
	return ValueType{Kind: k}
}

// Ref returns an indexed reference into the type table.
func Ref(idx uint32) ValueType {
	return ValueType{Kind: KindIndex, Index: idx}
}

func (t ValueType) String() string {
	if t.Kind == KindIndex {
		return fmt.Sprintf("type[%d]", t.Index)
	}
	return t.Kind.String()
}

// AnnotatedValueType pairs a value type with its position in the calling
// convention: a flat slot index or a byte offset into memory.
type AnnotatedValueType struct {
	Type   ValueType
	Offset uint32
}

// Param is a labeled function parameter.
type Param struct {
	Name string
	AnnotatedValueType
}

// FuncType is a component function signature annotated with its layout.
type FuncType struct {
	Params     []Param
	Result     AnnotatedValueType
	FlatParams bool
	FlatResult bool
}

// StringEncoding selects how strings cross the boundary.
type StringEncoding byte

const (
	EncodingUTF8 StringEncoding = iota
	EncodingUTF16
	EncodingLatin1UTF16
)

func (e StringEncoding) String() string {
	switch e {
	case EncodingUTF8:
		return "utf8"
	case EncodingUTF16:
		return "utf16"
	case EncodingLatin1UTF16:
		return "latin1+utf16"
	default:
		return fmt.Sprintf("encoding(%d)", byte(e))
	}
}

// CanonOptions are the canonical ABI options of a lift or lower.
// Memory indexes the core memory space; Realloc and PostReturn index the
// core function space. Nil means the option is absent.
type CanonOptions struct {
	Memory         *uint32
	Realloc        *uint32
	PostReturn     *uint32
	StringEncoding StringEncoding
}

// ModuleKind distinguishes imported and inline modules.
type ModuleKind byte

const (
	ModuleImported ModuleKind = iota
	ModuleInline
)

// Module is a core module slot. Imported modules carry the import name,
// inline modules carry the embedded bytes.
type Module struct {
	Name  string
	Bytes []byte
	Kind  ModuleKind
}

// CoreSort is a core definition sort.
type CoreSort byte

const (
	CoreSortFunc   CoreSort = 0x00
	CoreSortTable  CoreSort = 0x01
	CoreSortMemory CoreSort = 0x02
	CoreSortGlobal CoreSort = 0x03
	CoreSortType   CoreSort = 0x10
	CoreSortModule CoreSort = 0x11
	CoreSortInst   CoreSort = 0x12
)

func (s CoreSort) String() string {
	switch s {
	case CoreSortFunc:
		return "func"
	case CoreSortTable:
		return "table"
	case CoreSortMemory:
		return "memory"
	case CoreSortGlobal:
		return "global"
	case CoreSortType:
		return "type"
	case CoreSortModule:
		return "module"
	case CoreSortInst:
		return "instance"
	default:
		return fmt.Sprintf("sort(0x%02x)", byte(s))
	}
}

// CoreInstanceKind distinguishes module instantiations from reexporters.
type CoreInstanceKind byte

const (
	CoreInstanceModule CoreInstanceKind = iota
	CoreInstanceReexporter
)

// InstantiateArg names an earlier core instance passed as an import namespace.
type InstantiateArg struct {
	Name     string
	Instance uint32
}

// CoreSortExport is one export of a reexporter instance.
type CoreSortExport struct {
	Name  string
	Sort  CoreSort
	Index uint32
}

// CoreInstance is an entry of the core instance index space.
type CoreInstance struct {
	Args    []InstantiateArg
	Exports []CoreSortExport
	Module  uint32
	Kind    CoreInstanceKind
}

// CoreExport references an export of an already instantiated core instance.
type CoreExport struct {
	Name     string
	Instance uint32
}

// CoreFuncKind distinguishes aliased and lowered core functions.
type CoreFuncKind byte

const (
	CoreFuncAliased CoreFuncKind = iota
	CoreFuncLowered
)

// CoreFunc is an entry of the core function index space.
// Aliased functions use Alias; lowered functions use Func, Type and Options.
type CoreFunc struct {
	Alias   CoreExport
	Type    FuncType
	Options CanonOptions
	Func    uint32
	Kind    CoreFuncKind
}

// FuncKind distinguishes imported and lifted component functions.
type FuncKind byte

const (
	FuncImported FuncKind = iota
	FuncLifted
)

// Func is an entry of the component function index space.
// Imported functions use Name and TypeIndex; lifted functions use CoreFunc,
// Type and Options.
type Func struct {
	Name      string
	Type      FuncType
	Options   CanonOptions
	TypeIndex uint32
	CoreFunc  uint32
	Kind      FuncKind
}

// ExportSort is the sort of a top-level export.
type ExportSort byte

const (
	ExportModule ExportSort = iota
	ExportFunc
)

func (s ExportSort) String() string {
	if s == ExportModule {
		return "module"
	}
	return "func"
}

// Export is a top-level component export.
type Export struct {
	Name  string
	Index uint32
	Sort  ExportSort
}

// TypeDefKind distinguishes defined value types from function types.
type TypeDefKind byte

const (
	TypeDefValue TypeDefKind = iota
	TypeDefFunc
)

// TypeDef is an entry of the type table.
type TypeDef struct {
	Func  *FuncType
	Value ValueType
	Kind  TypeDefKind
}

// Description is the decoded, immutable structure of a component.
// Every slice is an index space in definition order.
type Description struct {
	Modules       []Module
	CoreInstances []CoreInstance
	CoreFuncs     []CoreFunc
	Tables        []CoreExport
	Memories      []CoreExport
	Globals       []CoreExport
	Types         []TypeDef
	Funcs         []Func
	Exports       []Export
}
