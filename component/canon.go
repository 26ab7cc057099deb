package component

import (
	"github.com/wippyai/wasm-component/errors"
)

// Canon kinds per Component Model binary format section 8
const (
	CanonLift  byte = 0x00 // Followed by 0x00 discriminant
	CanonLower byte = 0x01 // Followed by 0x00 discriminant
)

// CanonOption kinds per Component Model binary format
const (
	CanonOptUTF8         byte = 0x00
	CanonOptUTF16        byte = 0x01
	CanonOptCompactUTF16 byte = 0x02
	CanonOptMemory       byte = 0x03
	CanonOptRealloc      byte = 0x04
	CanonOptPostReturn   byte = 0x05
)

// canons parses a Canon section (section 8)
func (d *decoder) canons(r *reader) error {
	count, err := r.count("canon")
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		start := r.offset()
		kind, err := r.byte()
		if err != nil {
			return err
		}

		switch kind {
		case CanonLift:
			// lift: 0x00 0x00 core_func:u32 opts:vec(canonopt) type:u32
			if err := r.expect(0x00, "lift sub-kind"); err != nil {
				return err
			}
			coreFunc, err := r.u32()
			if err != nil {
				return err
			}
			if int(coreFunc) >= len(d.desc.CoreFuncs) {
				return errors.Decode(start, "canon lift: core func %d not defined", coreFunc)
			}
			opts, err := r.canonOptions()
			if err != nil {
				return err
			}
			typeOffset := r.offset()
			typeIdx, err := r.u32()
			if err != nil {
				return err
			}
			ft, err := d.funcType(typeIdx, typeOffset)
			if err != nil {
				return err
			}
			d.desc.Funcs = append(d.desc.Funcs, Func{
				Kind:      FuncLifted,
				CoreFunc:  coreFunc,
				TypeIndex: typeIdx,
				Type:      ft,
				Options:   opts,
			})

		case CanonLower:
			// lower: 0x01 0x00 func:u32 opts:vec(canonopt)
			if err := r.expect(0x00, "lower sub-kind"); err != nil {
				return err
			}
			fn, err := r.u32()
			if err != nil {
				return err
			}
			if int(fn) >= len(d.desc.Funcs) {
				return errors.Decode(start, "canon lower: func %d not defined", fn)
			}
			opts, err := r.canonOptions()
			if err != nil {
				return err
			}
			d.desc.CoreFuncs = append(d.desc.CoreFuncs, CoreFunc{
				Kind:    CoreFuncLowered,
				Func:    fn,
				Type:    d.desc.Funcs[fn].Type,
				Options: opts,
			})

		default:
			return errors.Decode(start, "canon kind 0x%02x is not supported", kind)
		}
	}
	return nil
}

func (r *reader) canonOptions() (CanonOptions, error) {
	count, err := r.count("canon option")
	if err != nil {
		return CanonOptions{}, err
	}

	var opts CanonOptions
	seenEncoding := false
	for i := uint32(0); i < count; i++ {
		start := r.offset()
		kind, err := r.byte()
		if err != nil {
			return CanonOptions{}, err
		}

		switch kind {
		case CanonOptUTF8, CanonOptUTF16, CanonOptCompactUTF16:
			if seenEncoding {
				return CanonOptions{}, errors.Decode(start, "canon option: string encoding given twice")
			}
			seenEncoding = true
			opts.StringEncoding = StringEncoding(kind)

		case CanonOptMemory, CanonOptRealloc, CanonOptPostReturn:
			idx, err := r.u32()
			if err != nil {
				return CanonOptions{}, err
			}
			slot := opts.slot(kind)
			if *slot != nil {
				return CanonOptions{}, errors.Decode(start, "canon option 0x%02x given twice", kind)
			}
			*slot = &idx

		default:
			return CanonOptions{}, errors.Decode(start, "canon option 0x%02x is not supported", kind)
		}
	}

	return opts, nil
}

func (o *CanonOptions) slot(kind byte) **uint32 {
	switch kind {
	case CanonOptMemory:
		return &o.Memory
	case CanonOptRealloc:
		return &o.Realloc
	default:
		return &o.PostReturn
	}
}

// MemoryIndex returns the memory index, or -1 if unspecified
func (o CanonOptions) MemoryIndex() int64 {
	if o.Memory == nil {
		return -1
	}
	return int64(*o.Memory)
}

// ReallocIndex returns the realloc function index, or -1 if unspecified
func (o CanonOptions) ReallocIndex() int64 {
	if o.Realloc == nil {
		return -1
	}
	return int64(*o.Realloc)
}

// PostReturnIndex returns the post-return function index, or -1 if unspecified
func (o CanonOptions) PostReturnIndex() int64 {
	if o.PostReturn == nil {
		return -1
	}
	return int64(*o.PostReturn)
}
