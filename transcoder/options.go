package transcoder

import (
	wasmcomponent "github.com/wippyai/wasm-component"
	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/errors"
)

type Memory = wasmcomponent.Memory
type Reallocator = wasmcomponent.Reallocator
type PostReturn = wasmcomponent.PostReturn

// Options are the resolved canonical options of one lift or lower.
// Memory and Realloc are required only by kinds that touch linear memory.
type Options struct {
	Memory     Memory
	Realloc    Reallocator
	PostReturn PostReturn
	Encoding   component.StringEncoding

	// MaxStringLength caps the byte length of lowered strings.
	// Zero means 2^31-1.
	MaxStringLength uint32
}

func (o *Options) requireMemory(what string) error {
	if o == nil || o.Memory == nil {
		return errors.Config(errors.PhaseLower, what+" requires a memory option")
	}
	return nil
}

func (o *Options) requireRealloc(what string) error {
	if err := o.requireMemory(what); err != nil {
		return err
	}
	if o.Realloc == nil {
		return errors.Config(errors.PhaseLower, what+" requires a realloc option")
	}
	return nil
}

func (o *Options) stringWriter() *StringWriter {
	return &StringWriter{Memory: o.Memory, Realloc: o.Realloc, MaxLength: o.MaxStringLength}
}
