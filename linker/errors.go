package linker

import (
	"fmt"
	"strings"
)

// InstantiationError reports the step of the instantiation graph walk that
// failed: compile, lower, instantiate, reexport or export. Instance is the
// core instance index, or -1 when no instance is involved. Import names
// the argument, reexport or export involved, if any. Cause is the
// underlying *errors.LinkError or *errors.Error and stays reachable
// through errors.As.
type InstantiationError struct {
	Cause    error
	Step     string
	Import   string
	Reason   string
	Instance int
}

func (e *InstantiationError) Error() string {
	var b strings.Builder
	b.WriteString("instantiate component")

	if e.Step != "" {
		b.WriteString(": ")
		b.WriteString(e.Step)
	}

	if e.Instance >= 0 {
		fmt.Fprintf(&b, " core instance %d", e.Instance)
	}

	if e.Import != "" {
		fmt.Fprintf(&b, " (%s)", e.Import)
	}

	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *InstantiationError) Unwrap() error {
	return e.Cause
}

func instError(step string, instance int, name, reason string, cause error) *InstantiationError {
	return &InstantiationError{
		Step:     step,
		Instance: instance,
		Import:   name,
		Reason:   reason,
		Cause:    cause,
	}
}
