package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-component/component"
	"github.com/wippyai/wasm-component/engine"
	"github.com/wippyai/wasm-component/runtime"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.wasm>",
		Short: "List the imports and exports of a component or core module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, loaded, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			defer rt.Close(ctx)

			out := cmd.OutOrStdout()
			switch l := loaded.(type) {
			case *runtime.Component:
				writeComponent(out, args[0], l)
			case *engine.Module:
				writeModule(out, args[0], l)
			}
			return nil
		},
	}
}

func writeComponent(w io.Writer, path string, c *runtime.Component) {
	r := c.Resolved()
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("Component"), path)
	fmt.Fprintf(w, "Core modules: %d  Core instances: %d\n\n", countInline(r.Modules), len(r.CoreInstances))

	fmt.Fprintln(w, headerStyle.Render("Imports:"))
	imports := c.Imports()
	if len(imports) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, imp := range imports {
		fmt.Fprintf(w, "  %s %s\n", typeStyle.Render(imp.Sort.String()), imp.Name)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Exports:"))
	for _, e := range c.Exports() {
		if ft, ok := c.FuncType(e.Name); ok {
			fmt.Fprintf(w, "  %s %s: %s\n", typeStyle.Render("func"), funcStyle.Render(e.Name), component.FormatFuncType(*ft))
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", typeStyle.Render(e.Sort.String()), e.Name)
	}
}

func writeModule(w io.Writer, path string, m *engine.Module) {
	fmt.Fprintf(w, "%s %s\n\n", titleStyle.Render("Core module"), path)

	fmt.Fprintln(w, headerStyle.Render("Imports:"))
	if len(m.Imports()) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, imp := range m.Imports() {
		fmt.Fprintf(w, "  %s %s.%s\n", typeStyle.Render(imp.Kind.String()), imp.Module, imp.Name)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Exports:"))
	for _, e := range m.Exports() {
		fmt.Fprintf(w, "  %s %s\n", typeStyle.Render(e.Kind.String()), e.Name)
	}
}

func countInline(modules []component.Module) int {
	n := 0
	for _, m := range modules {
		if m.Kind == component.ModuleInline {
			n++
		}
	}
	return n
}
