package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-component/engine"
	"github.com/wippyai/wasm-component/runtime"
)

func newCallCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "call <file.wasm> <func> [args...]",
		Short: "Call an exported function",
		Long: `Call instantiates the component (or core module) and calls one exported
function. Arguments are parsed according to the function's parameter
types: integers accept 0x and 0b prefixes, bool accepts true/false/1/0,
char takes exactly one character.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			rt, loaded, err := a.open(ctx, args[0])
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			switch l := loaded.(type) {
			case *runtime.Component:
				return a.callComponent(ctx, cmd.OutOrStdout(), rt, l, args[1], args[2:])
			case *engine.Module:
				return a.callModule(ctx, cmd.OutOrStdout(), rt, l, args[1], args[2:])
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the call after this long (0 = no limit)")
	return cmd
}

func (a *app) callComponent(ctx context.Context, w io.Writer, rt *runtime.Runtime, c *runtime.Component, name string, raw []string) error {
	ft, ok := c.FuncType(name)
	if !ok {
		return fmt.Errorf("component has no function export %q", name)
	}
	args, err := parseArgs(ft, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	inst, err := rt.NewInstance(ctx, c, nil)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	a.log.Debug("calling", zap.String("func", name), zap.Int("args", len(args)))
	result, err := inst.Call(ctx, name, args...)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, resultStyle.Render(formatValue(result, ft.Result.Kind)))
	return nil
}

func (a *app) callModule(ctx context.Context, w io.Writer, rt *runtime.Runtime, m *engine.Module, name string, raw []string) error {
	inst, err := rt.NewInstance(ctx, m, nil)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	ext, ok := inst.Core().Export(name)
	if !ok || ext.Kind != engine.ExternFunc {
		return fmt.Errorf("module has no function export %q", name)
	}
	fn := ext.Function()
	def := fn.Definition()

	params := def.ParamTypes()
	if len(raw) != len(params) {
		return fmt.Errorf("%s: expected %d arguments, got %d", name, len(params), len(raw))
	}
	stack := make([]uint64, max(len(params), len(def.ResultTypes())))
	for i, t := range params {
		v, err := parseCoreArg(raw[i], t)
		if err != nil {
			return fmt.Errorf("%s: argument %d: %w", name, i, err)
		}
		stack[i] = v
	}

	a.log.Debug("calling core function", zap.String("func", name), zap.Int("args", len(params)))
	if err := fn.CallWithStack(ctx, stack); err != nil {
		return err
	}
	for i, t := range def.ResultTypes() {
		fmt.Fprintln(w, resultStyle.Render(formatCoreResult(stack[i], t)))
	}
	return nil
}
