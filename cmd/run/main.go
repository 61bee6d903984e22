package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-loader/loader"
	"github.com/wippyai/wasm-loader/wasm"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runFlags struct {
	funcName     string
	str          string
	args         []string
	resultString bool
	interactive  bool
}

func newRootCmd() *cobra.Command {
	cfg := &configuration{}
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:           "run <module.wasm|url>",
		Short:         "Load a WebAssembly module and call its exports",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.initialize(cmd); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.interactive {
				return runInteractive(cmd.Context(), cfg, args[0])
			}
			return run(cmd.Context(), cfg, flags, args[0])
		},
	}
	cfg.addFlags(cmd)

	cmd.Flags().StringVar(&flags.funcName, "func", "", "export to call")
	cmd.Flags().StringSliceVar(&flags.args, "arg", nil, "numeric argument, repeatable")
	cmd.Flags().StringVar(&flags.str, "str", "", "string allocated in module memory and passed as the first argument")
	cmd.Flags().BoolVar(&flags.resultString, "result-string", false, "decode the result as a string pointer")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "interactive mode with TUI")

	cmd.AddCommand(newInspectCmd(cfg))
	return cmd
}

func newInspectCmd(cfg *configuration) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <module.wasm|url>",
		Short: "List imports and exports without instantiating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := cfg.newLoader(cmd.Context())
			if err != nil {
				return err
			}
			defer l.Close(cmd.Context())

			c, err := l.Compile(cmd.Context(), loader.Path(args[0]))
			if err != nil {
				return err
			}
			printInfo(cmd.OutOrStdout(), args[0], c.Info())
			return nil
		},
	}
}

func run(ctx context.Context, cfg *configuration, flags *runFlags, location string) error {
	l, err := cfg.newLoader(ctx)
	if err != nil {
		return err
	}
	defer l.Close(ctx)

	mod, err := l.Load(ctx, loader.Path(location), &loader.Options{Log: newConsoleSink(os.Stderr)})
	if err != nil {
		return err
	}
	defer mod.Close(ctx)

	cfg.logger.Debug("module loaded",
		zap.String("source", mod.Source()),
		zap.Uint64("generation", mod.Generation()),
	)

	if flags.funcName == "" {
		printInfo(os.Stdout, location, mod.Info())
		return nil
	}

	fn := mod.Exports.Func(flags.funcName)
	if !fn.Exists() {
		return fmt.Errorf("export %q is not a function", flags.funcName)
	}

	values := flags.args
	if flags.str != "" {
		ptr, err := mod.Memory().String.Create(ctx, flags.str)
		if err != nil {
			return fmt.Errorf("allocate string: %w", err)
		}
		values = append([]string{fmt.Sprint(ptr)}, values...)
	}

	params, err := parseArgs(fn.Definition().ParamTypes(), values)
	if err != nil {
		return err
	}
	res, err := fn.Call(ctx, params...)
	if err != nil {
		return fmt.Errorf("call %s: %w", flags.funcName, err)
	}

	if flags.resultString {
		if len(res) == 0 {
			return fmt.Errorf("%s returned no value", flags.funcName)
		}
		fmt.Println(mod.Memory().String.Get(api.DecodeU32(res[0])))
		return nil
	}
	fmt.Printf("Result: %s\n", formatResults(fn.Definition().ResultTypes(), res))
	return nil
}

func printInfo(out io.Writer, location string, info *wasm.Info) {
	fmt.Fprintf(out, "Module: %s\n", location)
	fmt.Fprintf(out, "\nImports:\n")
	for _, imp := range info.Imports {
		line := fmt.Sprintf("  %s.%s (%s)", imp.Module, imp.Name, wasm.KindName(imp.Kind))
		if imp.Kind == wasm.KindFunc && int(imp.TypeIdx) < len(info.Types) {
			line = fmt.Sprintf("  %s.%s%s", imp.Module, imp.Name, funcSig(info.Types[imp.TypeIdx]))
		}
		fmt.Fprintln(out, line)
	}

	fmt.Fprintf(out, "\nExports:\n")
	for _, e := range info.Exports {
		if e.Kind == wasm.KindFunc {
			if ft, ok := info.FuncType(e.Index); ok {
				fmt.Fprintf(out, "  %s%s\n", e.Name, funcSig(ft))
				continue
			}
		}
		fmt.Fprintf(out, "  %s (%s)\n", e.Name, wasm.KindName(e.Kind))
	}
}

func funcSig(ft wasm.FuncType) string {
	types := func(vs []wasm.ValType) string {
		names := make([]string, len(vs))
		for i, v := range vs {
			names[i] = api.ValueTypeName(api.ValueType(v))
		}
		return strings.Join(names, ", ")
	}
	sig := "(" + types(ft.Params) + ")"
	if len(ft.Results) > 0 {
		sig += " -> " + types(ft.Results)
	}
	return sig
}
