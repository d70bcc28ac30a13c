// Command plugrun loads a guest module against the memory access demo plugin
// and calls its exports.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-plugin-sdk/cabi"
	"github.com/wippyai/wasm-plugin-sdk/examples/memoryaccess"
	"github.com/wippyai/wasm-plugin-sdk/host/wazerohost"
	"github.com/wippyai/wasm-plugin-sdk/module"
	"github.com/wippyai/wasm-plugin-sdk/plugin"
	"github.com/wippyai/wasm-plugin-sdk/types"
)

func init() {
	plugin.Register(memoryaccess.Definition())
}

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to guest wasm module")
		funcName    = flag.String("func", "", "Function to call (optional)")
		argStr      = flag.String("args", "", "Comma-separated arguments")
		readStr     = flag.String("read", "", "Print guest memory after the call (ptr:len)")
		wasi        = flag.Bool("wasi", false, "Provide wasi_snapshot_preview1")
		verbose     = flag.Bool("v", false, "Log binding diagnostics")
		list        = flag.Bool("list", false, "List plugin modules and guest exports and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" && !*list {
		fmt.Fprintln(os.Stderr, "Usage: plugrun -wasm <file.wasm> [-func name] [-args 1,2] [-read ptr:len]")
		fmt.Fprintln(os.Stderr, "       plugrun [-wasm <file.wasm>] -list")
		fmt.Fprintln(os.Stderr, "       plugrun -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := wazerohost.Config{Logger: logger, WASI: *wasi}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *funcName, *argStr, *readStr, *list, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger returns a no-op logger, or a development logger shared by every
// SDK package when verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	module.SetLogger(logger)
	plugin.SetLogger(logger)
	cabi.SetLogger(logger)
	return logger, nil
}

func run(wasmFile, funcName, argStr, readStr string, listOnly bool, cfg wazerohost.Config) error {
	ctx := context.Background()

	desc, err := plugin.Current()
	if err != nil {
		return fmt.Errorf("plugin: %w", err)
	}
	if listOnly {
		if err := printPlugin(desc); err != nil {
			return err
		}
		if wasmFile == "" {
			return nil
		}
	}

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	h, err := wazerohost.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create host: %w", err)
	}
	defer h.Close(ctx)

	if err := h.RegisterPlugin(ctx, desc); err != nil {
		return fmt.Errorf("register plugin: %w", err)
	}

	inst, err := h.Load(ctx, "guest", data)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	exports := inst.Exports()
	fmt.Printf("Guest: %s\n", wasmFile)
	fmt.Printf("\nExported functions:\n")
	for _, name := range sortedNames(exports) {
		fmt.Printf("  %s\n", types.FormatFuncDecl(name, exports[name]))
	}

	if listOnly {
		return nil
	}

	// If no function specified, try common entry points
	if funcName == "" {
		for _, name := range []string{"_start", "run", "main"} {
			if _, ok := exports[name]; ok {
				funcName = name
				break
			}
		}
		if funcName == "" && len(exports) == 1 {
			funcName = sortedNames(exports)[0]
		}
		if funcName == "" {
			fmt.Printf("\nNo function specified and no common entry point found.\n")
			fmt.Printf("Use -func to specify a function to call.\n")
			return nil
		}
	}

	sig, ok := exports[funcName]
	if !ok {
		return fmt.Errorf("guest does not export %q", funcName)
	}
	args, err := parseArgs(argStr, sig.Params)
	if err != nil {
		return err
	}

	fmt.Printf("\nCalling %s(%s)...\n", funcName, formatVals(args))
	results, err := inst.Call(ctx, funcName, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	fmt.Printf("Result: %s\n", formatVals(results))

	if readStr != "" {
		ptr, n, err := parseRange(readStr)
		if err != nil {
			return err
		}
		view := inst.Memory()
		if view == nil {
			return fmt.Errorf("guest has no memory to read")
		}
		b, err := view.ReadExact(ptr, n)
		if err != nil {
			return fmt.Errorf("read memory: %w", err)
		}
		fmt.Printf("Memory[%d:%d]: %q\n", ptr, ptr+n, b)
	}
	return nil
}

func printPlugin(desc *plugin.Descriptor) error {
	fmt.Printf("Plugin: %s %s\n", desc.Name(), desc.Version())
	if desc.Description() != "" {
		fmt.Printf("  %s\n", desc.Description())
	}
	for i, info := range desc.Modules() {
		mod, err := desc.Instantiate(i)
		if err != nil {
			return fmt.Errorf("module %s: %w", info.Name, err)
		}
		fmt.Printf("\nModule %s", info.Name)
		if info.Description != "" {
			fmt.Printf(" (%s)", info.Description)
		}
		fmt.Println()
		for _, f := range mod.Funcs() {
			fmt.Printf("  %s\n", types.FormatFuncDecl(f.Name(), f.Signature()))
		}
	}
	fmt.Println()
	return nil
}

func sortedNames(m map[string]types.Signature) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatVals(vals []types.Val) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
