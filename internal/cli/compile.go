package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/planner"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledMerge is one merge configuration with its content fingerprint.
type CompiledMerge struct {
	Name        string     `json:"name"`
	Fingerprint string     `json:"fingerprint"`
	Config      *ir.Config `json:"config"`
}

// CompilationResult holds every compiled merge, sorted by name.
type CompilationResult struct {
	Merges []CompiledMerge `json:"merges"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <config-path>",
		Short: "Compile merge configurations and print their fingerprints",
		Long: `Compile the CUE merge configurations and build their planning pipelines.

Each merge is validated and fingerprinted. Two merges with the same
fingerprint plan identically. With --output the compiled configurations
are written as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, configPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadConfigs(configPath, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return formatter.fail(ExitCommandError, loadErrorCode(loadErrors[0]), loadMessage(loadErrors[0]), nil)
	}
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, configPath)

	cache := planner.NewCache()
	result := &CompilationResult{}
	var errs []error
	for _, name := range loadResult.Names() {
		formatter.VerboseLog("Compiling merge: %s", name)
		pl, err := cache.Get(loadResult.Configs[name])
		if err != nil {
			errs = append(errs, &LoadError{Code: loadErrorCode(err), Message: fmt.Sprintf("merge %s: %v", name, err)})
			continue
		}
		result.Merges = append(result.Merges, CompiledMerge{
			Name:        name,
			Fingerprint: pl.Fingerprint(),
			Config:      pl.Config(),
		})
	}
	if len(errs) > 0 {
		return outputCompileErrors(formatter, errs)
	}

	if opts.Output != "" {
		if err := writeCompiled(result, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, cache.Len(), opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, pipelines int, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d merge(s) into %d pipeline(s)\n\n", len(result.Merges), pipelines)
	for _, m := range result.Merges {
		fmt.Fprintf(w, "  %s: %s %s era=%s(%s) fingerprint=%s\n",
			m.Name, m.Config.Mode, m.Config.EffectiveDeleteMode(),
			m.Config.Era.Name, m.Config.Era.Domain, shortHash(m.Fingerprint))
	}
	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote compiled configurations to %s\n", outputFile)
	}
	return nil
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		cliErrors[i] = CLIError{Code: loadErrorCode(err), Message: loadMessage(err)}
	}

	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Compilation failed with %d error(s)\n\n", len(errs))
		for _, e := range cliErrors {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
		}
	}
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

func writeCompiled(result *CompilationResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// loadMessage returns the message of a *LoadError without its code prefix.
func loadMessage(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Message
	}
	return err.Error()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
