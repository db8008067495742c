package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tmerge/internal/compiler"
	"github.com/roach88/tmerge/internal/harness"
	"github.com/roach88/tmerge/internal/ir"
	"github.com/roach88/tmerge/internal/planner"
)

// LoadMode controls how errors are handled during config loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the merge configurations loaded from CUE files.
type LoadResult struct {
	Configs   map[string]*ir.Config
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// Names returns the merge names in sorted order.
func (r *LoadResult) Names() []string {
	names := make([]string, 0, len(r.Configs))
	for name := range r.Configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the merge called name. An empty name selects the only
// merge when exactly one is declared.
func (r *LoadResult) Select(name string) (string, *ir.Config, error) {
	if name == "" {
		if len(r.Configs) != 1 {
			return "", nil, &LoadError{
				Code:    ErrCodeMergeNotFound,
				Message: fmt.Sprintf("%d merges declared, choose one with --merge: %v", len(r.Configs), r.Names()),
			}
		}
		name = r.Names()[0]
	}
	cfg, ok := r.Configs[name]
	if !ok {
		return "", nil, &LoadError{
			Code:    ErrCodeMergeNotFound,
			Message: fmt.Sprintf("merge %q not found, declared: %v", name, r.Names()),
		}
	}
	return name, cfg, nil
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadConfigs loads the merge configurations declared under "merge" in the
// CUE files of path, which may be a directory or a single .cue file.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, compiles every merge and collects all errors.
func LoadConfigs(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing config path: %v", err)}}
	}

	dir, args := path, []string{"."}
	cueFiles := []string{path}
	if info.IsDir() {
		cueFiles, err = FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
	} else {
		dir, args = filepath.Dir(path), []string{"./" + filepath.Base(path)}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		Configs:   map[string]*ir.Config{},
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	if mode == LoadModeFailFast {
		configs, err := compiler.CompileAll(value)
		if err != nil {
			return result, []error{convertCompileError(err, "merge")}
		}
		result.Configs = configs
	} else {
		errs := collectConfigs(value, result)
		if len(errs) > 0 {
			return result, errs
		}
	}

	if len(result.Configs) == 0 {
		return result, []error{&LoadError{Code: ErrCodeNoMerges, Message: "no merges found under \"merge\""}}
	}
	return result, nil
}

// collectConfigs compiles each merge separately so one broken merge does
// not hide errors in the others.
func collectConfigs(value cue.Value, result *LoadResult) []error {
	merges := value.LookupPath(cue.ParsePath("merge"))
	if !merges.Exists() {
		return nil
	}
	iter, err := merges.Fields()
	if err != nil {
		return []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating merges: %v", err)}}
	}

	var errs []error
	for iter.Next() {
		name := iter.Selector().String()
		cfg, err := compiler.CompileConfig(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "merge."+name))
			continue
		}
		result.Configs[name] = cfg
	}
	return errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeCompileFailed,
			Message: fmt.Sprintf("%s.%s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// BatchFile is the YAML layout of a batch: the existing timeline and the
// incoming rows, boundaries written in the era's domain.
type BatchFile struct {
	Target []harness.RowSpec `yaml:"target,omitempty"`
	Source []harness.RowSpec `yaml:"source"`
}

// LoadBatch reads a YAML batch file and parses its boundaries in cfg's era
// domain.
func LoadBatch(path string, cfg *ir.Config) (planner.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return planner.Batch{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading batch: %v", err)}
	}

	var file BatchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return planner.Batch{}, &LoadError{Code: ErrCodeBatchInvalid, Message: fmt.Sprintf("parsing batch %s: %v", path, err)}
	}

	domain := cfg.Era.Domain
	b := planner.Batch{
		Source: make([]ir.SourceRow, 0, len(file.Source)),
		Target: make([]ir.TargetRow, 0, len(file.Target)),
	}
	for i, row := range file.Target {
		per, err := row.Period(domain)
		if err != nil {
			return planner.Batch{}, &LoadError{Code: ErrCodeBatchInvalid, Message: fmt.Sprintf("target[%d]: %v", i, err)}
		}
		b.Target = append(b.Target, ir.TargetRow{Identity: row.Identity, Period: per, Data: row.Data})
	}
	for i, row := range file.Source {
		per, err := row.Period(domain)
		if err != nil {
			return planner.Batch{}, &LoadError{Code: ErrCodeBatchInvalid, Message: fmt.Sprintf("source[%d]: %v", i, err)}
		}
		b.Source = append(b.Source, ir.SourceRow{
			RowID:      row.RowID,
			FoundingID: row.FoundingID,
			Identity:   row.Identity,
			Period:     per,
			Data:       row.Data,
		})
	}
	return b, nil
}

// loadMergeAndBatch loads the merge selected by name from configPath and
// the batch at batchPath.
func loadMergeAndBatch(configPath, name, batchPath string) (string, *ir.Config, planner.Batch, error) {
	res, errs := LoadConfigs(configPath, LoadModeFailFast)
	if len(errs) > 0 {
		return "", nil, planner.Batch{}, errs[0]
	}
	name, cfg, err := res.Select(name)
	if err != nil {
		return "", nil, planner.Batch{}, err
	}
	if verrs := compiler.Validate(cfg); len(verrs) > 0 {
		return "", nil, planner.Batch{}, &LoadError{Code: verrs[0].Code, Message: fmt.Sprintf("merge %s: %s", name, verrs[0].Error())}
	}
	b, err := LoadBatch(batchPath, cfg)
	if err != nil {
		return "", nil, planner.Batch{}, err
	}
	return name, cfg, b, nil
}

// loadErrorCode returns the code of a *LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	var cfgErr *planner.ConfigError
	if errors.As(err, &cfgErr) && len(cfgErr.Errors) > 0 {
		return cfgErr.Errors[0].Code
	}
	return ErrCodeGeneric
}

// Error code constants - unified across all CLI commands. Configuration
// validation uses the compiler's E2xx codes.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeScanError     = "E002" // Directory scan error
	ErrCodeNoFiles       = "E003" // No CUE files found
	ErrCodeLoadFailed    = "E004" // CUE load failed
	ErrCodeNotFound      = "E005" // Path not found
	ErrCodeBuildFailed   = "E006" // CUE build failed
	ErrCodeStoreFailed   = "E007" // Database error
	ErrCodeCompileFailed = "E008" // Merge config does not compile
	ErrCodeNoMerges      = "E009" // No merge declared
	ErrCodeMergeNotFound = "E010" // --merge names no declared merge
	ErrCodeBatchInvalid  = "E011" // Batch file unreadable
	ErrCodeRowErrors     = "E012" // Plan contains ERROR rows
)
