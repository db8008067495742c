package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// SuiteResult contains the results of running a set of scenario files.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a failed scenario.
type ScenarioFailure struct {
	Scenario string   `json:"scenario"`
	Path     string   `json:"path"`
	Errors   []string `json:"errors"`
}

// FindScenarios returns the scenario files at path: the file itself, or
// every *.yaml and *.yml file directly inside a directory, sorted.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	slices.Sort(files)
	return files, nil
}

// RunSuite loads and runs every scenario file. A scenario that fails to
// load or run counts as failed; the suite keeps going.
func RunSuite(paths []string) *SuiteResult {
	res := &SuiteResult{Failures: []ScenarioFailure{}}

	for _, path := range paths {
		res.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			res.fail("", path, err.Error())
			continue
		}

		result, err := Run(scenario)
		if err != nil {
			res.fail(scenario.Name, path, err.Error())
			continue
		}
		if !result.Pass {
			res.fail(scenario.Name, path, result.Errors...)
			continue
		}
		res.Passed++
	}

	return res
}

func (r *SuiteResult) fail(name, path string, errs ...string) {
	r.Failed++
	r.Failures = append(r.Failures, ScenarioFailure{Scenario: name, Path: path, Errors: errs})
}
