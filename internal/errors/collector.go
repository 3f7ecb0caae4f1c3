package errors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// TemplateFailure records one template that failed during a batch compile.
type TemplateFailure struct {
	Identifier string
	Err        error
}

// Error implements the error interface
func (tf TemplateFailure) Error() string {
	return fmt.Sprintf("%s: %v", tf.Identifier, tf.Err)
}

// Unwrap returns the underlying compile error
func (tf TemplateFailure) Unwrap() error {
	return tf.Err
}

// ErrorCollector collects per-template failures while compiling many templates
type ErrorCollector struct {
	failures []TemplateFailure
	mutex    sync.RWMutex
}

// NewErrorCollector creates a new error collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{
		failures: make([]TemplateFailure, 0),
	}
}

// Add records a failure for identifier. Nil errors are ignored.
func (ec *ErrorCollector) Add(identifier string, err error) {
	if err == nil {
		return
	}
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.failures = append(ec.failures, TemplateFailure{Identifier: identifier, Err: err})
}

// Failures returns a copy of the collected failures sorted by identifier
func (ec *ErrorCollector) Failures() []TemplateFailure {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	result := make([]TemplateFailure, len(ec.failures))
	copy(result, ec.failures)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Identifier < result[j].Identifier
	})
	return result
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollector) HasErrors() bool {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()
	return len(ec.failures) > 0
}

// Clear clears all errors
func (ec *ErrorCollector) Clear() {
	ec.mutex.Lock()
	defer ec.mutex.Unlock()
	ec.failures = ec.failures[:0]
}

// Err folds the collected failures into a single compile error, or nil.
func (ec *ErrorCollector) Err() error {
	failures := ec.Failures()
	if len(failures) == 0 {
		return nil
	}
	if len(failures) == 1 {
		return failures[0]
	}

	lines := make([]string, len(failures))
	for i, f := range failures {
		lines[i] = f.Error()
	}
	return NewCompileError(
		fmt.Sprintf("%d templates failed to compile", len(failures)),
		fmt.Errorf("%s", strings.Join(lines, "; ")),
	)
}
