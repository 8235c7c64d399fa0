// Package mocks provides centralized mock implementations for testing.
//
// Each mock has a function field per method (CompleteFn, SearchFn, RunFn)
// that a test sets to script behaviour; unset fields fall back to a
// documented default. Mocks record their calls behind a mutex so they can
// be shared with code under test that runs on other goroutines.
//
//	backend := &mocks.MockBackend{
//	    CompleteFn: func(ctx context.Context, prompt string) (string, error) {
//	        return `["Goroutines", "Channels"]`, nil
//	    },
//	}
package mocks
