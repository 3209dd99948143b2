// Package indexerrors defines the typed error kinds surfaced by the
// indexer and searcher.
package indexerrors

import (
	"fmt"
	"time"
)

// Kind identifies one of the error categories the indexing/search pipeline
// can raise.
type Kind string

const (
	KindBinaryOrNonText        Kind = "binary_or_non_text"
	KindDiffMalformed          Kind = "diff_malformed"
	KindRepositoryAccessFailure Kind = "repository_access_failure"
	KindIndexFormatUnsupported Kind = "index_format_unsupported"
	KindIndexCorrupt           Kind = "index_corrupt"
	KindInvalidRegex           Kind = "invalid_regex"
	KindDeadlineExceeded       Kind = "deadline_exceeded"
	KindInvalidQuery           Kind = "invalid_query"
)

// IndexingError is raised while walking commit history or tokenising a
// single file. Per-file kinds (BinaryOrNonText, DiffMalformed) are
// recovered locally by the indexer; RepositoryAccessFailure aborts the
// walk.
type IndexingError struct {
	Kind       Kind
	FilePath   string
	CommitID   string
	Underlying error
	Timestamp  time.Time
}

func NewIndexingError(kind Kind, path, commitID string, err error) *IndexingError {
	return &IndexingError{
		Kind:       kind,
		FilePath:   path,
		CommitID:   commitID,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *IndexingError) Error() string {
	if e.FilePath != "" {
		return fmt.Sprintf("%s: %s @ %s: %v", e.Kind, e.FilePath, e.CommitID, e.Underlying)
	}
	return fmt.Sprintf("%s @ %s: %v", e.Kind, e.CommitID, e.Underlying)
}

func (e *IndexingError) Unwrap() error { return e.Underlying }

// Recoverable reports whether the walk can continue past this error.
func (e *IndexingError) Recoverable() bool {
	switch e.Kind {
	case KindBinaryOrNonText, KindDiffMalformed:
		return true
	default:
		return false
	}
}

// LoadError is raised while reading a persisted index.
type LoadError struct {
	Kind       Kind
	Path       string
	Underlying error
}

func NewLoadError(kind Kind, path string, err error) *LoadError {
	return &LoadError{Kind: kind, Path: path, Underlying: err}
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Kind, e.Underlying)
}

func (e *LoadError) Unwrap() error { return e.Underlying }

// SearchError is raised for a query that cannot be answered.
type SearchError struct {
	Kind       Kind
	Query      string
	Underlying error
}

func NewSearchError(kind Kind, query string, err error) *SearchError {
	return &SearchError{Kind: kind, Query: query, Underlying: err}
}

func (e *SearchError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("search %q: %s: %v", e.Query, e.Kind, e.Underlying)
	}
	return fmt.Sprintf("search %q: %s", e.Query, e.Kind)
}

func (e *SearchError) Unwrap() error { return e.Underlying }

// MultiError aggregates the per-file errors recovered during one commit's
// indexing pass.
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors (first: %v)", len(e.Errors), e.Errors[0])
}

func (e *MultiError) Unwrap() []error { return e.Errors }
