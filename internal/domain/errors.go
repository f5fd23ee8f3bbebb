package domain

import "errors"

// Pipeline errors. Wrap with fmt.Errorf("...: %w", Err...) and match with errors.Is.
var (
	// ErrParse indicates the rulebook could not be parsed to text
	ErrParse = errors.New("document parse failed")

	// ErrNoSections indicates the parsed rulebook has no top-level headings
	ErrNoSections = errors.New("no sections found")

	// ErrStoreWrite indicates the knowledge store could not be rebuilt
	ErrStoreWrite = errors.New("knowledge store write failed")

	// ErrStoreRead indicates the knowledge store could not be searched,
	// including when no collection has been ingested yet
	ErrStoreRead = errors.New("knowledge store read failed")

	// ErrStoreBusy indicates an ingestion is already in progress
	ErrStoreBusy = errors.New("knowledge store busy")

	// ErrExtraction indicates the schedule could not be extracted from the evidence
	ErrExtraction = errors.New("schedule extraction failed")

	// ErrReasoning indicates the compliance reasoning call failed
	ErrReasoning = errors.New("compliance reasoning failed")

	// ErrInvalidRequest indicates the request has no input or too many files
	ErrInvalidRequest = errors.New("invalid request")
)
