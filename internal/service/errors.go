package service

import (
	"errors"
	"fmt"
)

var (
	// ErrOfferNotFound is returned when no offer exists under the given id.
	ErrOfferNotFound = errors.New("offer not found")
	// ErrCompanyNotFound is returned when no cached company matches.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrInvalidID is returned when an offer id is not a valid UUID.
	ErrInvalidID = errors.New("invalid offer ID format")
)

// ValidationError reports malformed caller input (bad date format,
// disallowed status value, disallowed upload content type).
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// PreconditionError reports an offer that is not in a state the requested
// operation can run from (missing description, missing CRM link, missing
// document). Checked locally, before any external call.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

// UpstreamError reports a failed call to an external collaborator (AI, PDF
// renderer or CRM). Detail carries the upstream status/body for diagnostics.
type UpstreamError struct {
	Service string
	Detail  string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("upstream %s failure: %s", e.Service, e.Detail)
	}
	return fmt.Sprintf("upstream %s failure", e.Service)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func upstream(service string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Detail: err.Error(), Err: err}
}
