// Package errdefs defines the error kinds surfaced by the skylift core.
//
// Callers should use the Is* predicates rather than matching on error
// strings; the predicates traverse wrapped errors.
package errdefs

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks invalid or duplicate provider/catalog setup.
type ErrConfiguration interface {
	Configuration() bool
	error
}

// ErrNotFound marks lookups for providers, clusters, or sessions that
// do not exist.
type ErrNotFound interface {
	NotFound() bool
	error
}

// ErrAlreadyExists marks attempts to create something that is already
// present, such as bringing up a local cluster twice.
type ErrAlreadyExists interface {
	AlreadyExists() bool
	error
}

// ErrNoFeasibleResource marks an optimization run whose feasible set was
// empty after filtering.
type ErrNoFeasibleResource interface {
	NoFeasibleResource() bool
	error
}

// ErrProvisioningTimeout marks a provisioning attempt that did not reach
// readiness within its configured timeout.
type ErrProvisioningTimeout interface {
	ProvisioningTimeout() bool
	error
}

// ErrProviderAPI wraps a failure from an underlying provider API. The core
// never retries these; retry policy belongs to the caller.
type ErrProviderAPI interface {
	ProviderAPI() bool
	error
}

type configurationError struct{ error }

func (e *configurationError) Configuration() bool { return true }
func (e *configurationError) Unwrap() error       { return e.error }

// Configuration makes an ErrConfiguration from the provided message.
func Configuration(msg string) error {
	return &configurationError{errors.New(msg)}
}

// Configurationf makes an ErrConfiguration from the provided format and args.
func Configurationf(format string, args ...interface{}) error {
	return &configurationError{fmt.Errorf(format, args...)}
}

// AsConfiguration wraps the passed in error to make it an ErrConfiguration.
func AsConfiguration(err error) error {
	if err == nil {
		return nil
	}
	return &configurationError{err}
}

// IsConfiguration determines if the passed in error is an ErrConfiguration.
func IsConfiguration(err error) bool {
	var e ErrConfiguration
	return errors.As(err, &e) && e.Configuration()
}

type notFoundError struct{ error }

func (e *notFoundError) NotFound() bool { return true }
func (e *notFoundError) Unwrap() error  { return e.error }

// NotFound makes an ErrNotFound from the provided message.
func NotFound(msg string) error {
	return &notFoundError{errors.New(msg)}
}

// NotFoundf makes an ErrNotFound from the provided format and args.
func NotFoundf(format string, args ...interface{}) error {
	return &notFoundError{fmt.Errorf(format, args...)}
}

// AsNotFound wraps the passed in error to make it an ErrNotFound.
func AsNotFound(err error) error {
	if err == nil {
		return nil
	}
	return &notFoundError{err}
}

// IsNotFound determines if the passed in error is an ErrNotFound.
func IsNotFound(err error) bool {
	var e ErrNotFound
	return errors.As(err, &e) && e.NotFound()
}

type alreadyExistsError struct{ error }

func (e *alreadyExistsError) AlreadyExists() bool { return true }
func (e *alreadyExistsError) Unwrap() error       { return e.error }

// AlreadyExists makes an ErrAlreadyExists from the provided message.
func AlreadyExists(msg string) error {
	return &alreadyExistsError{errors.New(msg)}
}

// AlreadyExistsf makes an ErrAlreadyExists from the provided format and args.
func AlreadyExistsf(format string, args ...interface{}) error {
	return &alreadyExistsError{fmt.Errorf(format, args...)}
}

// IsAlreadyExists determines if the passed in error is an ErrAlreadyExists.
func IsAlreadyExists(err error) bool {
	var e ErrAlreadyExists
	return errors.As(err, &e) && e.AlreadyExists()
}

type noFeasibleResourceError struct{ error }

func (e *noFeasibleResourceError) NoFeasibleResource() bool { return true }
func (e *noFeasibleResourceError) Unwrap() error            { return e.error }

// NoFeasibleResource makes an ErrNoFeasibleResource from the provided message.
func NoFeasibleResource(msg string) error {
	return &noFeasibleResourceError{errors.New(msg)}
}

// NoFeasibleResourcef makes an ErrNoFeasibleResource from the provided
// format and args.
func NoFeasibleResourcef(format string, args ...interface{}) error {
	return &noFeasibleResourceError{fmt.Errorf(format, args...)}
}

// IsNoFeasibleResource determines if the passed in error is an
// ErrNoFeasibleResource.
func IsNoFeasibleResource(err error) bool {
	var e ErrNoFeasibleResource
	return errors.As(err, &e) && e.NoFeasibleResource()
}

type provisioningTimeoutError struct{ error }

func (e *provisioningTimeoutError) ProvisioningTimeout() bool { return true }
func (e *provisioningTimeoutError) Unwrap() error             { return e.error }

// ProvisioningTimeout makes an ErrProvisioningTimeout from the provided message.
func ProvisioningTimeout(msg string) error {
	return &provisioningTimeoutError{errors.New(msg)}
}

// ProvisioningTimeoutf makes an ErrProvisioningTimeout from the provided
// format and args.
func ProvisioningTimeoutf(format string, args ...interface{}) error {
	return &provisioningTimeoutError{fmt.Errorf(format, args...)}
}

// IsProvisioningTimeout determines if the passed in error is an
// ErrProvisioningTimeout.
func IsProvisioningTimeout(err error) bool {
	var e ErrProvisioningTimeout
	return errors.As(err, &e) && e.ProvisioningTimeout()
}

type providerAPIError struct{ error }

func (e *providerAPIError) ProviderAPI() bool { return true }
func (e *providerAPIError) Unwrap() error     { return e.error }

// ProviderAPI makes an ErrProviderAPI from the provided message.
func ProviderAPI(msg string) error {
	return &providerAPIError{errors.New(msg)}
}

// ProviderAPIf makes an ErrProviderAPI from the provided format and args.
func ProviderAPIf(format string, args ...interface{}) error {
	return &providerAPIError{fmt.Errorf(format, args...)}
}

// AsProviderAPI wraps the passed in error to make it an ErrProviderAPI,
// preserving the underlying cause for errors.Is/As.
func AsProviderAPI(err error) error {
	if err == nil {
		return nil
	}
	return &providerAPIError{err}
}

// IsProviderAPI determines if the passed in error is an ErrProviderAPI.
func IsProviderAPI(err error) bool {
	var e ErrProviderAPI
	return errors.As(err, &e) && e.ProviderAPI()
}
