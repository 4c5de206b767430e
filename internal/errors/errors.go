// Package errors defines the error taxonomy shared by the model, rpc and web layers.
//
// Internal failures are represented by *ServiceError values tagged with a Kind.
// They travel unchanged up to the HTTP boundary, where ToClient maps them once
// into the stable client-facing codes.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind discriminates internal failures.
type Kind string

const (
	KindSchemaViolation    Kind = "SchemaViolation"
	KindEntityNotFound     Kind = "EntityNotFound"
	KindStoreFailure       Kind = "StoreFailure"
	KindMethodNotFound     Kind = "MethodNotFound"
	KindParamDecodeFailure Kind = "ParamDecodeFailure"
	KindAuthRequired       Kind = "AuthRequired"
	KindAuthFailed         Kind = "AuthFailed"
	KindLoginFailed        Kind = "LoginFailed"
	KindRateLimited        Kind = "RateLimited"
)

// ServiceError is the single internal error type of the service.
type ServiceError struct {
	Kind    Kind
	Message string

	// Entity and ID are only set for KindEntityNotFound.
	Entity string
	ID     int64

	Details map[string]interface{}
	Cause   error
}

// Error implements error.
func (e *ServiceError) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Kind == KindEntityNotFound {
		msg = fmt.Sprintf("%s: %s %d", e.Kind, e.Entity, e.ID)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is matches on Kind so callers can write errors.Is(err, errors.EntityNotFound("", 0)).
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetails attaches a key/value detail and returns the same error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// GetServiceError extracts a *ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// IsKind reports whether err carries a ServiceError of the given kind.
func IsKind(err error, kind Kind) bool {
	se := GetServiceError(err)
	return se != nil && se.Kind == kind
}

// SchemaViolation reports a reference to a field the entity does not declare,
// or an operator the field type cannot support.
func SchemaViolation(entity, field, reason string) *ServiceError {
	return (&ServiceError{
		Kind:    KindSchemaViolation,
		Message: fmt.Sprintf("%s.%s: %s", entity, field, reason),
	}).WithDetails("entity", entity).WithDetails("field", field)
}

// EntityNotFound reports that no row with the given primary key exists.
func EntityNotFound(entity string, id int64) *ServiceError {
	return &ServiceError{Kind: KindEntityNotFound, Entity: entity, ID: id}
}

// StoreFailure wraps an error returned by the backing store or its pool.
func StoreFailure(cause error) *ServiceError {
	return &ServiceError{Kind: KindStoreFailure, Cause: cause}
}

// MethodNotFound reports an RPC method missing from the dispatch table.
func MethodNotFound(method string) *ServiceError {
	return (&ServiceError{Kind: KindMethodNotFound, Message: method}).WithDetails("method", method)
}

// ParamDecodeFailure reports params that do not fit the shape the method expects.
func ParamDecodeFailure(reason string, cause error) *ServiceError {
	return &ServiceError{Kind: KindParamDecodeFailure, Message: reason, Cause: cause}
}

// AuthRequired reports a request without a usable caller identity.
func AuthRequired(reason string) *ServiceError {
	return &ServiceError{Kind: KindAuthRequired, Message: reason}
}

// AuthFailed reports an identity that was presented but could not be verified.
func AuthFailed(reason string, cause error) *ServiceError {
	return &ServiceError{Kind: KindAuthFailed, Message: reason, Cause: cause}
}

// LoginFailed reports a rejected login attempt.
func LoginFailed(reason string) *ServiceError {
	return &ServiceError{Kind: KindLoginFailed, Message: reason}
}

// RateLimited reports a caller over its request budget.
func RateLimited(key string) *ServiceError {
	return (&ServiceError{Kind: KindRateLimited}).WithDetails("key", key)
}
