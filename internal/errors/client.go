package errors

import "net/http"

// Client error codes. These strings are part of the wire contract.
const (
	CodeLoginFail      = "LOGIN_FAIL"
	CodeNoAuth         = "NO_AUTH"
	CodeEntityNotFound = "ENTITY_NOT_FOUND"
	CodeInvalidParams  = "INVALID_PARAMS"
	CodeMethodNotFound = "METHOD_NOT_FOUND"
	CodeRateLimited    = "RATE_LIMITED"
	CodeServiceError   = "SERVICE_ERROR"
)

// ClientError is the error payload exposed to callers.
type ClientError struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// EntityRef is the detail of an ENTITY_NOT_FOUND client error.
type EntityRef struct {
	Entity string `json:"entity"`
	ID     int64  `json:"id"`
}

// ToClient maps any error to an HTTP status and a client error.
// Only the discriminant, and for ENTITY_NOT_FOUND the entity reference,
// leave the service.
func ToClient(err error) (int, ClientError) {
	se := GetServiceError(err)
	if se == nil {
		return http.StatusInternalServerError, ClientError{Type: CodeServiceError}
	}

	switch se.Kind {
	case KindLoginFailed:
		return http.StatusForbidden, ClientError{Type: CodeLoginFail}
	case KindAuthRequired, KindAuthFailed:
		return http.StatusForbidden, ClientError{Type: CodeNoAuth}
	case KindEntityNotFound:
		return http.StatusBadRequest, ClientError{
			Type: CodeEntityNotFound,
			Data: EntityRef{Entity: se.Entity, ID: se.ID},
		}
	case KindSchemaViolation, KindParamDecodeFailure:
		return http.StatusBadRequest, ClientError{Type: CodeInvalidParams}
	case KindMethodNotFound:
		return http.StatusBadRequest, ClientError{Type: CodeMethodNotFound}
	case KindRateLimited:
		return http.StatusTooManyRequests, ClientError{Type: CodeRateLimited}
	default:
		return http.StatusInternalServerError, ClientError{Type: CodeServiceError}
	}
}
