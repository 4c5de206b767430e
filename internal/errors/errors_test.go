package errors

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToClient(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"login", LoginFailed("username not found"), http.StatusForbidden, CodeLoginFail},
		{"auth required", AuthRequired("no cookie"), http.StatusForbidden, CodeNoAuth},
		{"auth failed", AuthFailed("bad token", nil), http.StatusForbidden, CodeNoAuth},
		{"not found", EntityNotFound("task", 999), http.StatusBadRequest, CodeEntityNotFound},
		{"schema", SchemaViolation("task", "nope", "unknown field"), http.StatusBadRequest, CodeInvalidParams},
		{"params", ParamDecodeFailure("missing id", nil), http.StatusBadRequest, CodeInvalidParams},
		{"method", MethodNotFound("nuke_all"), http.StatusBadRequest, CodeMethodNotFound},
		{"rate", RateLimited("10.0.0.1"), http.StatusTooManyRequests, CodeRateLimited},
		{"store", StoreFailure(sql.ErrConnDone), http.StatusInternalServerError, CodeServiceError},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError, CodeServiceError},
		{"wrapped", fmt.Errorf("rpc: %w", EntityNotFound("task", 1)), http.StatusBadRequest, CodeEntityNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, ce := ToClient(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, ce.Type)
		})
	}
}

func TestToClient_EntityNotFoundCarriesRef(t *testing.T) {
	_, ce := ToClient(EntityNotFound("task", 42))
	assert.Equal(t, EntityRef{Entity: "task", ID: 42}, ce.Data)
}

func TestToClient_StoreFailureHidesCause(t *testing.T) {
	_, ce := ToClient(StoreFailure(stderrors.New(`pq: relation "task" does not exist`)))
	assert.Nil(t, ce.Data)
}

func TestServiceError_IsAndUnwrap(t *testing.T) {
	cause := sql.ErrConnDone
	err := fmt.Errorf("list: %w", StoreFailure(cause))

	assert.True(t, stderrors.Is(err, StoreFailure(nil)))
	assert.False(t, stderrors.Is(err, EntityNotFound("", 0)))
	assert.True(t, stderrors.Is(err, sql.ErrConnDone))

	se := GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, KindStoreFailure, se.Kind)
	assert.True(t, IsKind(err, KindStoreFailure))
}

func TestServiceError_Error(t *testing.T) {
	assert.Equal(t, "EntityNotFound: task 7", EntityNotFound("task", 7).Error())
	assert.Equal(t, "MethodNotFound: x", MethodNotFound("x").Error())
	assert.Contains(t, SchemaViolation("task", "f", "unknown field").Error(), "task.f")
}
