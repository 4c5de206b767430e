package web

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/R3E-Network/model_layer/internal/errors"
)

type errorDetail struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data,omitempty"`
	ReqUUID string      `json:"req_uuid"`
}

type errorBody struct {
	ID    json.RawMessage `json:"id,omitempty"`
	Error errorDetail     `json:"error"`
}

type resultBody struct {
	Result interface{} `json:"result"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// WriteError is the one place internal errors become client responses. The
// error is kept on the request for the log line; the body only carries the
// client code, its detail and the request uuid.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, client := errors.ToClient(err)
	body := errorBody{Error: errorDetail{Type: client.Type, Data: client.Data}}

	if info := requestInfoFrom(r.Context()); info != nil {
		info.err = err
		body.Error.ReqUUID = info.uuid.String()
		body.ID = info.rpcID
	} else {
		body.Error.ReqUUID = uuid.NewString()
	}
	writeJSON(w, status, body)
}
