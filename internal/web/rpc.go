package web

import (
	"io"
	"net/http"
	"time"

	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/rpc"
)

const maxRPCBody = 1 << 20

func (s *Server) rpcHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRPCBody))
		if err != nil {
			WriteError(w, r, errors.ParamDecodeFailure("unreadable rpc body", err))
			return
		}
		req, err := rpc.DecodeRequest(body)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if info := requestInfoFrom(r.Context()); info != nil {
			info.rpcID = req.ID
			info.rpcMethod = req.Method
		}

		c, err, ok := identity.FromContext(r.Context())
		if !ok || err != nil {
			WriteError(w, r, errors.AuthRequired("rpc without ctx"))
			return
		}

		start := time.Now()
		resp, err := s.dispatcher.Dispatch(r.Context(), c, req)
		s.recordRPC(req.Method, err, time.Since(start))
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) recordRPC(method string, err error, d time.Duration) {
	code := "OK"
	if err != nil {
		_, client := errors.ToClient(err)
		code = client.Type
	}
	// Unknown names are caller-chosen; keep them out of the label set.
	if errors.IsKind(err, errors.KindMethodNotFound) {
		method = "unknown"
	}
	s.metrics.RecordRPC(method, code, d)
}
