// Package rpc routes JSON-RPC style calls to model operations.
//
// A call is {"id": any, "method": string, "params": any}. The method name is
// looked up in a table filled at startup; each entry decodes its own params
// and runs one model operation. Unknown methods and malformed params are
// rejected before the store is touched.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/R3E-Network/model_layer/internal/errors"
	"github.com/R3E-Network/model_layer/internal/identity"
	"github.com/R3E-Network/model_layer/internal/model"
)

// Request is the call envelope. ID is echoed back untouched.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the success envelope. An absent request id is echoed as null.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Result any             `json:"result"`
}

// Handler runs one method.
type Handler func(ctx context.Context, c identity.Ctx, mm *model.Manager, params json.RawMessage) (any, error)

// Dispatcher maps method names to handlers. It is filled at startup and read
// concurrently afterwards.
type Dispatcher struct {
	mm      *model.Manager
	methods map[string]Handler
}

// NewDispatcher returns an empty dispatcher bound to mm.
func NewDispatcher(mm *model.Manager) *Dispatcher {
	return &Dispatcher{mm: mm, methods: make(map[string]Handler)}
}

// Register adds a method. Registering a name twice is an error.
func (d *Dispatcher) Register(name string, h Handler) error {
	if name == "" {
		return fmt.Errorf("rpc: empty method name")
	}
	if h == nil {
		return fmt.Errorf("rpc: nil handler for %s", name)
	}
	if _, dup := d.methods[name]; dup {
		return fmt.Errorf("rpc: method %s already registered", name)
	}
	d.methods[name] = h
	return nil
}

// MustRegister is Register for startup code.
func (d *Dispatcher) MustRegister(name string, h Handler) {
	if err := d.Register(name, h); err != nil {
		panic(err)
	}
}

// Methods lists the registered method names in order.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.methods))
	for name := range d.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch resolves req.Method and runs it for caller c.
func (d *Dispatcher) Dispatch(ctx context.Context, c identity.Ctx, req Request) (Response, error) {
	h, ok := d.methods[req.Method]
	if !ok {
		return Response{}, errors.MethodNotFound(req.Method)
	}
	result, err := h(ctx, c, d.mm, req.Params)
	if err != nil {
		return Response{}, err
	}
	return Response{ID: req.ID, Result: result}, nil
}

// DecodeRequest parses a call envelope.
func DecodeRequest(body []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Request{}, errors.ParamDecodeFailure("invalid rpc envelope", err)
	}
	if req.Method == "" {
		return Request{}, errors.ParamDecodeFailure("rpc envelope has no method", nil)
	}
	return req, nil
}
