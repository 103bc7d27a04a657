package api

import (
	"bytes"
	"context"
	"io"
	"net/url"

	"github.com/artpar/specgate/domain/command"
)

// Request is what an operation sees of an incoming call.
type Request interface {
	Context() context.Context
	Method() string
	Path() string

	// Param returns the first value of a query parameter.
	Param(name string) string
	Params() url.Values

	// PathPart returns a value captured by a path wildcard.
	PathPart(name string) string
	PathParts() map[string]string

	// Body returns the payload, or nil when the call has none.
	Body() io.Reader

	// Commands returns the validated command operations of the payload.
	// It is nil when the operation declares no commands or the call carries
	// no payload.
	Commands() []*command.Operation
}

// Call is the plain Request implementation.
type Call struct {
	ctx    context.Context
	method string
	path   string
	params url.Values
	parts  map[string]string
	body   io.Reader
	cmds   []*command.Operation
}

// NewRequest creates a Call. A nil params, parts or body is treated as empty.
func NewRequest(ctx context.Context, method, path string, params url.Values, parts map[string]string, body io.Reader) *Call {
	if ctx == nil {
		ctx = context.Background()
	}
	if params == nil {
		params = url.Values{}
	}
	if parts == nil {
		parts = map[string]string{}
	}
	return &Call{ctx: ctx, method: method, path: path, params: params, parts: parts, body: body}
}

// WithCommands returns a copy of c carrying validated command operations.
func (c *Call) WithCommands(ops []*command.Operation) *Call {
	cp := *c
	cp.cmds = ops
	return &cp
}

// WithBody returns a copy of c carrying the given payload.
func (c *Call) WithBody(body []byte) *Call {
	cp := *c
	cp.body = bytes.NewReader(body)
	return &cp
}

func (c *Call) Context() context.Context { return c.ctx }
func (c *Call) Method() string { return c.method }
func (c *Call) Path() string { return c.path }
func (c *Call) Param(name string) string { return c.params.Get(name) }
func (c *Call) Params() url.Values { return c.params }
func (c *Call) PathPart(name string) string { return c.parts[name] }
func (c *Call) PathParts() map[string]string { return c.parts }
func (c *Call) Body() io.Reader { return c.body }
func (c *Call) Commands() []*command.Operation { return c.cmds }
