package app

import (
	"strings"

	"github.com/artpar/specgate/core/api"
	"github.com/artpar/specgate/core/validation"
	"github.com/artpar/specgate/domain/command"
)

// Echo answers with what it was given: query parameters, path parts and the
// say and shout commands of the payload.
type Echo struct{}

// Execute serves a request.
func (Echo) Execute(req api.Request, rsp *api.Response) error {
	if req.Param("verbose") == "true" {
		rsp.Add("method", req.Method())
		rsp.Add("path", req.Path())
	}

	params := make(map[string]any, len(req.Params()))
	for k, vs := range req.Params() {
		if len(vs) == 1 {
			params[k] = vs[0]
		} else {
			params[k] = vs
		}
	}
	rsp.Add("params", params)
	rsp.Add("parts", req.PathParts())

	ops := req.Commands()
	for _, op := range ops {
		switch op.Name {
		case "say":
			rsp.Append("said", op.Str(""))
		case "shout":
			rsp.Append("shouted", shout(op))
		default:
			rsp.Append("ignored", op.Name)
		}
	}
	if errs := command.CaptureErrors(ops); len(errs) > 0 {
		return &validation.PayloadError{Errors: errs}
	}
	return nil
}

func shout(op *command.Operation) string {
	text := strings.ToUpper(op.Str("text")) + "!"
	times := 1
	if m, ok := op.Data.(map[string]any); ok {
		// JSON numbers decode as float64.
		if n, ok := m["times"].(float64); ok && n >= 1 {
			times = int(n)
		}
	}
	return strings.TrimSpace(strings.Repeat(text+" ", times))
}
