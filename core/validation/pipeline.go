package validation

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/artpar/specgate/domain/command"
)

// PayloadError reports every command of a payload that failed validation.
type PayloadError struct {
	Errors []command.ErrorEntry
}

func (e *PayloadError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, entry := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", entry.Name, strings.Join(entry.Errors, ", ")))
	}
	return "Error in command payload: " + strings.Join(msgs, "; ")
}

// HTTPStatus marks payload errors as bad requests.
func (e *PayloadError) HTTPStatus() int {
	return http.StatusBadRequest
}

// CommandOperations parses a payload and validates it against set.
// Unparsable input fails with an error wrapping command.ErrMalformedPayload.
func CommandOperations(r io.Reader, set Set, enabled bool) ([]*command.Operation, error) {
	ops, err := command.Parse(r)
	if err != nil {
		return nil, err
	}
	return Validate(ops, set, enabled)
}

// Validate checks ops against set. When validation is disabled or set is nil,
// ops is returned as is. Otherwise ops is left untouched and a validated copy
// is returned; if any command fails, the result is a *PayloadError listing
// all of them.
func Validate(ops []*command.Operation, set Set, enabled bool) ([]*command.Operation, error) {
	if !enabled || set == nil {
		return ops, nil
	}

	validated := command.Clone(ops)
	for _, op := range validated {
		v, ok := set[op.Name]
		if !ok {
			op.AddError(fmt.Sprintf("Unknown operation '%s' available ops are '%v'", op.Name, set.Names()))
			continue
		}
		for _, msg := range v.Validate(op.Data) {
			op.AddError(msg)
		}
	}

	if errs := command.CaptureErrors(validated); len(errs) > 0 {
		return nil, &PayloadError{Errors: errs}
	}
	return validated, nil
}
