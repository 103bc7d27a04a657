package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Parse reads a command payload. Two shapes are accepted:
//
//	{"add": {...}, "delete": "x", "add": {...}}
//	[{"add": {...}}, {"delete": "x"}]
//
// Operations keep the order they appear in, and a name may repeat.
func Parse(r io.Reader) ([]*Operation, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty body", ErrMalformedPayload)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var ops []*Operation
	switch tok {
	case json.Delim('{'):
		ops, err = parseObject(dec)
	case json.Delim('['):
		ops, err = parseArray(dec)
	default:
		return nil, fmt.Errorf("%w: expected an object or an array, got %v", ErrMalformedPayload, tok)
	}
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after payload", ErrMalformedPayload)
	}
	return ops, nil
}

// parseObject reads the members of an object whose opening brace was consumed.
func parseObject(dec *json.Decoder) ([]*Operation, error) {
	var ops []*Operation
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected a command name, got %v", ErrMalformedPayload, tok)
		}

		var data any
		if err := dec.Decode(&data); err != nil {
			return nil, fmt.Errorf("%w: command %q: %v", ErrMalformedPayload, name, err)
		}
		ops = append(ops, New(name, data))
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return ops, nil
}

func parseArray(dec *json.Decoder) ([]*Operation, error) {
	var ops []*Operation
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if tok != json.Delim('{') {
			return nil, fmt.Errorf("%w: array entries must be objects, got %v", ErrMalformedPayload, tok)
		}
		entry, err := parseObject(dec)
		if err != nil {
			return nil, err
		}
		ops = append(ops, entry...)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return ops, nil
}
