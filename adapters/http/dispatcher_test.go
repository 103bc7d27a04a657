package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	apihttp "github.com/artpar/specgate/adapters/http"
	"github.com/artpar/specgate/adapters/metrics"
	"github.com/artpar/specgate/core/api"
	"github.com/artpar/specgate/core/registry"
	"github.com/artpar/specgate/domain/spec"
	"github.com/artpar/specgate/pkg/jsonapi"
)

const itemsSpec = `{
	"description": "Items",
	"methods": ["GET", "POST"],
	"url": {
		"paths": ["/items", "/items/{id}"],
		"parts": {"id": {"type": "string", "description": "Item id"}}
	},
	"commands": {
		"add": {"type": "object", "required": ["name"], "properties": {"name": {"type": "string"}}},
		"remove": {"type": "string"}
	}
}`

type permissioned struct {
	api.HandlerFunc
}

func (permissioned) PermissionName(req api.Request) string {
	return "items:" + strings.ToLower(req.Method())
}

func setupDispatcher(t *testing.T, validate bool) (*apihttp.Dispatcher, *metrics.Collector, *prometheus.Registry) {
	t.Helper()

	s, err := spec.Parse([]byte(itemsSpec))
	if err != nil {
		t.Fatalf("parse spec: %v", err)
	}

	handler := permissioned{api.HandlerFunc(func(req api.Request, rsp *api.Response) error {
		if req.PathPart("id") == "boom" {
			return errors.New("storage offline")
		}
		if req.PathPart("id") == "gone" {
			return api.Errorf(http.StatusGone, "item is gone")
		}
		rsp.Add("id", req.PathPart("id"))
		for _, op := range req.Commands() {
			rsp.Append("applied", op.Name)
		}
		return nil
	})}

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	r := registry.New(zerolog.Nop(), registry.WithMetrics(m))
	if err := r.Register(api.New(s, handler), nil); err != nil {
		t.Fatalf("register: %v", err)
	}

	d := apihttp.NewDispatcher(r, zerolog.Nop(), apihttp.DispatcherConfig{
		BasePath:         "/api",
		ValidateCommands: validate,
		Metrics:          m,
	})
	return d, m, reg
}

func decodeErrors(t *testing.T, w *httptest.ResponseRecorder) jsonapi.Document {
	t.Helper()
	var doc jsonapi.Document
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode error document: %v (%s)", err, w.Body.String())
	}
	if len(doc.Errors) == 0 {
		t.Fatalf("expected errors, got %s", w.Body.String())
	}
	return doc
}

func TestDispatcher_Routes(t *testing.T) {
	d, _, _ := setupDispatcher(t, true)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"collection", "GET", "/api/items", http.StatusOK, `{"id":""}`},
		{"item", "GET", "/api/items/42", http.StatusOK, `{"id":"42"}`},
		{"outside base path", "GET", "/items/42", http.StatusNotFound, "route_not_found"},
		{"unbound path", "GET", "/api/orders", http.StatusNotFound, "route_not_found"},
		{"unbound method", "DELETE", "/api/items/42", http.StatusMethodNotAllowed, "method_not_allowed"},
		{"handler error", "GET", "/api/items/boom", http.StatusInternalServerError, "storage offline"},
		{"status error", "GET", "/api/items/gone", http.StatusGone, "item is gone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			d.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestDispatcher_MethodNotAllowedListsMethods(t *testing.T) {
	d, _, _ := setupDispatcher(t, true)

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest("PUT", "/api/items", nil))

	if allow := w.Header().Get("Allow"); allow != "GET, POST" {
		t.Errorf("Allow = %q", allow)
	}
}

func TestDispatcher_Introspect(t *testing.T) {
	d, _, _ := setupDispatcher(t, true)

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest("GET", "/api/items/_introspect?command=add", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	var body struct {
		Spec []spec.Spec `json:"spec"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Spec) != 1 {
		t.Fatalf("spec = %s", w.Body.String())
	}
	if names := body.Spec[0].CommandNames(); len(names) != 1 || names[0] != "add" {
		t.Errorf("narrowed commands = %v", names)
	}
}

func TestDispatcher_ValidCommands(t *testing.T) {
	d, _, _ := setupDispatcher(t, true)

	body := `[{"add": {"name": "pen"}}, {"remove": "cup"}]`
	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest("POST", "/api/items", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"id":"","applied":["add","remove"]}` {
		t.Errorf("body = %s", got)
	}
	if perm := w.Header().Get(apihttp.PermissionHeader); perm != "items:post" {
		t.Errorf("%s = %q", apihttp.PermissionHeader, perm)
	}
}

func TestDispatcher_InvalidCommandsReportEveryEntry(t *testing.T) {
	d, _, reg := setupDispatcher(t, true)

	body := `{"add": {}, "remove": 3, "rename": "x"}`
	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest("POST", "/api/items", strings.NewReader(body)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	doc := decodeErrors(t, w)
	if doc.Errors[0].Code != "invalid_command_payload" {
		t.Errorf("code = %s", doc.Errors[0].Code)
	}
	entries, ok := doc.Errors[0].Meta["errors"].([]any)
	if !ok || len(entries) != 3 {
		t.Fatalf("meta.errors = %v", doc.Errors[0].Meta["errors"])
	}
	last := entries[2].(map[string]any)
	if last["name"] != "rename" {
		t.Errorf("last entry = %v", last)
	}
	msgs := last["errorMessages"].([]any)
	if msgs[0] != "Unknown operation 'rename' available ops are '[add remove]'" {
		t.Errorf("message = %v", msgs[0])
	}

	families, _ := reg.Gather()
	var failures float64
	for _, f := range families {
		if f.GetName() == "specgate_command_validation_failures_total" {
			for _, m := range f.GetMetric() {
				failures += m.GetCounter().GetValue()
			}
		}
	}
	if failures != 3 {
		t.Errorf("command failures = %v, want 3", failures)
	}
}

func TestDispatcher_MalformedPayload(t *testing.T) {
	d, _, _ := setupDispatcher(t, true)

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest("POST", "/api/items", strings.NewReader(`{"add": `)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if doc := decodeErrors(t, w); doc.Errors[0].Code != "malformed_payload" {
		t.Errorf("code = %s", doc.Errors[0].Code)
	}
}

func TestDispatcher_ValidationDisabled(t *testing.T) {
	d, _, _ := setupDispatcher(t, false)

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest("POST", "/api/items", strings.NewReader(`{"rename": "x"}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"applied":["rename"]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestDispatcher_BodyTooLarge(t *testing.T) {
	s, _ := spec.Parse([]byte(itemsSpec))
	r := registry.New(zerolog.Nop())
	r.Register(api.New(s, api.HandlerFunc(func(api.Request, *api.Response) error { return nil })), nil)
	d := apihttp.NewDispatcher(r, zerolog.Nop(), apihttp.DispatcherConfig{MaxBodyBytes: 8, ValidateCommands: true})

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest("POST", "/items", strings.NewReader(`{"remove": "a long name"}`)))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestDispatcher_RootBasePath(t *testing.T) {
	s, _ := spec.Parse([]byte(`{"methods": ["GET"], "url": {"paths": ["/"]}}`))
	r := registry.New(zerolog.Nop())
	r.Register(api.New(s, api.HandlerFunc(func(req api.Request, rsp *api.Response) error {
		rsp.Add("root", true)
		return nil
	})), nil)

	for _, base := range []string{"", "/"} {
		d := apihttp.NewDispatcher(r, zerolog.Nop(), apihttp.DispatcherConfig{BasePath: base})
		w := httptest.NewRecorder()
		d.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		if w.Code != http.StatusOK {
			t.Errorf("base %q: status = %d (%s)", base, w.Code, w.Body.String())
		}
	}
}
