package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/artpar/specgate/core/api"
	"github.com/artpar/specgate/domain/spec"
)

func testSpec() spec.Spec {
	return spec.Spec{
		Methods: []string{"GET", "POST"},
		URL:     spec.URL{Paths: []string{"/p"}},
		Commands: map[string]spec.CommandSchema{
			"add":    spec.InlineSchema(map[string]any{"type": "object"}),
			"delete": spec.InlineSchema(map[string]any{"type": "string"}),
		},
	}
}

func request(params url.Values) api.Request {
	return api.NewRequest(context.Background(), http.MethodGet, "/p", params, nil, nil)
}

type namedHandler struct{}

func (namedHandler) Execute(api.Request, *api.Response) error { return nil }
func (namedHandler) PermissionName(req api.Request) string { return "read:" + req.Path() }

func TestNew_SpecIsolation(t *testing.T) {
	s := testSpec()
	op := api.New(s, api.HandlerFunc(func(api.Request, *api.Response) error { return nil }))

	s.Methods[0] = "DELETE"
	got := op.Spec()
	if got.Methods[0] != "GET" {
		t.Error("operation shares the spec passed to New")
	}

	got.Commands["add"].Inline["type"] = "array"
	if op.Spec().Commands["add"].Inline["type"] != "object" {
		t.Error("Spec() exposes internal storage")
	}
}

func TestPermissionNameOf(t *testing.T) {
	plain := api.New(testSpec(), api.HandlerFunc(func(api.Request, *api.Response) error { return nil }))
	if _, ok := api.PermissionNameOf(plain, request(nil)); ok {
		t.Error("plain operation should not declare a permission")
	}

	named := api.New(testSpec(), namedHandler{})
	name, ok := api.PermissionNameOf(named, request(nil))
	if !ok || name != "read:/p" {
		t.Errorf("PermissionNameOf() = %q, %v", name, ok)
	}
}

func TestResponse(t *testing.T) {
	rsp := api.NewResponse()
	rsp.Add("z", 1)
	rsp.Add("a", "two")
	rsp.Add("z", 3)
	rsp.Append("list", "x")
	rsp.Append("list", "y")
	rsp.Append("a", "three")

	if v, _ := rsp.Get("z"); v != 3 {
		t.Errorf("Get(z) = %v", v)
	}
	if _, ok := rsp.Get("missing"); ok {
		t.Error("Get(missing) should miss")
	}
	if rsp.Len() != 3 {
		t.Errorf("Len() = %d", rsp.Len())
	}

	data, err := json.Marshal(rsp)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	want := `{"z":3,"a":["two","three"],"list":["x","y"]}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var zero api.Response
	zero.Add("k", true)
	if v, ok := zero.Get("k"); !ok || v != true {
		t.Error("zero Response should be usable")
	}
}

func TestIntrospect(t *testing.T) {
	base := api.New(testSpec(), api.HandlerFunc(func(api.Request, *api.Response) error { return nil }))
	in := api.NewIntrospect(base)

	tests := []struct {
		name         string
		params       url.Values
		wantCommands []string
		wantZero     bool
	}{
		{"full spec", nil, []string{"add", "delete"}, false},
		{"narrowed", url.Values{"command": {"add"}}, []string{"add"}, false},
		{"absent command", url.Values{"command": {"rename"}}, []string{"rename"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsp := api.NewResponse()
			if err := in.Execute(request(tt.params), rsp); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			v, _ := rsp.Get(api.SpecKey)
			list := v.([]any)
			if len(list) != 1 {
				t.Fatalf("spec list = %v", list)
			}
			got := list[0].(spec.Spec)

			names := got.CommandNames()
			if len(names) != len(tt.wantCommands) {
				t.Fatalf("commands = %v, want %v", names, tt.wantCommands)
			}
			for i := range names {
				if names[i] != tt.wantCommands[i] {
					t.Errorf("commands = %v, want %v", names, tt.wantCommands)
				}
			}
			if tt.params == nil && !spec.Equal(got, testSpec()) {
				t.Error("full introspection should equal the registered spec")
			}
			if tt.wantZero && !got.Commands["rename"].IsZero() {
				t.Errorf("absent command = %+v, want zero", got.Commands["rename"])
			}
		})
	}
}

func TestIntrospect_SpecWithoutCommands(t *testing.T) {
	s := spec.Spec{Methods: []string{"GET"}, URL: spec.URL{Paths: []string{"/p"}}}
	in := api.NewIntrospect(api.New(s, api.HandlerFunc(func(api.Request, *api.Response) error { return nil })))

	rsp := api.NewResponse()
	if err := in.Execute(request(url.Values{"command": {"x"}}), rsp); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data, err := json.Marshal(rsp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"spec":[{"methods":["GET"],"url":{"paths":["/p"]}}]}`
	if string(data) != want {
		t.Errorf("response = %s, want %s", data, want)
	}
}

func TestIntrospect_Accumulates(t *testing.T) {
	a := api.NewIntrospect(api.New(testSpec(), api.HandlerFunc(func(api.Request, *api.Response) error { return nil })))
	other := testSpec()
	other.Description = "other"
	b := api.NewIntrospect(api.New(other, api.HandlerFunc(func(api.Request, *api.Response) error { return nil })))

	rsp := api.NewResponse()
	_ = a.Execute(request(nil), rsp)
	_ = b.Execute(request(nil), rsp)

	v, _ := rsp.Get(api.SpecKey)
	if list := v.([]any); len(list) != 2 || list[1].(spec.Spec).Description != "other" {
		t.Errorf("spec list = %v", list)
	}
}

type fakeHolder struct {
	loaded atomic.Bool
	gets   atomic.Int32
	h      api.Handler
}

func (f *fakeHolder) Loaded() bool { return f.loaded.Load() }
func (f *fakeHolder) Get() api.Handler {
	f.gets.Add(1)
	return f.h
}

func TestDeferred(t *testing.T) {
	var calls atomic.Int32
	holder := &fakeHolder{h: api.HandlerFunc(func(_ api.Request, rsp *api.Response) error {
		calls.Add(1)
		rsp.Add("ok", true)
		return nil
	})}

	placeholder := spec.Spec{Methods: []string{"GET"}, URL: spec.URL{Paths: []string{"/lazy"}}}
	d := api.NewDeferred(placeholder, holder)

	for i := 0; i < 3; i++ {
		if err := d.Execute(request(nil), api.NewResponse()); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
	}
	if holder.gets.Load() != 3 || d.Cached() {
		t.Errorf("before load: gets = %d, cached = %v", holder.gets.Load(), d.Cached())
	}

	holder.loaded.Store(true)
	for i := 0; i < 3; i++ {
		_ = d.Execute(request(nil), api.NewResponse())
	}
	if holder.gets.Load() != 4 || !d.Cached() {
		t.Errorf("after load: gets = %d, cached = %v", holder.gets.Load(), d.Cached())
	}
	if calls.Load() != 6 {
		t.Errorf("handler calls = %d, want 6", calls.Load())
	}

	if got := d.Spec(); !spec.Equal(got, placeholder) {
		t.Errorf("Spec() = %+v, want placeholder", got)
	}
}

func TestDeferred_ConcurrentFirstUse(t *testing.T) {
	holder := &fakeHolder{h: api.HandlerFunc(func(api.Request, *api.Response) error { return nil })}
	holder.loaded.Store(true)
	d := api.NewDeferred(spec.Spec{}, holder)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Execute(request(nil), api.NewResponse())
		}()
	}
	wg.Wait()

	if !d.Cached() {
		t.Error("handler should be cached")
	}
}

func TestDeferred_PermissionName(t *testing.T) {
	holder := &fakeHolder{h: namedHandler{}}
	d := api.NewDeferred(spec.Spec{}, holder)

	if _, ok := api.PermissionNameOf(d, request(nil)); ok {
		t.Error("unloaded deferred operation should not name a permission")
	}

	holder.loaded.Store(true)
	_ = d.Execute(request(nil), api.NewResponse())
	if name, ok := api.PermissionNameOf(d, request(nil)); !ok || name != "read:/p" {
		t.Errorf("PermissionNameOf() = %q, %v", name, ok)
	}
}

func TestStatusOf(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		err  error
		want int
	}{
		{api.Errorf(http.StatusNotFound, "no property %q", "x"), http.StatusNotFound},
		{api.BadRequest("bad", cause), http.StatusBadRequest},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := api.StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	if !errors.Is(api.BadRequest("bad", cause), cause) {
		t.Error("BadRequest should unwrap to its cause")
	}
}
