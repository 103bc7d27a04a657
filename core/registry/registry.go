// Package registry binds operations to (method, path) pairs.
// Every registered operation is reachable under each method its spec declares,
// at every path template, and its introspection counterpart is bound at the
// same templates followed by /_introspect.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/specgate/adapters/metrics"
	"github.com/artpar/specgate/core/api"
	"github.com/artpar/specgate/core/validation"
	"github.com/artpar/specgate/domain/pathtrie"
	"github.com/artpar/specgate/domain/spec"
)

// binding is what a route resolves to.
type binding struct {
	op         api.Operation
	validators validation.Set
	introspect bool
}

// Match is the result of a successful lookup.
type Match struct {
	Operation api.Operation
	// Parts holds the values captured by path wildcards.
	Parts map[string]string
	// Validators holds the compiled command schemas of the operation, nil
	// when it declares no commands.
	Validators validation.Set
	Method     string
	Template   string
}

// RouteInfo describes a bound route.
type RouteInfo struct {
	Method      string `json:"method"`
	Template    string `json:"template"`
	Introspect  bool   `json:"introspect"`
	Description string `json:"description,omitempty"`
}

// RegistrationError is returned when an operation cannot be registered.
// Nothing of the operation is bound when it is returned.
type RegistrationError struct {
	Paths []string
	Err   error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s: %v", strings.Join(e.Paths, ", "), e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Registry owns one router per HTTP method.
type Registry struct {
	// regMu serializes registrations.
	regMu sync.Mutex

	mu      sync.RWMutex
	routers map[string]*pathtrie.Trie[binding]

	logger  zerolog.Logger
	metrics *metrics.Collector
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetrics records registrations and lookups in m.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New creates an empty registry.
func New(logger zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		routers: make(map[string]*pathtrie.Trie[binding]),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// prepared is a fully validated registration, ready to insert.
type prepared struct {
	spec       spec.Spec
	validators validation.Set
	templates  []pathtrie.Template
	introspect []pathtrie.Template
}

// Check validates a spec the way Register does, without binding anything.
func Check(s spec.Spec, subst map[string]string) error {
	_, err := prepare(s, subst)
	return err
}

func prepare(s spec.Spec, subst map[string]string) (prepared, error) {
	if err := spec.Validate(s); err != nil {
		return prepared{}, err
	}

	validators, err := validation.CompileSpec(s)
	if err != nil {
		return prepared{}, err
	}

	p := prepared{spec: s, validators: validators}
	for _, path := range s.URL.Paths {
		tpl, err := pathtrie.Compile(path, subst)
		if err != nil {
			return prepared{}, err
		}
		intro, err := pathtrie.Compile(path+"/"+spec.IntrospectSegment, subst)
		if err != nil {
			return prepared{}, err
		}
		p.templates = append(p.templates, tpl)
		p.introspect = append(p.introspect, intro)
	}
	return p, nil
}

// Register binds op under every method and path of its spec. subst fills
// $name markers and renames {name} captures of the templates.
//
// The whole spec is validated, its command schemas compiled and its templates
// compiled before the first route is bound; any failure leaves the registry
// unchanged and is returned as a *RegistrationError.
func (r *Registry) Register(op api.Operation, subst map[string]string) error {
	s := op.Spec()

	r.regMu.Lock()
	defer r.regMu.Unlock()

	p, err := prepare(s, subst)
	if err != nil {
		for _, m := range s.Methods {
			r.metrics.ObserveRegistration(m, err)
		}
		r.logger.Error().
			Err(err).
			Strs("methods", s.Methods).
			Strs("paths", s.URL.Paths).
			Msg("operation registration failed")
		return &RegistrationError{Paths: s.URL.Paths, Err: err}
	}

	opBinding := binding{op: op, validators: p.validators}
	introBinding := binding{op: api.NewIntrospect(op), introspect: true}

	for _, method := range s.Methods {
		router := r.router(method)
		for i := range p.templates {
			router.Insert(p.templates[i], opBinding)
			router.Insert(p.introspect[i], introBinding)
		}
		r.metrics.ObserveRegistration(method, nil)
		r.metrics.SetRoutes(method, router.Len())
	}

	templates := make([]string, len(p.templates))
	for i, tpl := range p.templates {
		templates[i] = tpl.Source
	}
	r.logger.Info().
		Strs("methods", s.Methods).
		Strs("paths", templates).
		Strs("commands", s.CommandNames()).
		Msg("operation registered")
	return nil
}

// router returns the router of a method, creating it if needed.
func (r *Registry) router(method string) *pathtrie.Trie[binding] {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.routers[method]
	if !ok {
		t = pathtrie.New[binding](spec.IntrospectSegment)
		r.routers[method] = t
	}
	return t
}

// SpecConstructor builds the spec a handler declares.
type SpecConstructor interface {
	Construct(ctx context.Context, src spec.Source) (spec.Spec, error)
}

// LazyInfo describes a handler whose implementation is loaded on demand.
type LazyInfo struct {
	// Name is substituted for $handlerName in the spec's paths.
	Name string
	// Spec selects the spec; the zero Source selects the empty spec.
	Spec spec.Source
}

// RegisterLazy registers a deferred operation for holder. The operation
// answers with the spec built from info.Spec, whatever handler the holder
// eventually provides.
func (r *Registry) RegisterLazy(ctx context.Context, specs SpecConstructor, holder api.Holder, info LazyInfo) error {
	s, err := specs.Construct(ctx, info.Spec)
	if err != nil {
		r.logger.Error().Err(err).Str("handler", info.Name).Msg("lazy handler spec failed to load")
		return &RegistrationError{Paths: []string{info.Name}, Err: err}
	}
	return r.Register(api.NewDeferred(s, holder), map[string]string{spec.HandlerNameKey: info.Name})
}

// Lookup finds the operation bound to path. An empty method probes every
// method in SupportedMethods order and returns the first match.
func (r *Registry) Lookup(path, method string) (Match, bool) {
	m, ok := r.lookup(path, method)
	r.metrics.ObserveLookup(method, ok)
	return m, ok
}

func (r *Registry) lookup(path, method string) (Match, bool) {
	if method != "" {
		return r.lookupMethod(path, method)
	}
	for _, m := range r.Methods() {
		if match, ok := r.lookupMethod(path, m); ok {
			return match, true
		}
	}
	return Match{}, false
}

func (r *Registry) lookupMethod(path, method string) (Match, bool) {
	r.mu.RLock()
	router, ok := r.routers[method]
	r.mu.RUnlock()
	if !ok {
		return Match{}, false
	}

	res, ok := router.Match(path)
	if !ok {
		return Match{}, false
	}
	return Match{
		Operation:  res.Value.op,
		Parts:      res.Parts,
		Validators: res.Value.validators,
		Method:     method,
		Template:   res.Template,
	}, true
}

// Methods returns the methods that have a router, in SupportedMethods order.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	methods := make([]string, 0, len(r.routers))
	for _, m := range spec.SupportedMethods {
		if _, ok := r.routers[m]; ok {
			methods = append(methods, m)
		}
	}
	// Methods outside the supported list cannot pass validation; keep any
	// that exist anyway in a stable order.
	var extra []string
	for m := range r.routers {
		if !slices.Contains(spec.SupportedMethods, m) {
			extra = append(extra, m)
		}
	}
	sort.Strings(extra)
	return append(methods, extra...)
}

// Router is a read-only view of one method's routes.
type Router struct {
	method string
	trie   *pathtrie.Trie[binding]
}

// Router returns the routes of a method.
func (r *Registry) Router(method string) (Router, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.routers[method]
	return Router{method: method, trie: t}, ok
}

// Lookup finds the operation bound to path in this router.
func (rt Router) Lookup(path string) (api.Operation, map[string]string, bool) {
	if rt.trie == nil {
		return nil, nil, false
	}
	b, parts, ok := rt.trie.Lookup(path)
	return b.op, parts, ok
}

// Len returns the number of bound templates.
func (rt Router) Len() int {
	if rt.trie == nil {
		return 0
	}
	return rt.trie.Len()
}

// Routes lists every bound route, grouped by method and sorted by template.
func (r *Registry) Routes() []RouteInfo {
	var routes []RouteInfo
	for _, method := range r.Methods() {
		rt, _ := r.Router(method)
		rt.trie.Walk(func(template string, b binding) {
			routes = append(routes, RouteInfo{
				Method:      method,
				Template:    template,
				Introspect:  b.introspect,
				Description: b.op.Spec().Description,
			})
		})
	}
	return routes
}
