// Package handlerregistry defines the plug-in contract model handlers
// implement (Load/Infer/Unload per model_type) and the registry the worker
// looks handlers up in. Its Register/Get/List shape mirrors the teacher
// codebase's provider registry, keyed by model_type instead of provider
// name.
package handlerregistry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ferro-labs/hailo-devmgr/internal/device"
)

// ErrUnsupportedModel is returned by Get when no handler is registered for
// the requested model_type.
var ErrUnsupportedModel = errors.New("handlerregistry: unsupported model_type")

// Handler is implemented once per model_type. Load and Infer run entirely
// inside the worker's single goroutine: implementations must not spawn
// goroutines that touch the device context, or the daemon's serialization
// guarantee is broken.
type Handler interface {
	// Load acquires whatever runtime state Infer needs (a configured model,
	// a pair of sub-models, decoded static resources) against the shared
	// device context, and returns it as an opaque value.
	Load(ctx context.Context, dev *device.Context, modelPath string, params map[string]any) (runtime any, err error)

	// Infer runs one inference call against a previously loaded runtime.
	Infer(ctx context.Context, runtime any, input any) (result any, err error)

	// Unload releases any resources Load acquired.
	Unload(runtime any) error
}

// Registry looks up a Handler by model_type.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	schemas  map[string]*jsonschema.Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		schemas:  make(map[string]*jsonschema.Schema),
	}
}

// Register installs h under modelType, overwriting any previous
// registration for the same type.
func (r *Registry) Register(modelType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[modelType] = h
}

// RegisterParamsSchema attaches an optional JSON Schema that load_model's
// model_params must satisfy for modelType. Validation is opt-in per
// handler: model types with no registered schema skip this check entirely.
func (r *Registry) RegisterParamsSchema(modelType string, schema *jsonschema.Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[modelType] = schema
}

// ValidateParams validates params against modelType's registered schema, if
// any. Returns nil when no schema is registered for modelType.
func (r *Registry) ValidateParams(modelType string, params map[string]any) error {
	r.mu.RLock()
	schema, ok := r.schemas[modelType]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	// jsonschema validates against decoded JSON values (map[string]interface{}
	// with float64 numbers), which params already is once it has come
	// through encoding/json — a nil map validates as an empty object.
	instance := map[string]any(params)
	if instance == nil {
		instance = map[string]any{}
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("model_params failed validation: %w", err)
	}
	return nil
}

// Get returns the handler registered for modelType, or ErrUnsupportedModel.
func (r *Registry) Get(modelType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[modelType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, modelType)
	}
	return h, nil
}

// List returns the registered model_type names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	return out
}

// CompileSchema compiles a JSON Schema literal for use with
// RegisterParamsSchema. name is an arbitrary resource identifier used in
// compiler error messages.
func CompileSchema(name, schemaJSON string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return schema, nil
}
