package submission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/OpenCaseDesk/casedesk/internal/submission/model"
)

// Registry is the process-wide mapping from type key to TypeDescriptor.
// It is built once during startup from an explicit, ordered descriptor list
// and is read-only afterwards, so lookups need no synchronization.
type Registry struct {
	keys        []string
	descriptors map[string]TypeDescriptor
}

// NewRegistry builds a registry from the given descriptors. Duplicate or
// empty type keys are a programming error and fail construction.
func NewRegistry(descriptors ...TypeDescriptor) (*Registry, error) {
	r := &Registry{
		keys:        make([]string, 0, len(descriptors)),
		descriptors: make(map[string]TypeDescriptor, len(descriptors)),
	}

	for _, desc := range descriptors {
		key := desc.TypeKey()
		if key == "" {
			return nil, fmt.Errorf("descriptor %q has an empty type key", desc.DisplayName())
		}
		if _, exists := r.descriptors[key]; exists {
			return nil, fmt.Errorf("duplicate submission type key %q", key)
		}
		r.keys = append(r.keys, key)
		r.descriptors[key] = desc
		slog.Info("registered submission type", "type_key", key, "display_name", desc.DisplayName())
	}

	return r, nil
}

// Lookup returns the descriptor for the given type key.
func (r *Registry) Lookup(typeKey string) (TypeDescriptor, error) {
	desc, ok := r.descriptors[typeKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, typeKey)
	}
	return desc, nil
}

// ListAccessibleTo returns the submission types the actor may create,
// in registration order.
func (r *Registry) ListAccessibleTo(ctx context.Context, actorID uuid.UUID) ([]model.SubmissionTypeDTO, error) {
	out := make([]model.SubmissionTypeDTO, 0, len(r.keys))
	for _, key := range r.keys {
		desc := r.descriptors[key]
		ok, err := desc.CanSubmit(ctx, actorID)
		if err != nil {
			return nil, fmt.Errorf("failed to check access for type %q: %w", key, err)
		}
		if ok {
			out = append(out, model.SubmissionTypeDTO{
				Key:         desc.TypeKey(),
				DisplayName: desc.DisplayName(),
			})
		}
	}
	return out, nil
}
