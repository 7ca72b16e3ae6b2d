package submissiontest

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Oracle is an in-memory submission.PermissionOracle.
type Oracle struct {
	mu    sync.Mutex
	perms map[uuid.UUID]map[string]struct{}
}

// NewOracle creates an Oracle with no grants.
func NewOracle() *Oracle {
	return &Oracle{perms: make(map[uuid.UUID]map[string]struct{})}
}

// Grant gives userID the named permissions.
func (o *Oracle) Grant(userID uuid.UUID, permissions ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	set, ok := o.perms[userID]
	if !ok {
		set = make(map[string]struct{})
		o.perms[userID] = set
	}
	for _, p := range permissions {
		set[p] = struct{}{}
	}
}

func (o *Oracle) HasPermission(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	set, err := o.PermissionSet(ctx, userID)
	if err != nil {
		return false, err
	}
	_, ok := set[permission]
	return ok, nil
}

func (o *Oracle) PermissionSet(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	set := make(map[string]struct{}, len(o.perms[userID]))
	for p := range o.perms[userID] {
		set[p] = struct{}{}
	}
	return set, nil
}
