package authz

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/wayfarer-app/wayfarer/internal/roles"
	"github.com/wayfarer-app/wayfarer/internal/shared"
)

// RoleSource loads the role catalog from the relational store.
type RoleSource interface {
	ListRoles(ctx context.Context) ([]roles.Role, error)
}

// Directory is a process-wide cache of the role catalog. The catalog is
// static after seeding, so it is loaded once on first access and reused for
// the process lifetime. Concurrent first calls collapse into a single load.
type Directory struct {
	source RoleSource

	group  singleflight.Group
	mu     sync.RWMutex
	loaded bool
	byID   map[string]roles.Role
	byName map[string]roles.Role
	list   []roles.Role
}

// NewDirectory constructs a Directory over the given source.
func NewDirectory(source RoleSource) *Directory {
	return &Directory{source: source}
}

// Roles returns the cached role catalog, loading it on first call. A failed
// load leaves the cache empty so the next call retries.
func (d *Directory) Roles(ctx context.Context) ([]roles.Role, error) {
	d.mu.RLock()
	if d.loaded {
		list := d.list
		d.mu.RUnlock()
		return list, nil
	}
	d.mu.RUnlock()

	ch := d.group.DoChan("roles", func() (any, error) {
		loaded, err := d.source.ListRoles(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("authz: load roles: %v: %w", err, shared.ErrStoreUnavailable)
		}
		d.store(loaded)
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]roles.Role), nil
	}
}

// RoleByName resolves a role by its name.
func (d *Directory) RoleByName(ctx context.Context, name string) (roles.Role, error) {
	if _, err := d.Roles(ctx); err != nil {
		return roles.Role{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	role, ok := d.byName[name]
	if !ok {
		return roles.Role{}, fmt.Errorf("authz: role %q: %w", name, shared.ErrNotFound)
	}
	return role, nil
}

// RoleByID resolves a role by its identifier.
func (d *Directory) RoleByID(ctx context.Context, id string) (roles.Role, error) {
	if _, err := d.Roles(ctx); err != nil {
		return roles.Role{}, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	role, ok := d.byID[id]
	if !ok {
		return roles.Role{}, fmt.Errorf("authz: role id %q: %w", id, shared.ErrNotFound)
	}
	return role, nil
}

// Reset clears the cache. Intended for tests and for operational reload after
// a catalog change.
func (d *Directory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = false
	d.list = nil
	d.byID = nil
	d.byName = nil
}

func (d *Directory) store(list []roles.Role) {
	byID := make(map[string]roles.Role, len(list))
	byName := make(map[string]roles.Role, len(list))
	for _, role := range list {
		byID[role.ID] = role
		byName[role.Name] = role
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loaded = true
	d.list = list
	d.byID = byID
	d.byName = byName
}
