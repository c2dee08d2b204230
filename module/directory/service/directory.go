package service

import (
	"context"

	"TeamWork/module/directory/model"
)

// Directory answers user lookups for the realtime core. It is a
// read-only view; nothing here mutates the users collection.
type Directory struct {
	store Store
}

func NewDirectory(store Store) *Directory {
	return &Directory{store: store}
}

// LookupUser returns nil when the id is unknown.
func (d *Directory) LookupUser(ctx context.Context, id string) (*model.User, error) {
	return d.store.FindUser(ctx, id)
}

// ListUsersByRole returns non-blocked users holding any of the given
// roles, oldest account first. An empty ownerID means all teams.
func (d *Directory) ListUsersByRole(ctx context.Context, roles []string, ownerID string) ([]model.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	return d.store.FindUsersByRoles(ctx, roles, ownerID)
}

// ListTeamIDs returns every non-blocked user id across all roles. The
// team room fans out to this set.
func (d *Directory) ListTeamIDs(ctx context.Context) ([]string, error) {
	users, err := d.store.FindUsersByRoles(ctx, []string{
		model.RoleAdmin, model.RoleScraper, model.RoleSeller, model.RoleSalesman,
	}, "")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
