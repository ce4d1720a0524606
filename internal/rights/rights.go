package rights

import (
	"context"
	"errors"
	"slices"

	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/store"
)

// Status is the publication state of an exploration.
type Status string

const (
	StatusPrivate    Status = "private"
	StatusPublic     Status = "public"
	StatusPublicized Status = "publicized"
)

// Role is the role a user holds on an exploration.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

var (
	// ErrUnauthorized is returned when the actor may not perform an action.
	ErrUnauthorized = errors.New("unauthorized")
)

// Rights is the authorization state of one exploration.
type Rights struct {
	ExplorationID     string
	Status            Status
	CommunityOwned    bool
	ViewableIfPrivate bool
	ClonedFrom        string
	OwnerIDs          []string
	EditorIDs         []string
	ViewerIDs         []string
}

func (r *Rights) IsPrivate() bool {
	return r.Status == StatusPrivate
}

func (r *Rights) IsOwner(userID string) bool {
	return slices.Contains(r.OwnerIDs, userID)
}

// RoleOf returns the role held by userID, or the empty role.
func (r *Rights) RoleOf(userID string) Role {
	switch {
	case slices.Contains(r.OwnerIDs, userID):
		return RoleOwner
	case slices.Contains(r.EditorIDs, userID):
		return RoleEditor
	case slices.Contains(r.ViewerIDs, userID):
		return RoleViewer
	}
	return ""
}

func (r *Rights) CanView(userID string) bool {
	return !r.IsPrivate() || r.ViewableIfPrivate || r.RoleOf(userID) != ""
}

func (r *Rights) CanEdit(userID string) bool {
	if r.CommunityOwned {
		return true
	}
	role := r.RoleOf(userID)
	return role == RoleOwner || role == RoleEditor
}

// Authorizer answers rights questions for the exploration services.
type Authorizer interface {
	// GetRights retrieves the rights of an exploration.
	GetRights(ctx context.Context, id string) (*Rights, error)
	// IsAdmin reports whether the user may moderate any exploration.
	IsAdmin(userID string) bool
}

// Load reads the rights of an exploration and its roles.
func Load(ctx context.Context, s store.RightsStore, id string) (*Rights, error) {
	row, err := s.GetRights(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.ListRoles(ctx, id)
	if err != nil {
		return nil, err
	}

	r := &Rights{
		ExplorationID:     row.ID,
		Status:            Status(row.Status),
		CommunityOwned:    row.CommunityOwned,
		ViewableIfPrivate: row.ViewableIfPrivate,
		ClonedFrom:        row.ClonedFrom,
		OwnerIDs:          []string{},
		EditorIDs:         []string{},
		ViewerIDs:         []string{},
	}
	for _, role := range roles {
		switch Role(role.Role) {
		case RoleOwner:
			r.OwnerIDs = append(r.OwnerIDs, role.UserID)
		case RoleEditor:
			r.EditorIDs = append(r.EditorIDs, role.UserID)
		case RoleViewer:
			r.ViewerIDs = append(r.ViewerIDs, role.UserID)
		}
	}

	return r, nil
}

// Create writes the rights of a new private exploration owned by ownerID.
func Create(ctx context.Context, s store.RightsStore, id, ownerID string) error {
	err := s.SaveRights(ctx, &model.ExplorationRights{
		ID:     id,
		Status: string(StatusPrivate),
	})
	if err != nil {
		return err
	}

	return s.SaveRole(ctx, &model.ExplorationRole{
		ExplorationID: id,
		UserID:        ownerID,
		Role:          string(RoleOwner),
	})
}
