package rights

import (
	"context"
	"fmt"

	"github.com/emrgen/exploration/internal/exploration"
	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/store"
	"github.com/sirupsen/logrus"
)

// UnauthorizedError carries the reason an action was refused. It matches
// ErrUnauthorized with errors.Is.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string {
	return e.Msg
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// Rights commands recorded in the commit log.
const (
	CmdChangeStatus             = "change_exploration_status"
	CmdChangeRole               = "change_role"
	CmdReleaseOwnership         = "release_ownership"
	CmdChangePrivateViewability = "change_private_viewability"
)

// roleNone is written as the old role of a user without one.
const roleNone = "none"

// Command is one rights transition as stored in the commit log.
type Command struct {
	Cmd               string `json:"cmd"`
	OldStatus         Status `json:"old_status,omitempty"`
	NewStatus         Status `json:"new_status,omitempty"`
	AssigneeID        string `json:"assignee_id,omitempty"`
	OldRole           string `json:"old_role,omitempty"`
	NewRole           string `json:"new_role,omitempty"`
	ViewableIfPrivate *bool  `json:"viewable_if_private,omitempty"`
}

// Change is a committed rights transition. Rights holds the state after it.
type Change struct {
	ExplorationID string
	CommitterID   string
	Message       string
	Cmds          []Command
	Rights        *Rights
}

// Recorder keeps the exploration history in step with rights transitions.
type Recorder interface {
	// RecordRightsChange runs inside the transition transaction.
	RecordRightsChange(ctx context.Context, tx store.Store, change Change) error
	// RightsChanged runs after the transition committed.
	RightsChanged(ctx context.Context, change Change)
}

// Validator checks the current content of an exploration.
type Validator interface {
	ValidateExploration(ctx context.Context, id string, strict bool) error
}

// Manager runs the publication and membership transitions of explorations.
type Manager struct {
	store     store.Store
	auth      Authorizer
	validator Validator
	recorder  Recorder
}

func NewManager(store store.Store, auth Authorizer, validator Validator, recorder Recorder) *Manager {
	return &Manager{
		store:     store,
		auth:      auth,
		validator: validator,
		recorder:  recorder,
	}
}

func (m *Manager) canModifyRoles(r *Rights, userID string) bool {
	if r.CommunityOwned {
		return false
	}
	return m.auth.IsAdmin(userID) || r.IsOwner(userID)
}

// Publish makes a private exploration public. Only owners and admins may
// publish, and the exploration must pass strict validation.
func (m *Manager) Publish(ctx context.Context, committerID, id string) (*Rights, error) {
	r, err := m.auth.GetRights(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsPrivate() || !(r.IsOwner(committerID) || m.auth.IsAdmin(committerID)) {
		return nil, &UnauthorizedError{Msg: "This exploration cannot be published"}
	}
	if err := m.validator.ValidateExploration(ctx, id, true); err != nil {
		return nil, err
	}

	return m.changeStatus(ctx, committerID, r, StatusPublic, "Exploration published.")
}

// Unpublish makes a public exploration private again. Admins only.
func (m *Manager) Unpublish(ctx context.Context, committerID, id string) (*Rights, error) {
	r, err := m.auth.GetRights(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusPublic || !m.auth.IsAdmin(committerID) {
		return nil, &UnauthorizedError{Msg: "This exploration cannot be unpublished"}
	}

	return m.changeStatus(ctx, committerID, r, StatusPrivate, "Exploration unpublished.")
}

// Publicize features a public exploration. Admins only.
func (m *Manager) Publicize(ctx context.Context, committerID, id string) (*Rights, error) {
	r, err := m.auth.GetRights(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusPublic || !m.auth.IsAdmin(committerID) {
		return nil, &UnauthorizedError{Msg: "This exploration cannot be publicized"}
	}
	if err := m.validator.ValidateExploration(ctx, id, true); err != nil {
		return nil, err
	}

	return m.changeStatus(ctx, committerID, r, StatusPublicized, "Exploration publicized.")
}

// Unpublicize returns a publicized exploration to public. Admins only.
func (m *Manager) Unpublicize(ctx context.Context, committerID, id string) (*Rights, error) {
	r, err := m.auth.GetRights(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusPublicized || !m.auth.IsAdmin(committerID) {
		return nil, &UnauthorizedError{Msg: "This exploration cannot be unpublicized"}
	}

	return m.changeStatus(ctx, committerID, r, StatusPublic, "Exploration unpublicized.")
}

func (m *Manager) changeStatus(ctx context.Context, committerID string, r *Rights, status Status, message string) (*Rights, error) {
	change := Change{
		ExplorationID: r.ExplorationID,
		CommitterID:   committerID,
		Message:       message,
		Cmds:          []Command{{Cmd: CmdChangeStatus, OldStatus: r.Status, NewStatus: status}},
	}

	logrus.Infof("exploration %s status %s -> %s by %s", r.ExplorationID, r.Status, status, committerID)

	return m.commit(ctx, change, func(row *model.ExplorationRights) {
		row.Status = string(status)
	})
}

// AssignRole gives assigneeID a role on the exploration. A user holds at most
// one role; assigning a role never demotes.
func (m *Manager) AssignRole(ctx context.Context, committerID, id, assigneeID string, role Role) (*Rights, error) {
	r, err := m.auth.GetRights(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.canModifyRoles(r, committerID) {
		return nil, &UnauthorizedError{Msg: "Only an owner of this exploration can add or change roles."}
	}

	old := r.RoleOf(assigneeID)
	switch role {
	case RoleOwner:
		if old == RoleOwner {
			return nil, invalidf("This user already owns this exploration.")
		}
	case RoleEditor:
		if old == RoleOwner || old == RoleEditor {
			return nil, invalidf("This user already can edit this exploration.")
		}
	case RoleViewer:
		if old != "" {
			return nil, invalidf("This user already can view this exploration.")
		}
		if !r.IsPrivate() {
			return nil, invalidf("Public explorations can be viewed by anyone.")
		}
	default:
		return nil, invalidf("Invalid role: %s", role)
	}

	oldRole := string(old)
	if oldRole == "" {
		oldRole = roleNone
	}
	change := Change{
		ExplorationID: id,
		CommitterID:   committerID,
		Message:       fmt.Sprintf("Changed role of %s from %s to %s", assigneeID, oldRole, role),
		Cmds:          []Command{{Cmd: CmdChangeRole, AssigneeID: assigneeID, OldRole: oldRole, NewRole: string(role)}},
	}

	return m.commitTx(ctx, change, func(tx store.Store) error {
		return tx.SaveRole(ctx, &model.ExplorationRole{
			ExplorationID: id,
			UserID:        assigneeID,
			Role:          string(role),
		})
	})
}

// ReleaseOwnership makes a published exploration editable by everyone.
func (m *Manager) ReleaseOwnership(ctx context.Context, committerID, id string) (*Rights, error) {
	r, err := m.auth.GetRights(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.IsPrivate() || !m.canModifyRoles(r, committerID) {
		return nil, &UnauthorizedError{Msg: "This exploration cannot be released to the community"}
	}
	if err := m.validator.ValidateExploration(ctx, id, true); err != nil {
		return nil, err
	}

	change := Change{
		ExplorationID: id,
		CommitterID:   committerID,
		Message:       "Exploration ownership released to community.",
		Cmds:          []Command{{Cmd: CmdReleaseOwnership}},
	}

	return m.commit(ctx, change, func(row *model.ExplorationRights) {
		row.CommunityOwned = true
	})
}

// SetPrivateViewability lets anyone with the link view a private exploration.
func (m *Manager) SetPrivateViewability(ctx context.Context, committerID, id string, viewable bool) (*Rights, error) {
	r, err := m.auth.GetRights(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsPrivate() || !m.canModifyRoles(r, committerID) {
		return nil, &UnauthorizedError{Msg: "Only an owner of a private exploration can change its viewability."}
	}
	if r.ViewableIfPrivate == viewable {
		return nil, invalidf("Exploration viewability is already set to %t", viewable)
	}

	message := "Made exploration viewable only to invited playtesters."
	if viewable {
		message = "Made exploration viewable to anyone with the link."
	}
	change := Change{
		ExplorationID: id,
		CommitterID:   committerID,
		Message:       message,
		Cmds:          []Command{{Cmd: CmdChangePrivateViewability, ViewableIfPrivate: &viewable}},
	}

	return m.commit(ctx, change, func(row *model.ExplorationRights) {
		row.ViewableIfPrivate = viewable
	})
}

// commit updates the rights row and records the change in one transaction.
func (m *Manager) commit(ctx context.Context, change Change, update func(row *model.ExplorationRights)) (*Rights, error) {
	return m.commitTx(ctx, change, func(tx store.Store) error {
		row, err := tx.GetRights(ctx, change.ExplorationID)
		if err != nil {
			return err
		}
		update(row)
		return tx.SaveRights(ctx, row)
	})
}

func (m *Manager) commitTx(ctx context.Context, change Change, save func(tx store.Store) error) (*Rights, error) {
	err := m.store.Transaction(ctx, func(tx store.Store) error {
		if err := save(tx); err != nil {
			return err
		}
		r, err := Load(ctx, tx, change.ExplorationID)
		if err != nil {
			return err
		}
		change.Rights = r
		return m.recorder.RecordRightsChange(ctx, tx, change)
	})
	if err != nil {
		return nil, err
	}

	m.recorder.RightsChanged(ctx, change)

	return change.Rights, nil
}

func invalidf(format string, args ...any) error {
	return &exploration.ValidationError{Msg: fmt.Sprintf(format, args...)}
}
