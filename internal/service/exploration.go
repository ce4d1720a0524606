package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/emrgen/exploration/internal/cache"
	"github.com/emrgen/exploration/internal/change"
	"github.com/emrgen/exploration/internal/compress"
	"github.com/emrgen/exploration/internal/exploration"
	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/queue"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/store"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	_ rights.Recorder  = (*ExplorationService)(nil)
	_ rights.Validator = (*ExplorationService)(nil)
)

// UpdateRequest commits a change list to an exploration.
type UpdateRequest struct {
	CommitterID   string
	ExplorationID string
	// Version is the version the changes were prepared against. Zero skips
	// the check and commits against whatever version is live.
	Version int64
	Changes change.List
	Message string
}

// SnapshotMetadata describes one committed version.
type SnapshotMetadata struct {
	Version       int64       `json:"version"`
	CommitterID   string      `json:"committer_id"`
	CommitType    string      `json:"commit_type"`
	CommitMessage string      `json:"commit_message"`
	CommitCmds    change.List `json:"commit_cmds"`
	CreatedAt     time.Time   `json:"created_on"`
}

// ChangeListSummary previews a change list without committing it.
type ChangeListSummary struct {
	Summary        change.Summary `json:"summary"`
	WarningMessage string         `json:"warning_message"`
}

// NewExplorationService creates a new ExplorationService.
func NewExplorationService(store store.Store, auth rights.Authorizer, searcher *SearchIndexer, notifier queue.Notifier, cache cache.ExplorationCache, compress compress.Compress, projector *SummaryProjector) *ExplorationService {
	return &ExplorationService{
		store:     store,
		auth:      auth,
		searcher:  searcher,
		notifier:  notifier,
		cache:     cache,
		compress:  compress,
		projector: projector,
	}
}

// ExplorationService is the only component that advances exploration
// versions. Every commit writes the live row, a snapshot, a commit log entry
// and the summary in one transaction.
type ExplorationService struct {
	store     store.Store
	auth      rights.Authorizer
	searcher  *SearchIndexer
	notifier  queue.Notifier
	cache     cache.ExplorationCache
	compress  compress.Compress
	projector *SummaryProjector
}

// commit is one version about to be persisted.
type commit struct {
	committerID string
	id          string
	parent      int64
	title       string
	category    string
	content     []byte
	compression string
	commitType  string
	message     string
	cmds        change.List
	deleted     bool
}

// CreateExploration commits version 1 of exp, owned by committerID. An empty
// id is replaced by a random one.
func (s *ExplorationService) CreateExploration(ctx context.Context, committerID string, exp *exploration.Exploration) (*exploration.Exploration, error) {
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	if err := exp.Validate(false); err != nil {
		return nil, err
	}

	c, err := s.encode(exp)
	if err != nil {
		return nil, err
	}
	c.committerID = committerID
	c.commitType = model.CommitTypeCreate
	c.message = change.CreateMessage(exp.Title)
	c.cmds = change.List{change.CreateMarker{Title: exp.Title, Category: exp.Category}}

	row, err := s.persist(ctx, c)
	if err != nil {
		return nil, err
	}

	logrus.Infof("created exploration %s by %s", exp.ID, committerID)

	out, err := exp.Clone()
	if err != nil {
		return nil, err
	}
	out.Version = row.Version

	return out, nil
}

// UpdateExploration applies a change list to the live version and commits
// the result as the next version. A blank message on a private exploration
// is replaced by one derived from the changes.
func (s *ExplorationService) UpdateExploration(ctx context.Context, req UpdateRequest) (*exploration.Exploration, error) {
	row, err := s.store.GetExploration(ctx, req.ExplorationID)
	if err != nil {
		return nil, notFound(err, "exploration", req.ExplorationID, 0)
	}
	if req.Version != 0 && req.Version != row.Version {
		staleCommitsTotal.Inc()
		return nil, &StaleVersionError{Expected: req.Version, Actual: row.Version}
	}

	r, err := s.auth.GetRights(ctx, req.ExplorationID)
	if err != nil {
		return nil, notFound(err, "exploration", req.ExplorationID, 0)
	}
	if !r.CanEdit(req.CommitterID) && !s.auth.IsAdmin(req.CommitterID) {
		return nil, &rights.UnauthorizedError{Msg: "You do not have permission to edit this exploration."}
	}

	base, err := decodeExploration(row)
	if err != nil {
		return nil, err
	}
	doc, err := change.Apply(base, req.Changes)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(!r.IsPrivate()); err != nil {
		return nil, err
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		if !r.IsPrivate() {
			return nil, ErrCommitMessageRequired
		}
		message = change.Message(req.Changes)
	}

	c, err := s.encode(doc)
	if err != nil {
		return nil, err
	}
	c.committerID = req.CommitterID
	c.parent = row.Version
	c.commitType = model.CommitTypeEdit
	c.message = message
	c.cmds = req.Changes

	next, err := s.persist(ctx, c)
	if err != nil {
		return nil, err
	}
	doc.Version = next.Version

	logrus.Infof("committed exploration %s version %d by %s", doc.ID, doc.Version, req.CommitterID)

	return doc, nil
}

// DeleteExploration soft deletes an exploration with a final delete commit.
// Its snapshots and commit log entries survive.
func (s *ExplorationService) DeleteExploration(ctx context.Context, committerID, id string) error {
	row, err := s.store.GetExploration(ctx, id)
	if err != nil {
		return notFound(err, "exploration", id, 0)
	}
	r, err := s.auth.GetRights(ctx, id)
	if err != nil {
		return notFound(err, "exploration", id, 0)
	}
	if !s.auth.IsAdmin(committerID) && !(r.IsPrivate() && r.IsOwner(committerID)) {
		return &rights.UnauthorizedError{Msg: "This exploration cannot be deleted"}
	}

	_, err = s.persist(ctx, commit{
		committerID: committerID,
		id:          id,
		parent:      row.Version,
		title:       row.Title,
		category:    row.Category,
		content:     row.Content,
		compression: row.Compression,
		commitType:  model.CommitTypeDelete,
		message:     change.DeleteMessage,
		cmds:        change.List{change.DeleteMarker{}},
		deleted:     true,
	})
	if err != nil {
		return err
	}

	logrus.Infof("deleted exploration %s by %s", id, committerID)

	return nil
}

// EraseExploration purges an exploration and all of its versions. Admins only.
func (s *ExplorationService) EraseExploration(ctx context.Context, committerID, id string) error {
	if !s.auth.IsAdmin(committerID) {
		return &rights.UnauthorizedError{Msg: "Only admins can erase explorations"}
	}

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		return tx.EraseExploration(ctx, id)
	})
	if err != nil {
		return err
	}

	ctx = context.WithoutCancel(ctx)
	s.bestEffort("cache", id, s.cache.DeleteExploration(ctx, id))
	s.bestEffort("search", id, s.searcher.Delete(ctx, []string{id}))

	logrus.Infof("erased exploration %s by %s", id, committerID)

	return nil
}

// GetExploration returns the live version of an exploration.
func (s *ExplorationService) GetExploration(ctx context.Context, id string) (*exploration.Exploration, error) {
	row, err := s.cache.GetExploration(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("exploration", id).Warn("exploration cache read failed")
	}
	if row == nil {
		row, err = s.store.GetExploration(ctx, id)
		if err != nil {
			return nil, notFound(err, "exploration", id, 0)
		}
		s.bestEffort("cache", id, s.cache.SetExploration(ctx, row))
	}

	return decodeExploration(row)
}

// GetExplorations returns the live versions of ids keyed by id. Unknown ids
// are left out.
func (s *ExplorationService) GetExplorations(ctx context.Context, ids []string) (map[string]*exploration.Exploration, error) {
	rows, err := s.store.GetExplorations(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*exploration.Exploration, len(rows))
	for _, row := range rows {
		doc, err := decodeExploration(row)
		if err != nil {
			return nil, err
		}
		out[row.ID] = doc
	}

	return out, nil
}

func (s *ExplorationService) CountExplorations(ctx context.Context) (int64, error) {
	return s.store.CountExplorations(ctx)
}

// SnapshotsMetadata lists the committed versions of an exploration, oldest
// first.
func (s *ExplorationService) SnapshotsMetadata(ctx context.Context, id string) ([]SnapshotMetadata, error) {
	snapshots, err := s.store.ListSnapshots(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, &NotFoundError{Kind: "exploration", ID: id}
	}

	out := make([]SnapshotMetadata, 0, len(snapshots))
	for _, snapshot := range snapshots {
		var cmds change.List
		if len(snapshot.CommitCmds) != 0 {
			if err := json.Unmarshal(snapshot.CommitCmds, &cmds); err != nil {
				return nil, err
			}
		}
		out = append(out, SnapshotMetadata{
			Version:       snapshot.Version,
			CommitterID:   snapshot.CommitterID,
			CommitType:    snapshot.CommitType,
			CommitMessage: snapshot.CommitMessage,
			CommitCmds:    cmds,
			CreatedAt:     snapshot.CreatedAt,
		})
	}

	return out, nil
}

// SummarizeChanges previews a change list against the live version.
func (s *ExplorationService) SummarizeChanges(ctx context.Context, id string, version int64, list change.List) (*ChangeListSummary, error) {
	row, err := s.store.GetExploration(ctx, id)
	if err != nil {
		return nil, notFound(err, "exploration", id, 0)
	}
	if version != row.Version {
		return nil, &StaleVersionError{Expected: version, Actual: row.Version}
	}

	base, err := decodeExploration(row)
	if err != nil {
		return nil, err
	}
	doc, err := change.Apply(base, list)
	if err != nil {
		return nil, err
	}

	out := &ChangeListSummary{Summary: change.Describe(base, list)}
	if err := doc.Validate(true); err != nil {
		out.WarningMessage = err.Error()
	}

	return out, nil
}

// ValidateExploration validates the live version of an exploration.
func (s *ExplorationService) ValidateExploration(ctx context.Context, id string, strict bool) error {
	doc, err := s.GetExploration(ctx, id)
	if err != nil {
		return err
	}
	return doc.Validate(strict)
}

// RecordRightsChange appends a versionless commit log entry for a rights
// transition and refreshes the summary.
func (s *ExplorationService) RecordRightsChange(ctx context.Context, tx store.Store, c rights.Change) error {
	if _, err := tx.GetExploration(ctx, c.ExplorationID); err != nil {
		return notFound(err, "exploration", c.ExplorationID, 0)
	}

	cmds, err := json.Marshal(c.Cmds)
	if err != nil {
		return err
	}
	err = tx.CreateCommitLogEntry(ctx, &model.CommitLogEntry{
		EntryID:                  uuid.NewString(),
		ExplorationID:            c.ExplorationID,
		UserID:                   c.CommitterID,
		Username:                 c.CommitterID,
		CommitType:               model.CommitTypeEdit,
		CommitMessage:            c.Message,
		CommitCmds:               cmds,
		PostCommitStatus:         string(c.Rights.Status),
		PostCommitIsPrivate:      c.Rights.IsPrivate(),
		PostCommitCommunityOwned: c.Rights.CommunityOwned,
	})
	if err != nil {
		return err
	}

	_, err = s.projector.Refresh(ctx, tx, c.ExplorationID)
	return err
}

// RightsChanged updates the search index and notifies listeners after a
// rights transition committed.
func (s *ExplorationService) RightsChanged(ctx context.Context, c rights.Change) {
	ctx = context.WithoutCancel(ctx)
	s.bestEffort("search", c.ExplorationID, s.searcher.StatusChanged(ctx, c.ExplorationID))
	s.bestEffort("notify", c.ExplorationID, s.notifier.Notify(ctx, queue.Event{
		Kind:          queue.EventStatusChange,
		ExplorationID: c.ExplorationID,
		Status:        string(c.Rights.Status),
		CreatedAt:     time.Now().UTC(),
	}))
}

func (s *ExplorationService) encode(doc *exploration.Exploration) (commit, error) {
	data, err := doc.Encode()
	if err != nil {
		return commit{}, err
	}
	content, err := s.compress.Encode(data)
	if err != nil {
		return commit{}, err
	}

	return commit{
		id:          doc.ID,
		title:       doc.Title,
		category:    doc.Category,
		content:     content,
		compression: s.compress.Name(),
	}, nil
}

// persist writes c as version parent+1. The compare and swap on the live
// version is the only exclusion between concurrent commits.
func (s *ExplorationService) persist(ctx context.Context, c commit) (*model.Exploration, error) {
	ctx, span := tracer.Start(ctx, "exploration.commit")
	defer span.End()
	timer := prometheus.NewTimer(commitDuration)
	defer timer.ObserveDuration()

	cmds, err := json.Marshal(c.cmds)
	if err != nil {
		return nil, err
	}

	version := c.parent + 1
	row := &model.Exploration{
		ID:          c.id,
		Version:     version,
		Title:       c.title,
		Category:    c.category,
		Content:     c.content,
		Compression: c.compression,
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if c.parent == 0 {
			if err := tx.CreateExploration(ctx, row); err != nil {
				return err
			}
			if err := rights.Create(ctx, tx, c.id, c.committerID); err != nil {
				return err
			}
		} else if err := tx.UpdateExplorationIfVersion(ctx, row, c.parent); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				return s.staleVersion(ctx, tx, c.id, c.parent)
			}
			return err
		}

		err := tx.CreateSnapshot(ctx, &model.ExplorationSnapshot{
			ExplorationID: c.id,
			Version:       version,
			Content:       c.content,
			Compression:   c.compression,
			CommitterID:   c.committerID,
			CommitType:    c.commitType,
			CommitMessage: c.message,
			CommitCmds:    cmds,
		})
		if errors.Is(err, store.ErrAlreadyExists) {
			return s.staleVersion(ctx, tx, c.id, c.parent)
		}
		if err != nil {
			return err
		}

		r, err := rights.Load(ctx, tx, c.id)
		if err != nil {
			return err
		}
		err = tx.CreateCommitLogEntry(ctx, &model.CommitLogEntry{
			EntryID:                  uuid.NewString(),
			ExplorationID:            c.id,
			Version:                  &version,
			UserID:                   c.committerID,
			Username:                 c.committerID,
			CommitType:               c.commitType,
			CommitMessage:            c.message,
			CommitCmds:               cmds,
			PostCommitStatus:         string(r.Status),
			PostCommitIsPrivate:      r.IsPrivate(),
			PostCommitCommunityOwned: r.CommunityOwned,
		})
		if err != nil {
			return err
		}

		if c.deleted {
			if err := tx.DeleteExploration(ctx, c.id); err != nil {
				return err
			}
			return s.projector.Delete(ctx, tx, c.id)
		}
		_, err = s.projector.Refresh(ctx, tx, c.id)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, &exploration.ValidationError{Msg: "Exploration with id " + c.id + " already exists"}
		}
		return nil, err
	}

	commitsTotal.WithLabelValues(c.commitType).Inc()
	s.afterCommit(context.WithoutCancel(ctx), row, c.deleted)

	return row, nil
}

func (s *ExplorationService) staleVersion(ctx context.Context, tx store.Store, id string, expected int64) error {
	staleCommitsTotal.Inc()
	live, err := tx.GetExploration(ctx, id)
	if err != nil {
		return notFound(err, "exploration", id, 0)
	}
	return &StaleVersionError{Expected: expected, Actual: live.Version}
}

// afterCommit runs the updates allowed to lag behind a commit. Their failures
// are logged and never undo the commit.
func (s *ExplorationService) afterCommit(ctx context.Context, row *model.Exploration, deleted bool) {
	if deleted {
		s.bestEffort("cache", row.ID, s.cache.DeleteExploration(ctx, row.ID))
	} else {
		s.bestEffort("cache", row.ID, s.cache.SetExploration(ctx, row))
	}

	s.bestEffort("search", row.ID, s.searcher.Refresh(ctx, row.ID))
	s.bestEffort("notify", row.ID, s.notifier.Notify(ctx, queue.Event{
		Kind:          queue.EventContentChange,
		ExplorationID: row.ID,
		Version:       row.Version,
		CreatedAt:     time.Now().UTC(),
	}))
}

func (s *ExplorationService) bestEffort(sink, id string, err error) {
	if err == nil {
		return
	}
	sinkFailuresTotal.WithLabelValues(sink).Inc()
	logrus.WithError(err).WithField("exploration", id).Errorf("%s update failed", sink)
}
