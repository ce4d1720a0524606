package service

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"path"
	"time"

	"github.com/emrgen/exploration/internal/change"
	"github.com/emrgen/exploration/internal/exploration"
	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/store"
	"github.com/sirupsen/logrus"
)

// Asset is one file shipped with an exported exploration.
type Asset struct {
	Name    string
	Content []byte
}

// Bundle is an exploration exported at one version.
type Bundle struct {
	Name     string
	Filename string
	YAML     []byte
	Assets   []Asset
}

// WriteZip writes the bundle as a zip archive holding the YAML file and an
// assets directory.
func (b *Bundle) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)

	f, err := zw.Create(b.Filename)
	if err != nil {
		return err
	}
	if _, err := f.Write(b.YAML); err != nil {
		return err
	}

	for _, asset := range b.Assets {
		f, err := zw.Create(path.Join("assets", asset.Name))
		if err != nil {
			return err
		}
		if _, err := f.Write(asset.Content); err != nil {
			return err
		}
	}

	return zw.Close()
}

// RevisionService reads past versions and restores them.
type RevisionService struct {
	store    store.Store
	auth     rights.Authorizer
	explorer *ExplorationService
}

func NewRevisionService(store store.Store, auth rights.Authorizer, explorer *ExplorationService) *RevisionService {
	return &RevisionService{
		store:    store,
		auth:     auth,
		explorer: explorer,
	}
}

// GetExplorationAtVersion decodes the snapshot of version. A zero version
// returns the live exploration.
func (s *RevisionService) GetExplorationAtVersion(ctx context.Context, id string, version int64) (*exploration.Exploration, error) {
	if version == 0 {
		return s.explorer.GetExploration(ctx, id)
	}

	snapshot, err := s.store.GetSnapshot(ctx, id, version)
	if err != nil {
		return nil, notFound(err, "exploration", id, version)
	}
	return decodeSnapshot(snapshot)
}

// RevertExploration commits the content of version target as the version
// after current. current has to be the live version.
func (s *RevisionService) RevertExploration(ctx context.Context, committerID, id string, current, target int64) (*exploration.Exploration, error) {
	ctx, span := tracer.Start(ctx, "exploration.revert")
	defer span.End()

	row, err := s.store.GetExploration(ctx, id)
	if err != nil {
		return nil, notFound(err, "exploration", id, 0)
	}
	if current != row.Version {
		staleCommitsTotal.Inc()
		return nil, &StaleVersionError{Expected: current, Actual: row.Version}
	}
	if target < 1 || target >= current {
		return nil, ErrInvalidVersion
	}

	r, err := s.auth.GetRights(ctx, id)
	if err != nil {
		return nil, notFound(err, "exploration", id, 0)
	}
	if !r.CanEdit(committerID) && !s.auth.IsAdmin(committerID) {
		return nil, &rights.UnauthorizedError{Msg: "You do not have permission to revert this exploration."}
	}

	snapshot, err := s.store.GetSnapshot(ctx, id, target)
	if err != nil {
		return nil, notFound(err, "exploration", id, target)
	}
	doc, err := decodeSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(!r.IsPrivate()); err != nil {
		return nil, err
	}

	next, err := s.explorer.persist(ctx, commit{
		committerID: committerID,
		id:          id,
		parent:      current,
		title:       doc.Title,
		category:    doc.Category,
		content:     snapshot.Content,
		compression: snapshot.Compression,
		commitType:  model.CommitTypeRevert,
		message:     change.RevertMessage(target),
		cmds:        change.List{change.RevertMarker{VersionNumber: target}},
	})
	if err != nil {
		return nil, err
	}
	doc.Version = next.Version

	logrus.Infof("reverted exploration %s to version %d as version %d", id, target, next.Version)

	return doc, nil
}

// Export renders the exploration at version, zero for the live one, with its
// assets. The live version gets every asset; an older version gets the assets
// uploaded before the version after it was committed.
func (s *RevisionService) Export(ctx context.Context, id string, version int64) (*Bundle, error) {
	ctx, span := tracer.Start(ctx, "exploration.export")
	defer span.End()

	snapshot, err := s.snapshot(ctx, id, version)
	if err != nil {
		return nil, err
	}
	doc, err := decodeSnapshot(snapshot)
	if err != nil {
		return nil, err
	}

	data, err := doc.ToYAML()
	if err != nil {
		return nil, err
	}

	asOf, err := s.assetCutoff(ctx, id, snapshot.Version)
	if err != nil {
		return nil, err
	}
	files, err := s.store.ListAssets(ctx, id, asOf)
	if err != nil {
		return nil, err
	}
	assets := make([]Asset, 0, len(files))
	for _, f := range files {
		assets = append(assets, Asset{Name: f.Filename, Content: f.Content})
	}

	return &Bundle{
		Name:     doc.Title,
		Filename: doc.Title + ".yaml",
		YAML:     data,
		Assets:   assets,
	}, nil
}

// ExportStates renders every state of the exploration at version separately.
func (s *RevisionService) ExportStates(ctx context.Context, id string, version int64) (map[string]string, error) {
	doc, err := s.GetExplorationAtVersion(ctx, id, version)
	if err != nil {
		return nil, err
	}
	return doc.StatesToYAML()
}

// assetCutoff returns the zero time for the live version, otherwise the
// creation time of the following snapshot.
func (s *RevisionService) assetCutoff(ctx context.Context, id string, version int64) (time.Time, error) {
	next, err := s.store.GetSnapshot(ctx, id, version+1)
	if errors.Is(err, store.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return next.CreatedAt, nil
}

func (s *RevisionService) snapshot(ctx context.Context, id string, version int64) (*model.ExplorationSnapshot, error) {
	if version == 0 {
		row, err := s.store.GetExploration(ctx, id)
		if err != nil {
			return nil, notFound(err, "exploration", id, 0)
		}
		version = row.Version
	}

	snapshot, err := s.store.GetSnapshot(ctx, id, version)
	if err != nil {
		return nil, notFound(err, "exploration", id, version)
	}
	return snapshot, nil
}
