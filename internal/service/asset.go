package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/emrgen/exploration/internal/exploration"
	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/store"
	"github.com/sirupsen/logrus"
)

// AssetService stores the binary files of explorations. Files are write
// once; a revision records the exploration version they were added at.
type AssetService struct {
	store store.Store
	auth  rights.Authorizer
}

func NewAssetService(store store.Store, auth rights.Authorizer) *AssetService {
	return &AssetService{
		store: store,
		auth:  auth,
	}
}

func validAssetName(name string) bool {
	if name == "" || name == "." || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func assetExists(filename string) error {
	return &exploration.ValidationError{Msg: "A file with the name " + filename + " already exists. Please choose a different name."}
}

// SaveAsset adds a new file to an exploration.
func (s *AssetService) SaveAsset(ctx context.Context, committerID, id, filename string, content []byte) error {
	if !validAssetName(filename) {
		return ErrInvalidAssetName
	}

	r, err := s.auth.GetRights(ctx, id)
	if err != nil {
		return notFound(err, "exploration", id, 0)
	}
	if !r.CanEdit(committerID) && !s.auth.IsAdmin(committerID) {
		return &rights.UnauthorizedError{Msg: "You do not have permission to upload files to this exploration."}
	}

	err = s.store.Transaction(ctx, func(tx store.Store) error {
		row, err := tx.GetExploration(ctx, id)
		if err != nil {
			return notFound(err, "exploration", id, 0)
		}
		if _, err := tx.GetAsset(ctx, id, filename); err == nil {
			return assetExists(filename)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		return tx.CreateAsset(ctx, &model.AssetFile{
			ExplorationID: id,
			Filename:      filename,
			Revision:      row.Version,
			Content:       content,
			CommitterID:   committerID,
		})
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		return assetExists(filename)
	}
	if err != nil {
		return err
	}

	logrus.Infof("saved asset %s of exploration %s", filename, id)

	return nil
}

// ReadAsset returns the content of a file.
func (s *AssetService) ReadAsset(ctx context.Context, id, filename string) ([]byte, error) {
	if !validAssetName(filename) {
		return nil, ErrInvalidAssetName
	}
	asset, err := s.store.GetAsset(ctx, id, filename)
	if err != nil {
		return nil, notFound(err, "asset", id+"/"+filename, 0)
	}
	return asset.Content, nil
}

// ListAssets returns the file names of an exploration in lexical order.
func (s *AssetService) ListAssets(ctx context.Context, id string) ([]string, error) {
	assets, err := s.store.ListAssets(ctx, id, time.Time{})
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(assets))
	for _, asset := range assets {
		names = append(names, asset.Filename)
	}
	return names, nil
}
