package service

import (
	"errors"
	"fmt"

	"github.com/emrgen/exploration/internal/store"
)

var (
	// ErrCommitMessageRequired is returned when a public exploration is committed without a message.
	ErrCommitMessageRequired = errors.New("Exploration is public so expected a commit message but received none.")
	// ErrInvalidVersion is returned when a requested version is out of range.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrInvalidAssetName is returned when an asset name is not a plain file name.
	ErrInvalidAssetName = errors.New("invalid asset name")
	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	// ErrInvalidCursor is returned when a page cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// NotFoundError is returned when an exploration, or one of its versions, does
// not exist.
type NotFoundError struct {
	Kind    string
	ID      string
	Version int64
}

func (e *NotFoundError) Error() string {
	if e.Version != 0 {
		return fmt.Sprintf("%s %s at version %d not found", e.Kind, e.ID, e.Version)
	}
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// StaleVersionError is returned when a commit was prepared against a version
// that is no longer the live one.
type StaleVersionError struct {
	Expected int64
	Actual   int64
}

func (e *StaleVersionError) Error() string {
	if e.Actual > e.Expected {
		return fmt.Sprintf("Trying to update version %d of exploration from version %d, which is too old. Please reload the page and try again.", e.Actual, e.Expected)
	}
	return fmt.Sprintf("Unexpected error: trying to update version %d of exploration from version %d. Please reload the page and try again.", e.Actual, e.Expected)
}

// notFound converts store.ErrNotFound into a NotFoundError.
func notFound(err error, kind, id string, version int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Kind: kind, ID: id, Version: version}
	}
	return err
}
