package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/emrgen/exploration/internal/model"
	"github.com/emrgen/exploration/internal/rights"
	"github.com/emrgen/exploration/internal/search"
	"github.com/emrgen/exploration/internal/store"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Summary tiers.
const (
	TierNonPrivate      = "non_private"
	TierAll             = "all"
	TierPrivateViewable = "private_viewable"
	TierEditable        = "editable"
)

// PageRequest selects a page of the commit log.
type PageRequest struct {
	Size       int
	Cursor     string
	NonPrivate bool
}

// CommitLogPage is a page of commit log entries, newest first.
type CommitLogPage struct {
	Entries []*model.CommitLogEntry
	Cursor  string
	More    bool
}

// SummaryQuery selects a page of summaries of one tier.
type SummaryQuery struct {
	UserID string
	Tier   string
	Size   int
	Cursor string
}

type SummaryPage struct {
	Summaries []*model.ExplorationSummary
	Cursor    string
	More      bool
}

// QueryService answers read-only questions over summaries, the commit log
// and the search index.
type QueryService struct {
	store    store.Store
	searcher *SearchIndexer
}

func NewQueryService(store store.Store, searcher *SearchIndexer) *QueryService {
	return &QueryService{
		store:    store,
		searcher: searcher,
	}
}

// CommitLog returns a page of the global commit log.
func (s *QueryService) CommitLog(ctx context.Context, req PageRequest) (*CommitLogPage, error) {
	size := pageSize(req.Size)

	var before uint64
	if req.Cursor != "" {
		raw, err := decodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		before, err = strconv.ParseUint(raw, 10, 64)
		if err != nil || before == 0 {
			return nil, ErrInvalidCursor
		}
	}

	entries, err := s.store.ListCommitLogEntries(ctx, store.CommitLogQuery{
		BeforeSeq:  before,
		Limit:      size + 1,
		NonPrivate: req.NonPrivate,
	})
	if err != nil {
		return nil, err
	}

	page := &CommitLogPage{Entries: entries}
	if len(entries) > size {
		page.Entries = entries[:size]
		page.More = true
	}
	if n := len(page.Entries); n != 0 {
		page.Cursor = encodeCursor(strconv.FormatUint(page.Entries[n-1].Seq, 10))
	}

	return page, nil
}

// Summaries returns a page of the summaries in a tier, ordered by id.
func (s *QueryService) Summaries(ctx context.Context, query SummaryQuery) (*SummaryPage, error) {
	size := pageSize(query.Size)

	filter := store.SummaryFilter{Limit: size + 1}
	switch query.Tier {
	case TierNonPrivate, "":
		filter.ExcludeStatus = string(rights.StatusPrivate)
	case TierAll:
	case TierPrivateViewable:
		filter.Status = string(rights.StatusPrivate)
		filter.MemberID = query.UserID
		filter.MemberRoles = []string{string(rights.RoleOwner), string(rights.RoleEditor), string(rights.RoleViewer)}
	case TierEditable:
		filter.MemberID = query.UserID
		filter.MemberRoles = []string{string(rights.RoleOwner), string(rights.RoleEditor)}
		filter.CommunityOwned = true
	default:
		return nil, fmt.Errorf("unknown summary tier: %s", query.Tier)
	}
	if filter.MemberID == "" && filter.MemberRoles != nil {
		return &SummaryPage{}, nil
	}

	if query.Cursor != "" {
		after, err := decodeCursor(query.Cursor)
		if err != nil {
			return nil, err
		}
		filter.AfterID = after
	}

	summaries, err := s.store.ListSummaries(ctx, filter)
	if err != nil {
		return nil, err
	}

	page := &SummaryPage{Summaries: summaries}
	if len(summaries) > size {
		page.Summaries = summaries[:size]
		page.More = true
	}
	if n := len(page.Summaries); n != 0 {
		page.Cursor = encodeCursor(page.Summaries[n-1].ID)
	}

	return page, nil
}

func (s *QueryService) Search(ctx context.Context, query search.Query) (*search.Result, error) {
	query.Limit = pageSize(query.Limit)
	return s.searcher.Search(ctx, query)
}

func (s *QueryService) IndexExplorations(ctx context.Context, ids []string) error {
	return s.searcher.IndexExplorations(ctx, ids)
}

func (s *QueryService) PatchSearchDocument(ctx context.Context, id string, patch map[string]any) error {
	return s.searcher.PatchSearchDocument(ctx, id, patch)
}

func (s *QueryService) UpdateStatusInSearch(ctx context.Context, id string) error {
	return s.searcher.UpdateStatusInSearch(ctx, id)
}

func pageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	return min(size, MaxPageSize)
}

func encodeCursor(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func decodeCursor(cursor string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", ErrInvalidCursor
	}
	return string(raw), nil
}
