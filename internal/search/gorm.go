package search

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/emrgen/exploration/internal/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultLimit = 20

var sortColumns = map[string]string{
	"rank":  "rank",
	"title": "title",
}

var _ Index = (*GormIndex)(nil)

// GormIndex keeps search documents in the database and matches queries with
// case-insensitive substring search over the text fields.
type GormIndex struct {
	db *gorm.DB
}

func NewGormIndex(db *gorm.DB) *GormIndex {
	return &GormIndex{db: db}
}

func (g *GormIndex) AddDocuments(ctx context.Context, index string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	rows := make([]*model.SearchDocument, 0, len(docs))
	for _, doc := range docs {
		if doc.ID() == "" {
			return fmt.Errorf("search document without id in index %s", index)
		}
		rows = append(rows, &model.SearchDocument{
			IndexName: index,
			ID:        doc.ID(),
			Title:     stringField(doc, "title"),
			Category:  stringField(doc, "category"),
			Objective: stringField(doc, "objective"),
			Tags:      strings.Join(stringsField(doc, "tags"), " "),
			Rank:      doc.Int("rank"),
			Fields:    datatypes.JSONMap(doc),
		})
	}

	return g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

func (g *GormIndex) GetDocument(ctx context.Context, index, id string) (Document, error) {
	var row model.SearchDocument
	err := g.db.WithContext(ctx).Where("index_name = ? AND id = ?", index, id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	return Document(row.Fields), nil
}

func (g *GormIndex) DeleteDocuments(ctx context.Context, index string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return g.db.WithContext(ctx).Where("index_name = ? AND id in (?)", index, ids).Delete(&model.SearchDocument{}).Error
}

func (g *GormIndex) Search(ctx context.Context, index string, query Query) (*Result, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset, err := decodeCursor(query.Cursor)
	if err != nil {
		return nil, err
	}
	order, err := orderBy(query.Sort)
	if err != nil {
		return nil, err
	}

	db := g.db.WithContext(ctx).Model(&model.SearchDocument{}).Where("index_name = ?", index)
	for _, term := range strings.Fields(strings.ToLower(query.Text)) {
		like := "%" + term + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(category) LIKE ? OR LOWER(objective) LIKE ? OR LOWER(tags) LIKE ?", like, like, like, like)
	}

	var ids []string
	err = db.Order(order).Order("id asc").Offset(offset).Limit(limit+1).Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	res := &Result{IDs: ids}
	if len(ids) > limit {
		res.IDs = ids[:limit]
		res.Cursor = encodeCursor(offset + limit)
	}

	return res, nil
}

func orderBy(sort string) (string, error) {
	if sort == "" {
		sort = "-rank"
	}
	dir := "asc"
	if strings.HasPrefix(sort, "-") {
		dir = "desc"
		sort = sort[1:]
	}
	column, ok := sortColumns[sort]
	if !ok {
		return "", fmt.Errorf("unsupported sort field %q", sort)
	}
	return column + " " + dir, nil
}

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid search cursor: %w", err)
	}
	offset, err := strconv.Atoi(string(data))
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid search cursor %q", cursor)
	}
	return offset, nil
}

func stringField(doc Document, key string) string {
	s, _ := doc[key].(string)
	return s
}

func stringsField(doc Document, key string) []string {
	switch v := doc[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
