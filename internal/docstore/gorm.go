package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Row is the relational shape of a document.
type Row struct {
	Path       string         `gorm:"primaryKey;type:text"`
	Collection string         `gorm:"type:text;not null;index"`
	DocID      string         `gorm:"column:doc_id;type:text;not null"`
	Data       datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'::jsonb"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()"`
}

func (Row) TableName() string { return "documents" }

// GormStore keeps documents in a Postgres jsonb table. Changes are announced
// on an optional Feed so subscribers on other processes see them.
type GormStore struct {
	DB   *gorm.DB
	Feed Feed
	Log  zerolog.Logger

	hub *hub
}

func NewGormStore(db *gorm.DB, feed Feed, log zerolog.Logger) *GormStore {
	return &GormStore{
		DB:   db,
		Feed: feed,
		Log:  log.With().Str("component", "docstore").Logger(),
		hub:  newHub(),
	}
}

// Run forwards feed notifications to local subscribers until ctx is done.
func (s *GormStore) Run(ctx context.Context) error {
	if s.Feed == nil {
		<-ctx.Done()
		return nil
	}
	return s.Feed.Listen(ctx, func(path string) {
		if path == "" {
			s.hub.notifyAll()
			return
		}
		s.hub.notify(path)
	})
}

func (s *GormStore) Get(ctx context.Context, path string) (Document, error) {
	_, id, err := SplitPath(path)
	if err != nil {
		return Document{}, err
	}
	var row Row
	if err := s.DB.WithContext(ctx).First(&row, "path = ?", path).Error; err != nil {
		return Document{}, mapError(err)
	}
	data, err := decodeRow(row)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Path: path, Data: data}, nil
}

func (s *GormStore) Set(ctx context.Context, path string, data map[string]any, opts SetOptions) error {
	row, err := newRow(path, data)
	if err != nil {
		return err
	}

	// jsonb || is a top-level merge, matching SetOptions.Merge.
	dataExpr := gorm.Expr("excluded.data")
	if opts.Merge {
		dataExpr = gorm.Expr("documents.data || excluded.data")
	}
	err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "path"}},
		DoUpdates: clause.Assignments(map[string]any{
			"data":       dataExpr,
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&row).Error
	if err != nil {
		return mapError(err)
	}
	s.changed(ctx, path)
	return nil
}

func (s *GormStore) Create(ctx context.Context, path string, data map[string]any) error {
	row, err := newRow(path, data)
	if err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	s.changed(ctx, path)
	return nil
}

func (s *GormStore) Update(ctx context.Context, path string, fn UpdateFunc) error {
	_, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row Row
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "path = ?", path).Error; err != nil {
			return err
		}
		data, err := decodeRow(row)
		if err != nil {
			return err
		}
		fields, err := fn(Document{ID: id, Path: path, Data: data})
		if err != nil {
			return err
		}
		patch, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		return tx.Model(&Row{}).Where("path = ?", path).Updates(map[string]any{
			"data":       gorm.Expr("data || ?::jsonb", string(patch)),
			"updated_at": time.Now(),
		}).Error
	})
	if err != nil {
		return mapError(err)
	}
	s.changed(ctx, path)
	return nil
}

func (s *GormStore) Delete(ctx context.Context, path string) error {
	if _, _, err := SplitPath(path); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Where("path = ?", path).Delete(&Row{}).Error; err != nil {
		return mapError(err)
	}
	s.changed(ctx, path)
	return nil
}

func (s *GormStore) Query(ctx context.Context, collection, field string, value any) ([]Document, error) {
	var rows []Row
	err := s.DB.WithContext(ctx).
		Where("collection = ?", collection).
		Where(datatypes.JSONQuery("data").Equals(value, field)).
		Order("path asc").
		Find(&rows).Error
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		data, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, Document{ID: row.DocID, Path: row.Path, Data: data})
	}
	return out, nil
}

func (s *GormStore) Subscribe(ctx context.Context, path string, onChange func(Document, bool), onError func(error)) (func(), error) {
	if _, _, err := SplitPath(path); err != nil {
		return nil, err
	}
	return s.hub.subscribe(ctx, path, s.Get, onChange, onError), nil
}

// changed wakes local subscribers and announces path to other processes.
func (s *GormStore) changed(ctx context.Context, path string) {
	s.hub.notify(path)
	if s.Feed == nil {
		return
	}
	if err := s.Feed.Publish(ctx, path); err != nil {
		s.Log.Warn().Err(err).Str("path", path).Msg("change feed publish failed")
	}
}

func newRow(path string, data map[string]any) (Row, error) {
	coll, id, err := SplitPath(path)
	if err != nil {
		return Row{}, err
	}
	if data == nil {
		data = map[string]any{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return Row{}, fmt.Errorf("encode document: %w", err)
	}
	return Row{
		Path:       path,
		Collection: coll,
		DocID:      id,
		Data:       datatypes.JSON(b),
		UpdatedAt:  time.Now(),
	}, nil
}

func decodeRow(row Row) (map[string]any, error) {
	out := map[string]any{}
	if len(row.Data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(row.Data, &out); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", row.Path, err)
	}
	return out, nil
}

// Postgres insufficient_privilege.
const pgInsufficientPrivilege = "42501"

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
	}
	return err
}
