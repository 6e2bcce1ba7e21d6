package repository

import (
	"context"
	"errors"
	"fmt"

	"notekeeper/cmd/internal/domain/entity"
	"notekeeper/cmd/internal/utils/uid"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var lockForUpdate = clause.Locking{Strength: "UPDATE"}

type DefaultNoteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) *DefaultNoteRepository {
	return &DefaultNoteRepository{db: db}
}

// FindAllByOwner returns the owner's notes in insertion order (snowflake IDs
// are time ordered and fixed width).
func (d *DefaultNoteRepository) FindAllByOwner(ctx context.Context, ownerID string) ([]*entity.Note, error) {
	notes := []*entity.Note{}
	err := d.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// Create assigns the note a fresh ID and persists it. Timestamps are filled
// in by gorm.
func (d *DefaultNoteRepository) Create(ctx context.Context, note *entity.Note) error {
	if err := note.Validate(); err != nil {
		return err
	}

	note.ID = uid.Generate()
	return d.db.WithContext(ctx).Create(note).Error
}

// UpdateOwned applies the patch to the note matching both id and owner.
// It returns (nil, nil) when no such note exists. When the patch changes
// nothing the stored note is returned as is and updated_at is left alone.
func (d *DefaultNoteRepository) UpdateOwned(ctx context.Context, id, ownerID string, patch *entity.NotePatch) (*entity.Note, error) {
	var updated *entity.Note
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := findOwnedForUpdate(tx, id, ownerID)
		if err != nil || note == nil {
			return err
		}

		if patch.Apply(note) {
			if err = note.Validate(); err != nil {
				return err
			}
			if err = tx.Save(note).Error; err != nil {
				return fmt.Errorf("saving note %s: %w", id, err)
			}
		}

		updated = note
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteOwned removes the note matching both id and owner and returns its
// last state. It returns (nil, nil) when no such note exists.
func (d *DefaultNoteRepository) DeleteOwned(ctx context.Context, id, ownerID string) (*entity.Note, error) {
	var deleted *entity.Note
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		note, err := findOwnedForUpdate(tx, id, ownerID)
		if err != nil || note == nil {
			return err
		}

		if err = tx.Delete(note).Error; err != nil {
			return fmt.Errorf("deleting note %s: %w", id, err)
		}

		deleted = note
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (d *DefaultNoteRepository) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *DefaultNoteRepository) Close(_ context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// findOwnedForUpdate locks the row for the rest of the transaction.
// SQLite has no row locks; its single connection does the job instead.
func findOwnedForUpdate(tx *gorm.DB, id, ownerID string) (*entity.Note, error) {
	var note entity.Note
	err := tx.Clauses(lockForUpdate).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return &note, nil
}
