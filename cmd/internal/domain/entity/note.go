package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidNote is returned by stores when a note fails their own
// integrity checks. Its message is safe to return to clients.
var ErrInvalidNote = errors.New("invalid note")

type Note struct {
	ID        string    `gorm:"primaryKey;size:24"`
	Title     string    `gorm:"not null;size:200"`
	Content   string    `gorm:"not null"`
	OwnerID   string    `gorm:"not null;size:128;index"` // Verified subject of the creator
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Validate checks the fields every store requires before persisting.
func (n *Note) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidNote)
	}

	if n.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidNote)
	}
	return nil
}

// NotePatch holds the only fields a client is allowed to change.
// A nil field is left untouched.
type NotePatch struct {
	Title   *string
	Content *string
}

func (p *NotePatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil
}

// Apply copies the patch into the note and reports whether any value
// actually changed.
func (p *NotePatch) Apply(note *Note) bool {
	dirty := false
	if p.Title != nil && *p.Title != note.Title {
		note.Title = *p.Title
		dirty = true
	}
	if p.Content != nil && *p.Content != note.Content {
		note.Content = *p.Content
		dirty = true
	}
	return dirty
}
