package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"notekeeper/cmd/internal/domain/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type noteDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	OwnerID   string             `bson:"ownerId"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type DefaultNoteRepository struct {
	coll *mongo.Collection
}

func NewNoteRepository(coll *mongo.Collection) *DefaultNoteRepository {
	return &DefaultNoteRepository{coll: coll}
}

// FindAllByOwner returns the owner's notes in insertion order (ObjectIDs
// start with their creation second).
func (d *DefaultNoteRepository) FindAllByOwner(ctx context.Context, ownerID string) ([]*entity.Note, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := d.coll.Find(ctx, bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, err
	}

	var docs []noteDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	notes := make([]*entity.Note, len(docs))
	for i := range docs {
		notes[i] = docs[i].toEntity()
	}
	return notes, nil
}

func (d *DefaultNoteRepository) Create(ctx context.Context, note *entity.Note) error {
	if err := note.Validate(); err != nil {
		return err
	}

	// BSON dates only keep milliseconds
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := noteDocument{
		Title:     note.Title,
		Content:   note.Content,
		OwnerID:   note.OwnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	res, err := d.coll.InsertOne(ctx, doc)
	if err != nil {
		return err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}

	doc.ID = oid
	*note = *doc.toEntity()
	return nil
}

// UpdateOwned runs a single findAndModify scoped to (id, owner). The filter
// only matches when at least one field really differs, so a no-op patch
// never bumps updatedAt; in that case the note is read back unchanged.
// It returns (nil, nil) when no such note exists.
func (d *DefaultNoteRepository) UpdateOwned(ctx context.Context, id, ownerID string, patch *entity.NotePatch) (*entity.Note, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", entity.ErrInvalidNote)
	}

	set := bson.M{}
	differs := bson.A{}
	if patch.Title != nil {
		set["title"] = *patch.Title
		differs = append(differs, bson.M{"title": bson.M{"$ne": *patch.Title}})
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
		differs = append(differs, bson.M{"content": bson.M{"$ne": *patch.Content}})
	}

	if len(set) == 0 {
		return d.findOwned(ctx, oid, ownerID)
	}

	filter := bson.M{"_id": oid, "ownerId": ownerID, "$or": differs}
	update := bson.M{
		"$set":         set,
		"$currentDate": bson.M{"updatedAt": true},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc noteDocument
	err = d.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return d.findOwned(ctx, oid, ownerID)
	}

	if err != nil {
		return nil, err
	}
	return doc.toEntity(), nil
}

// DeleteOwned removes the note matching (id, owner) and returns what it held.
// It returns (nil, nil) when no such note exists.
func (d *DefaultNoteRepository) DeleteOwned(ctx context.Context, id, ownerID string) (*entity.Note, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var doc noteDocument
	err = d.coll.FindOneAndDelete(ctx, bson.M{"_id": oid, "ownerId": ownerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return doc.toEntity(), nil
}

func (d *DefaultNoteRepository) Ping(ctx context.Context) error {
	return d.coll.Database().Client().Ping(ctx, nil)
}

func (d *DefaultNoteRepository) Close(ctx context.Context) error {
	return d.coll.Database().Client().Disconnect(ctx)
}

func (d *DefaultNoteRepository) findOwned(ctx context.Context, oid primitive.ObjectID, ownerID string) (*entity.Note, error) {
	var doc noteDocument
	err := d.coll.FindOne(ctx, bson.M{"_id": oid, "ownerId": ownerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}
	return doc.toEntity(), nil
}

func (d *noteDocument) toEntity() *entity.Note {
	return &entity.Note{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		OwnerID:   d.OwnerID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
