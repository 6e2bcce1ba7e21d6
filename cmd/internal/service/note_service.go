package service

import (
	"context"
	"errors"
	"net/http"

	"notekeeper/cmd/internal/contract"
	"notekeeper/cmd/internal/domain/entity"
	"notekeeper/cmd/internal/domain/identity"
	"notekeeper/cmd/internal/utils"
	"notekeeper/cmd/internal/utils/apierror"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
)

// NoteRepository only exposes owner-scoped operations, so there is no way
// for this service to touch a note without naming its owner.
type NoteRepository interface {
	FindAllByOwner(ctx context.Context, ownerID string) ([]*entity.Note, error)
	Create(ctx context.Context, note *entity.Note) error
	UpdateOwned(ctx context.Context, id, ownerID string, patch *entity.NotePatch) (*entity.Note, error)
	DeleteOwned(ctx context.Context, id, ownerID string) (*entity.Note, error)
}

type DefaultNoteService struct {
	NoteRepo NoteRepository
	Validate *validator.Validate
}

func NewNoteService(noteRepo NoteRepository, validate *validator.Validate) *DefaultNoteService {
	return &DefaultNoteService{
		NoteRepo: noteRepo,
		Validate: validate,
	}
}

func (n *DefaultNoteService) ListNotes(ctx context.Context, actor *identity.Subject) ([]*contract.NoteResponse, apierror.ErrorResponse) {
	notes, err := n.NoteRepo.FindAllByOwner(ctx, actor.ID)
	if err != nil {
		log.Errorf("failed to fetch notes of %s: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}

	resp := make([]*contract.NoteResponse, len(notes))
	for i, note := range notes {
		resp[i] = toNoteResponse(note)
	}
	return resp, nil
}

func (n *DefaultNoteService) CreateNote(ctx context.Context, actor *identity.Subject, req *contract.CreateNoteRequest) (*contract.NoteResponse, apierror.ErrorResponse) {
	if valerr := n.Validate.Struct(req); valerr != nil {
		return nil, validationError(valerr)
	}

	note := &entity.Note{
		Title:   req.Title,
		Content: req.Content,
		OwnerID: actor.ID,
	}

	if err := n.NoteRepo.Create(ctx, note); err != nil {
		if errors.Is(err, entity.ErrInvalidNote) {
			return nil, apierror.NewSimple(http.StatusBadRequest, err.Error())
		}
		log.Errorf("failed to create note for %s: %v", actor.ID, err)
		return nil, apierror.InternalServerError
	}
	return toNoteResponse(note), nil
}

func (n *DefaultNoteService) UpdateNote(ctx context.Context, actor *identity.Subject, noteID string, req *contract.UpdateNoteRequest) (*contract.NoteResponse, apierror.ErrorResponse) {
	patch := &entity.NotePatch{Title: req.Title, Content: req.Content}
	if patch.IsEmpty() {
		return nil, apierror.EmptyUpdateError
	}

	if valerr := n.Validate.Struct(req); valerr != nil {
		return nil, validationError(valerr)
	}

	note, err := n.NoteRepo.UpdateOwned(ctx, noteID, actor.ID, patch)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidNote) {
			return nil, apierror.NewSimple(http.StatusBadRequest, err.Error())
		}
		log.Errorf("failed to update note %s for %s: %v", noteID, actor.ID, err)
		return nil, apierror.InternalServerError
	}

	if note == nil {
		return nil, apierror.NoteNotFoundError
	}
	return toNoteResponse(note), nil
}

func (n *DefaultNoteService) DeleteNote(ctx context.Context, actor *identity.Subject, noteID string) (*contract.DeleteNoteResponse, apierror.ErrorResponse) {
	note, err := n.NoteRepo.DeleteOwned(ctx, noteID, actor.ID)
	if err != nil {
		log.Errorf("failed to delete note %s for %s: %v", noteID, actor.ID, err)
		return nil, apierror.InternalServerError
	}

	if note == nil {
		return nil, apierror.NoteNotFoundError
	}

	return &contract.DeleteNoteResponse{
		Message:     contract.NoteDeletedMessage,
		DeletedNote: toNoteResponse(note),
	}, nil
}

func validationError(err error) apierror.ErrorResponse {
	if se := apierror.FromValidationError(err); se != nil {
		return se
	}

	// InvalidValidationError, only happens on programming mistakes
	log.Errorf("unexpected validation failure: %v", err)
	return apierror.InternalServerError
}

func toNoteResponse(note *entity.Note) *contract.NoteResponse {
	return &contract.NoteResponse{
		ID:        note.ID,
		Title:     note.Title,
		Content:   note.Content,
		OwnerID:   note.OwnerID,
		CreatedAt: utils.FormatTime(note.CreatedAt),
		UpdatedAt: utils.FormatTime(note.UpdatedAt),
	}
}
