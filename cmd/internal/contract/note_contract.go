package contract

const NoteDeletedMessage = "Note deleted successfully"

type NoteResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type DeleteNoteResponse struct {
	Message     string        `json:"message"`
	DeletedNote *NoteResponse `json:"deletedNote"`
}

// CreateNoteRequest deliberately has no owner or ID fields, anything like
// that in the body is dropped while binding.
type CreateNoteRequest struct {
	Title   string `json:"title" validate:"required,notblank,max=200"`
	Content string `json:"content" validate:"max=100000"`
}

type UpdateNoteRequest struct {
	Title   *string `json:"title" validate:"omitnil,notblank,max=200"`
	Content *string `json:"content" validate:"omitnil,max=100000"`
}
