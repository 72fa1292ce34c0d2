package boards

import "github.com/taskway/taskway/internal/shared"

// CreateBoardRequest carries the create payload.
type CreateBoardRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// RenameBoardRequest carries the rename payload.
type RenameBoardRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// AddMemberRequest carries the roster payload.
type AddMemberRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid4"`
}

// BoardResponse mirrors a board row. Timestamps render as RFC 3339
// strings and absent values as explicit nulls.
type BoardResponse struct {
	ID        string  `json:"id"`
	TenantID  *string `json:"tenant_id"`
	OwnerID   string  `json:"owner_id"`
	Name      string  `json:"name"`
	DeletedAt *string `json:"deleted_at"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

func toResponse(b Board) BoardResponse {
	resp := BoardResponse{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Name:      b.Name,
		DeletedAt: shared.ISOTimePtr(b.DeletedAt),
		CreatedAt: shared.ISOTime(b.CreatedAt),
		UpdatedAt: shared.ISOTime(b.UpdatedAt),
	}
	if b.TenantID != "" {
		tenant := b.TenantID
		resp.TenantID = &tenant
	}
	return resp
}
