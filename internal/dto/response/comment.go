package response

import (
	"time"

	"subtitle-hub/internal/data/entity"
)

type CommentResponse struct {
	ID        string    `json:"id"`
	MovieID   string    `json:"movie_id"`
	Email     string    `json:"email"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// PostedComment is returned once, right after the comment is committed. The
// delete token is never retrievable again.
type PostedComment struct {
	OK          bool            `json:"ok"`
	Comment     CommentResponse `json:"comment"`
	DeleteToken string          `json:"deleteToken"`
	Warning     string          `json:"warning,omitempty"`
}

func CommentToResponse(comment *entity.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID.String(),
		MovieID:   comment.MovieID.String(),
		Email:     comment.Email,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}
