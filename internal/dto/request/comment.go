package request

import "strings"

// CommentDraft is the part of a comment submission shared by the OTP request
// and the OTP verification step.
type CommentDraft struct {
	MovieID string `json:"movieId" validate:"required,uuid"`
	Email   string `json:"email" validate:"required,contains=@,max=320"`
	Body    string `json:"body" validate:"required,min=2,max=2000"`
}

// Normalize trims every field and case-folds the email.
func (d *CommentDraft) Normalize() {
	d.MovieID = strings.TrimSpace(d.MovieID)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Body = strings.TrimSpace(d.Body)
}

type RequestOTPRequest struct {
	CommentDraft
}

type VerifyOTPRequest struct {
	CommentDraft
	OTP string `json:"otp" validate:"required,otp"`
}

func (r *VerifyOTPRequest) Normalize() {
	r.CommentDraft.Normalize()
	r.OTP = strings.TrimSpace(r.OTP)
}

type DeleteCommentRequest struct {
	CommentID   string `json:"commentId" validate:"required,uuid"`
	DeleteToken string `json:"deleteToken" validate:"required"`
}

func (r *DeleteCommentRequest) Normalize() {
	r.CommentID = strings.TrimSpace(r.CommentID)
}
