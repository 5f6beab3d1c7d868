package adaptor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"subtitle-hub/internal/dto/request"
	"subtitle-hub/internal/dto/response"
	"subtitle-hub/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- mocks ---

type mockChallengeSvc struct{ mock.Mock }

func (m *mockChallengeSvc) RequestChallenge(ctx context.Context, req *request.RequestOTPRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockChallengeSvc) SweepExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockCommentSvc struct{ mock.Mock }

func (m *mockCommentSvc) VerifyAndPost(ctx context.Context, req *request.VerifyOTPRequest) (*response.PostedComment, error) {
	args := m.Called(ctx, req)
	if p, _ := args.Get(0).(*response.PostedComment); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCommentSvc) DeleteComment(ctx context.Context, req *request.DeleteCommentRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockCommentSvc) GetMovieComments(ctx context.Context, movieID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.CommentResponse], error) {
	args := m.Called(ctx, movieID, req)
	if p, _ := args.Get(0).(*response.PaginatedResponse[response.CommentResponse]); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

// --- helpers ---

func newTestRouter(cs *mockChallengeSvc, ms *mockCommentSvc) *chi.Mux {
	h := NewCommentHandler(cs, ms, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/api/comments/request-otp", h.RequestOTP)
	r.Post("/api/comments/verify-otp", h.VerifyOTP)
	r.Delete("/api/comments/{id}", h.DeleteComment)
	r.Get("/api/movies/{id}/comments", h.GetMovieComments)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- RequestOTP ---

func TestRequestOTP_Success(t *testing.T) {
	cs := &mockChallengeSvc{}
	cs.On("RequestChallenge", mock.Anything, mock.MatchedBy(func(req *request.RequestOTPRequest) bool {
		return req.MovieID == "m-1" && req.Email == "a@b.c" && req.Body == "hi there"
	})).Return(nil)

	rec := serve(newTestRouter(cs, &mockCommentSvc{}), http.MethodPost, "/api/comments/request-otp",
		`{"movieId":"m-1","email":"a@b.c","body":"hi there"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.NotContains(t, rec.Body.String(), "otp_code")
	cs.AssertExpectations(t)
}

func TestRequestOTP_MalformedBody(t *testing.T) {
	cs := &mockChallengeSvc{}

	rec := serve(newTestRouter(cs, &mockCommentSvc{}), http.MethodPost, "/api/comments/request-otp", `{"movieId":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "Invalid request body", body["error"])
	cs.AssertNotCalled(t, "RequestChallenge", mock.Anything, mock.Anything)
}

func TestVerifyOTP_OversizedBodyRejected(t *testing.T) {
	ms := &mockCommentSvc{}
	body := `{"movieId":"m","email":"a@b.c","otp":"123456","body":"` + strings.Repeat("x", 20<<10) + `"}`

	rec := serve(newTestRouter(&mockChallengeSvc{}, ms), http.MethodPost, "/api/comments/verify-otp", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"Request body too large"}`, rec.Body.String())
	ms.AssertNotCalled(t, "VerifyAndPost", mock.Anything, mock.Anything)
}

func TestRequestOTP_MaxLengthCommentFitsBodyLimit(t *testing.T) {
	cs := &mockChallengeSvc{}
	cs.On("RequestChallenge", mock.Anything, mock.Anything).Return(nil)
	body := `{"movieId":"m","email":"a@b.c","body":"` + strings.Repeat("é", 2000) + `"}`

	rec := serve(newTestRouter(cs, &mockCommentSvc{}), http.MethodPost, "/api/comments/request-otp", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	cs.AssertExpectations(t)
}

func TestRequestOTP_RateLimitedSetsRetryAfter(t *testing.T) {
	cs := &mockChallengeSvc{}
	cs.On("RequestChallenge", mock.Anything, mock.Anything).
		Return(&usecase.RateLimitError{RetryAfter: 41500 * time.Millisecond})

	rec := serve(newTestRouter(cs, &mockCommentSvc{}), http.MethodPost, "/api/comments/request-otp",
		`{"movieId":"m","email":"a@b.c","body":"hi"}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	body := decode(t, rec)
	assert.Equal(t, false, body["ok"])
	assert.Contains(t, body["error"], "42 seconds")
}

// --- VerifyOTP ---

func TestVerifyOTP_Created(t *testing.T) {
	ms := &mockCommentSvc{}
	posted := &response.PostedComment{
		OK: true,
		Comment: response.CommentResponse{
			ID:      "c-1",
			MovieID: "m-1",
			Email:   "a@b.c",
			Body:    "hi there",
		},
		DeleteToken: "tok",
	}
	ms.On("VerifyAndPost", mock.Anything, mock.MatchedBy(func(req *request.VerifyOTPRequest) bool {
		return req.OTP == "012345"
	})).Return(posted, nil)

	rec := serve(newTestRouter(&mockChallengeSvc{}, ms), http.MethodPost, "/api/comments/verify-otp",
		`{"movieId":"m-1","email":"a@b.c","body":"hi there","otp":"012345"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "tok", body["deleteToken"])
	assert.NotContains(t, body, "warning")
	comment := body["comment"].(map[string]any)
	assert.Equal(t, "c-1", comment["id"])
	assert.Equal(t, "m-1", comment["movie_id"])
	assert.Contains(t, comment, "created_at")
}

func TestVerifyOTP_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &usecase.ValidationError{Fields: map[string]string{"otp": "OTP must be 6 digits"}}, http.StatusBadRequest},
		{"not found", usecase.ErrChallengeNotFound, http.StatusBadRequest},
		{"expired", usecase.ErrChallengeExpired, http.StatusBadRequest},
		{"already used", usecase.ErrChallengeAlreadyUsed, http.StatusBadRequest},
		{"mismatch", usecase.ErrOTPMismatch, http.StatusBadRequest},
		{"too many attempts", usecase.ErrTooManyAttempts, http.StatusTooManyRequests},
		{"storage", fmt.Errorf("%w: create comment: %w", usecase.ErrStorage, errors.New("pq: secret detail")), http.StatusInternalServerError},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := &mockCommentSvc{}
			ms.On("VerifyAndPost", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := serve(newTestRouter(&mockChallengeSvc{}, ms), http.MethodPost, "/api/comments/verify-otp",
				`{"movieId":"m","email":"a@b.c","body":"hi","otp":"123456"}`)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["ok"])
			assert.NotEmpty(t, body["error"])
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}

func TestVerifyOTP_ValidationErrorsListed(t *testing.T) {
	ms := &mockCommentSvc{}
	ms.On("VerifyAndPost", mock.Anything, mock.Anything).
		Return(nil, &usecase.ValidationError{Fields: map[string]string{"otp": "OTP must be 6 digits"}})

	rec := serve(newTestRouter(&mockChallengeSvc{}, ms), http.MethodPost, "/api/comments/verify-otp",
		`{"movieId":"m","email":"a@b.c","body":"hi","otp":"12345"}`)

	body := decode(t, rec)
	errs := body["errors"].(map[string]any)
	assert.Equal(t, "OTP must be 6 digits", errs["otp"])
}

// --- DeleteComment ---

func TestDeleteComment_PathIDWins(t *testing.T) {
	ms := &mockCommentSvc{}
	ms.On("DeleteComment", mock.Anything, &request.DeleteCommentRequest{CommentID: "c-9", DeleteToken: "tok"}).Return(nil)

	rec := serve(newTestRouter(&mockChallengeSvc{}, ms), http.MethodDelete, "/api/comments/c-9",
		`{"commentId":"other","deleteToken":"tok"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])
	ms.AssertExpectations(t)
}

func TestDeleteComment_EmptyBodyReachesService(t *testing.T) {
	ms := &mockCommentSvc{}
	ms.On("DeleteComment", mock.Anything, &request.DeleteCommentRequest{CommentID: "c-9"}).
		Return(&usecase.ValidationError{Fields: map[string]string{"deleteToken": "This field is required"}})

	rec := serve(newTestRouter(&mockChallengeSvc{}, ms), http.MethodDelete, "/api/comments/c-9", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ms.AssertExpectations(t)
}

func TestDeleteComment_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{usecase.ErrForbidden, http.StatusForbidden},
		{usecase.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: delete comment: %w", usecase.ErrStorage, errors.New("timeout")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		ms := &mockCommentSvc{}
		ms.On("DeleteComment", mock.Anything, mock.Anything).Return(tt.err)

		rec := serve(newTestRouter(&mockChallengeSvc{}, ms), http.MethodDelete, "/api/comments/c-1", `{"deleteToken":"t"}`)

		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
		assert.Equal(t, false, decode(t, rec)["ok"])
	}
}

// --- GetMovieComments ---

func TestGetMovieComments_PassesPagination(t *testing.T) {
	ms := &mockCommentSvc{}
	page := response.NewPaginatedResponse([]response.CommentResponse{{ID: "c-1", Body: "hi"}}, 2, 5, 6)
	ms.On("GetMovieComments", mock.Anything, "m-1", &request.PaginatedRequest{Page: 2, PerPage: 5}).Return(page, nil)

	rec := serve(newTestRouter(&mockChallengeSvc{}, ms), http.MethodGet, "/api/movies/m-1/comments?page=2&per_page=5", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Len(t, body["data"], 1)
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 6, pagination["total"])
	assert.EqualValues(t, 2, pagination["total_pages"])
}

func TestGetMovieComments_DefaultsPerPage(t *testing.T) {
	ms := &mockCommentSvc{}
	page := response.NewPaginatedResponse([]response.CommentResponse{}, 1, request.DefaultPerPage, 0)
	ms.On("GetMovieComments", mock.Anything, "m-1", &request.PaginatedRequest{Page: 1, PerPage: request.DefaultPerPage}).Return(page, nil)

	rec := serve(newTestRouter(&mockChallengeSvc{}, ms), http.MethodGet, "/api/movies/m-1/comments?page=abc", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	ms.AssertExpectations(t)
}

// --- Health ---

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(stubPinger{}, zap.NewNop()).Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])

	rec = httptest.NewRecorder()
	NewHealthHandler(stubPinger{err: errors.New("down")}, zap.NewNop()).Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, decode(t, rec)["ok"])
}
