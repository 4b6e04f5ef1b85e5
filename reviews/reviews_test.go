package reviews

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"devcamper-backend/apperror"
	"devcamper-backend/authentication"
	"devcamper-backend/bootcamps"
	"devcamper-backend/bootcamps/bootcampstest"
	"devcamper-backend/query"
	"devcamper-backend/users"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore mirrors the unique (bootcamp, user) index.
type memStore struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]Review
}

func newMemStore() *memStore {
	return &memStore{reviews: map[primitive.ObjectID]Review{}}
}

func (s *memStore) Create(_ context.Context, review *Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reviews {
		if r.Bootcamp == review.Bootcamp && r.User == review.User {
			return apperror.NewDuplicateKey(duplicateReview, nil)
		}
	}
	review.ID = primitive.NewObjectID()
	s.reviews[review.ID] = *review
	return nil
}

func (s *memStore) FindByID(_ context.Context, id primitive.ObjectID) (*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, apperror.NewNotFound("Review not found")
	}
	return &r, nil
}

func (s *memStore) ListByBootcamp(_ context.Context, bootcampID primitive.ObjectID) ([]Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Review, 0)
	for _, r := range s.reviews {
		if r.Bootcamp == bootcampID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Update(_ context.Context, id primitive.ObjectID, req UpdateReviewRequest) (*Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reviews[id]
	if !ok {
		return nil, apperror.NewNotFound("Review not found")
	}
	if req.Title != nil {
		r.Title = *req.Title
	}
	if req.Text != nil {
		r.Text = *req.Text
	}
	if req.Rating != nil {
		r.Rating = *req.Rating
	}
	s.reviews[id] = r
	return &r, nil
}

func (s *memStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviews[id]; !ok {
		return apperror.NewNotFound("Review not found")
	}
	delete(s.reviews, id)
	return nil
}

func (s *memStore) DeleteByBootcamp(_ context.Context, bootcampID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.reviews {
		if r.Bootcamp == bootcampID {
			delete(s.reviews, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) AverageRating(_ context.Context, bootcampID primitive.ObjectID) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum, n int
	for _, r := range s.reviews {
		if r.Bootcamp == bootcampID {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := float64(sum) / float64(n)
	return &avg, nil
}

type nopLister struct{}

func (nopLister) List(context.Context, url.Values) (*query.Result, error) {
	return &query.Result{Success: true}, nil
}

type env struct {
	reviews   *memStore
	bootcamps *bootcampstest.Store
	camp      *bootcamps.Bootcamp
	caller    *users.User
	router    *gin.Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		reviews:   newMemStore(),
		bootcamps: bootcampstest.NewStore(),
		caller:    &users.User{ID: primitive.NewObjectID(), Role: users.RoleUser},
	}
	e.camp = &bootcamps.Bootcamp{Name: "Devworks", Slug: "devworks", Description: "Full stack", User: primitive.NewObjectID()}
	require.NoError(t, e.bootcamps.Create(context.Background(), e.camp))

	nop := zerolog.Nop()
	h := NewHandler(e.reviews, e.bootcamps, nopLister{}, &nop)
	asCaller := func(c *gin.Context) { authentication.SetCurrentUser(c, e.caller) }

	r := gin.New()
	r.GET("/reviews/:id", h.HandleGetReview)
	r.GET("/bootcamps/:bootcampId/reviews", h.HandleGetReviews)
	r.POST("/bootcamps/:bootcampId/reviews", asCaller, h.HandleAddReview)
	r.PUT("/reviews/:id", asCaller, h.HandleUpdateReview)
	r.DELETE("/reviews/:id", asCaller, h.HandleDeleteReview)
	e.router = r
	return e
}

func (e *env) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) review(t *testing.T, rating string) primitive.ObjectID {
	t.Helper()
	w := e.do(http.MethodPost, "/bootcamps/"+e.camp.ID.Hex()+"/reviews", `{"title":"Great","text":"Learned a lot","rating":`+rating+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Data Review `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data.ID
}

func TestRoundRating(t *testing.T) {
	assert.Equal(t, 7.67, bootcamps.RoundRating(23.0/3))
	assert.Equal(t, 8.0, bootcamps.RoundRating(8))
}

func TestAddReviewRecomputesAverageRating(t *testing.T) {
	e := newEnv(t)
	e.review(t, "8")
	assert.Equal(t, 8.0, *e.bootcamps.Get(e.camp.ID).AverageRating)

	e.caller = &users.User{ID: primitive.NewObjectID(), Role: users.RoleUser}
	e.review(t, "7")
	e.caller = &users.User{ID: primitive.NewObjectID(), Role: users.RoleUser}
	id := e.review(t, "8")
	assert.Equal(t, 7.67, *e.bootcamps.Get(e.camp.ID).AverageRating)

	w := e.do(http.MethodPut, "/reviews/"+id.Hex(), `{"rating":10}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 8.33, *e.bootcamps.Get(e.camp.ID).AverageRating)
}

func TestOneReviewPerUserPerBootcamp(t *testing.T) {
	e := newEnv(t)
	e.review(t, "8")

	w := e.do(http.MethodPost, "/bootcamps/"+e.camp.ID.Hex()+"/reviews", `{"title":"Again","text":"t","rating":9}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"You have already reviewed this bootcamp"}`, w.Body.String())
	assert.Equal(t, 8.0, *e.bootcamps.Get(e.camp.ID).AverageRating)
}

func TestAddReviewValidation(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/bootcamps/"+e.camp.ID.Hex()+"/reviews", `{"title":"T","text":"t","rating":11}`).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/bootcamps/"+e.camp.ID.Hex()+"/reviews", `{"title":"T","text":"t","rating":0}`).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/bootcamps/"+primitive.NewObjectID().Hex()+"/reviews", `{"title":"T","text":"t","rating":5}`).Code)
}

func TestDeleteLastReviewUnsetsAverage(t *testing.T) {
	e := newEnv(t)
	id := e.review(t, "6")

	e.caller = &users.User{ID: primitive.NewObjectID(), Role: users.RoleUser}
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodDelete, "/reviews/"+id.Hex(), "").Code)

	e.caller.Role = users.RoleAdmin
	require.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/reviews/"+id.Hex(), "").Code)
	assert.Nil(t, e.bootcamps.Get(e.camp.ID).AverageRating)
}

func TestGetReviewsAndDetail(t *testing.T) {
	e := newEnv(t)
	id := e.review(t, "6")

	w := e.do(http.MethodGet, "/bootcamps/"+e.camp.ID.Hex()+"/reviews", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list ReviewListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	w = e.do(http.MethodGet, "/reviews/"+id.Hex(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Devworks"`)

	w = e.do(http.MethodGet, "/reviews/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
