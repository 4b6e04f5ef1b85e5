package courses

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

type memStore struct {
	mu      sync.Mutex
	courses map[primitive.ObjectID]Course
}

func newMemStore() *memStore {
	return &memStore{courses: map[primitive.ObjectID]Course{}}
}

func (s *memStore) Create(_ context.Context, course *Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	course.ID = primitive.NewObjectID()
	s.courses[course.ID] = *course
	return nil
}

func (s *memStore) FindByID(_ context.Context, id primitive.ObjectID) (*Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, apperror.NewNotFound("Course not found")
	}
	return &c, nil
}

func (s *memStore) ListByBootcamp(_ context.Context, bootcampID primitive.ObjectID) ([]Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Course, 0)
	for _, c := range s.courses {
		if c.Bootcamp == bootcampID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) Update(_ context.Context, id primitive.ObjectID, req UpdateCourseRequest) (*Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, apperror.NewNotFound("Course not found")
	}
	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Tuition != nil {
		c.Tuition = *req.Tuition
	}
	if req.Weeks != nil {
		c.Weeks = *req.Weeks
	}
	s.courses[id] = c
	return &c, nil
}

func (s *memStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[id]; !ok {
		return apperror.NewNotFound("Course not found")
	}
	delete(s.courses, id)
	return nil
}

func (s *memStore) DeleteByBootcamp(_ context.Context, bootcampID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.courses {
		if c.Bootcamp == bootcampID {
			delete(s.courses, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) AverageTuition(_ context.Context, bootcampID primitive.ObjectID) (*float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum float64
	var n int
	for _, c := range s.courses {
		if c.Bootcamp == bootcampID {
			sum += c.Tuition
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := sum / float64(n)
	return &avg, nil
}

type nopLister struct{}

func (nopLister) List(context.Context, url.Values) (*query.Result, error) {
	return &query.Result{Success: true}, nil
}

type env struct {
	courses   *memStore
	bootcamps *bootcampstest.Store
	camp      *bootcamps.Bootcamp
	owner     *users.User
	caller    *users.User
	router    *gin.Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		courses:   newMemStore(),
		bootcamps: bootcampstest.NewStore(),
		owner:     &users.User{ID: primitive.NewObjectID(), Role: users.RolePublisher},
	}
	e.caller = e.owner
	e.camp = &bootcamps.Bootcamp{Name: "Devworks", Slug: "devworks", Description: "Full stack", User: e.owner.ID}
	require.NoError(t, e.bootcamps.Create(context.Background(), e.camp))

	nop := zerolog.Nop()
	h := NewHandler(e.courses, e.bootcamps, nopLister{}, &nop)
	asCaller := func(c *gin.Context) { authentication.SetCurrentUser(c, e.caller) }

	r := gin.New()
	r.GET("/courses/:id", h.HandleGetCourse)
	r.GET("/bootcamps/:bootcampId/courses", h.HandleGetCourses)
	r.POST("/bootcamps/:bootcampId/courses", asCaller, h.HandleAddCourse)
	r.PUT("/courses/:id", asCaller, h.HandleUpdateCourse)
	r.DELETE("/courses/:id", asCaller, h.HandleDeleteCourse)
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

func (e *env) addCourse(t *testing.T, tuition string) primitive.ObjectID {
	t.Helper()
	w := e.do(http.MethodPost, "/bootcamps/"+e.camp.ID.Hex()+"/courses",
		`{"title":"Front End","description":"d","weeks":8,"tuition":`+tuition+`,"minimumSkill":"beginner"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var body struct {
		Data Course `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data.ID
}

func TestRoundCost(t *testing.T) {
	assert.Equal(t, 9000.0, bootcamps.RoundCost(9000))
	assert.Equal(t, 10333.4, bootcamps.RoundCost(31000.0/3))
	assert.Equal(t, 0.1, bootcamps.RoundCost(0.01))
}

func TestAddCourseRecomputesAverageCost(t *testing.T) {
	e := newEnv(t)

	e.addCourse(t, "8000")
	require.NotNil(t, e.bootcamps.Get(e.camp.ID).AverageCost)
	assert.Equal(t, 8000.0, *e.bootcamps.Get(e.camp.ID).AverageCost)

	e.addCourse(t, "10000")
	second := e.addCourse(t, "13000")
	assert.Equal(t, 10333.4, *e.bootcamps.Get(e.camp.ID).AverageCost)

	w := e.do(http.MethodPut, "/courses/"+second.Hex(), `{"tuition":12000}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 10000.0, *e.bootcamps.Get(e.camp.ID).AverageCost)
}

func TestDeletingLastCourseUnsetsAverageCost(t *testing.T) {
	e := newEnv(t)
	id := e.addCourse(t, "8000")

	w := e.do(http.MethodDelete, "/courses/"+id.Hex(), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, e.bootcamps.Get(e.camp.ID).AverageCost)
}

func TestAddCourseRequiresBootcampOwner(t *testing.T) {
	e := newEnv(t)
	e.caller = &users.User{ID: primitive.NewObjectID(), Role: users.RolePublisher}

	w := e.do(http.MethodPost, "/bootcamps/"+e.camp.ID.Hex()+"/courses",
		`{"title":"T","description":"d","weeks":8,"tuition":100,"minimumSkill":"beginner"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "is not authorized to add a course to bootcamp")

	w = e.do(http.MethodPost, "/bootcamps/"+primitive.NewObjectID().Hex()+"/courses",
		`{"title":"T","description":"d","weeks":8,"tuition":100,"minimumSkill":"beginner"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddCourseValidation(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/bootcamps/"+e.camp.ID.Hex()+"/courses",
		`{"title":"T","description":"d","weeks":8,"tuition":100,"minimumSkill":"expert"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAndDeleteCourseOwnership(t *testing.T) {
	e := newEnv(t)
	id := e.addCourse(t, "8000")
	e.caller = &users.User{ID: primitive.NewObjectID(), Role: users.RolePublisher}

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPut, "/courses/"+id.Hex(), `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodDelete, "/courses/"+id.Hex(), "").Code)

	e.caller.Role = users.RoleAdmin
	assert.Equal(t, http.StatusOK, e.do(http.MethodPut, "/courses/"+id.Hex(), `{"title":"x"}`).Code)
}

func TestGetCoursesForBootcampAndDetail(t *testing.T) {
	e := newEnv(t)
	id := e.addCourse(t, "8000")
	e.addCourse(t, "9000")

	w := e.do(http.MethodGet, "/bootcamps/"+e.camp.ID.Hex()+"/courses", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list CourseListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Count)

	w = e.do(http.MethodGet, "/courses/"+id.Hex(), "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Data struct {
			Title    string            `json:"title"`
			Bootcamp bootcamps.Summary `json:"bootcamp"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "Front End", detail.Data.Title)
	assert.Equal(t, "Devworks", detail.Data.Bootcamp.Name)
	assert.Equal(t, e.camp.ID, detail.Data.Bootcamp.ID)

	w = e.do(http.MethodGet, "/courses/"+primitive.NewObjectID().Hex(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPopulateBootcampSelectsSummary(t *testing.T) {
	p := PopulateBootcamp("bootcamps")
	assert.False(t, p.Many)
	assert.Equal(t, []string{"name", "description"}, p.Select)
}
