package courses

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"devcamper-backend/apperror"
	"devcamper-backend/authentication"
	"devcamper-backend/bootcamps"
	"devcamper-backend/query"
	"devcamper-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 5 * time.Second

var Schema = query.Schema{
	"title":                query.String,
	"description":          query.String,
	"weeks":                query.Number,
	"tuition":              query.Number,
	"minimumSkill":         query.String,
	"scholarshipAvailable": query.Bool,
	"bootcamp":             query.ObjectID,
	"user":                 query.ObjectID,
	"createdAt":            query.Date,
}

// PopulateBootcamp embeds the name and description of each course's bootcamp.
func PopulateBootcamp(bootcampsCollection string) query.Populate {
	return query.Populate{
		Path:         "bootcamp",
		From:         bootcampsCollection,
		LocalField:   "bootcamp",
		ForeignField: "_id",
		Select:       []string{"name", "description"},
	}
}

type Handler struct {
	store     Store
	bootcamps bootcamps.Store
	list      query.Lister
	logger    *zerolog.Logger
}

func NewHandler(store Store, bootcampStore bootcamps.Store, list query.Lister, logger *zerolog.Logger) *Handler {
	return &Handler{
		store:     store,
		bootcamps: bootcampStore,
		list:      list,
		logger:    logger,
	}
}

// HandleGetCourses lists every course, or only those of :bootcampId when present.
func (h *Handler) HandleGetCourses(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if raw := c.Param("bootcampId"); raw != "" {
		bootcampID, err := utils.StringToObjectId(raw, "Bootcamp")
		if err != nil {
			apperror.Respond(c, h.logger, err)
			return
		}
		found, err := h.store.ListByBootcamp(ctx, bootcampID)
		if err != nil {
			apperror.Respond(c, h.logger, err)
			return
		}
		c.JSON(http.StatusOK, CourseListResponse{Success: true, Count: len(found), Data: found})
		return
	}

	result, err := h.list.List(ctx, c.Request.URL.Query())
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) HandleGetCourse(c *gin.Context) {
	id, err := utils.StringToObjectId(c.Param("id"), "Course")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	course, err := h.store.FindByID(ctx, id)
	if err != nil {
		apperror.Respond(c, h.logger, notFound(err, c.Param("id")))
		return
	}

	detail := CourseDetail{Course: course}
	if bootcamp, err := h.bootcamps.FindByID(ctx, course.Bootcamp); err == nil {
		detail.Bootcamp = bootcamp.Summary()
	} else if !apperror.IsNotFound(err) {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CourseResponse{Success: true, Data: detail})
}

// HandleAddCourse adds a course to :bootcampId. Only the bootcamp owner or an admin may.
func (h *Handler) HandleAddCourse(c *gin.Context) {
	bootcampID, err := utils.StringToObjectId(c.Param("bootcampId"), "Bootcamp")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	bootcamp, err := h.bootcamps.FindByID(ctx, bootcampID)
	if err != nil {
		if apperror.IsNotFound(err) {
			err = apperror.New(apperror.NotFound, fmt.Sprintf("No bootcamp found with id %s", bootcampID.Hex()), err)
		}
		apperror.Respond(c, h.logger, err)
		return
	}

	user := authentication.CurrentUser(c)
	if !authentication.CanModify(user, bootcamp.User) {
		apperror.Respond(c, h.logger, apperror.NewForbidden(fmt.Sprintf("User %s is not authorized to add a course to bootcamp %s", user.ID.Hex(), bootcamp.ID.Hex())))
		return
	}

	course := &Course{
		Title:                req.Title,
		Description:          req.Description,
		Weeks:                req.Weeks,
		Tuition:              req.Tuition,
		MinimumSkill:         req.MinimumSkill,
		ScholarshipAvailable: req.ScholarshipAvailable,
		Bootcamp:             bootcamp.ID,
		User:                 user.ID,
	}
	if err := h.store.Create(ctx, course); err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	h.recompute(ctx, bootcamp.ID)

	c.JSON(http.StatusCreated, CourseResponse{Success: true, Data: course})
}

func (h *Handler) loadOwned(ctx context.Context, c *gin.Context, action string) (*Course, error) {
	id, err := utils.StringToObjectId(c.Param("id"), "Course")
	if err != nil {
		return nil, err
	}
	course, err := h.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, c.Param("id"))
	}
	user := authentication.CurrentUser(c)
	if !authentication.CanModify(user, course.User) {
		return nil, apperror.NewForbidden(fmt.Sprintf("User %s is not authorized to %s course %s", user.ID.Hex(), action, course.ID.Hex()))
	}
	return course, nil
}

func (h *Handler) HandleUpdateCourse(c *gin.Context) {
	var req UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	course, err := h.loadOwned(ctx, c, "update")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	updated, err := h.store.Update(ctx, course.ID, req)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	if req.Tuition != nil {
		h.recompute(ctx, updated.Bootcamp)
	}
	c.JSON(http.StatusOK, CourseResponse{Success: true, Data: updated})
}

func (h *Handler) HandleDeleteCourse(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	course, err := h.loadOwned(ctx, c, "delete")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	if err := h.store.Delete(ctx, course.ID); err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	h.recompute(ctx, course.Bootcamp)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

// recompute refreshes the bootcamp's averageCost from its remaining courses.
func (h *Handler) recompute(ctx context.Context, bootcampID primitive.ObjectID) {
	avg, err := h.store.AverageTuition(ctx, bootcampID)
	if err != nil {
		h.logger.Error().Err(err).Str("bootcamp_id", bootcampID.Hex()).Msg("failed to average tuition")
		return
	}
	bootcamps.Recompute(ctx, h.bootcamps, h.logger, bootcampID, bootcamps.FieldAverageCost, avg, bootcamps.RoundCost)
}

func notFound(err error, rawID string) error {
	if apperror.IsNotFound(err) {
		return apperror.New(apperror.NotFound, fmt.Sprintf("Course not found with id of %s", rawID), err)
	}
	return err
}
