package reviews

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
	"title":     query.String,
	"rating":    query.Number,
	"bootcamp":  query.ObjectID,
	"user":      query.ObjectID,
	"createdAt": query.Date,
}

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

// HandleGetReviews lists every review, or only those of :bootcampId when present.
func (h *Handler) HandleGetReviews(c *gin.Context) {
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
		c.JSON(http.StatusOK, ReviewListResponse{Success: true, Count: len(found), Data: found})
		return
	}

	result, err := h.list.List(ctx, c.Request.URL.Query())
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) HandleGetReview(c *gin.Context) {
	id, err := utils.StringToObjectId(c.Param("id"), "Review")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	review, err := h.store.FindByID(ctx, id)
	if err != nil {
		apperror.Respond(c, h.logger, notFound(err, c.Param("id")))
		return
	}

	detail := ReviewDetail{Review: review}
	if bootcamp, err := h.bootcamps.FindByID(ctx, review.Bootcamp); err == nil {
		detail.Bootcamp = bootcamp.Summary()
	} else if !apperror.IsNotFound(err) {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ReviewResponse{Success: true, Data: detail})
}

// HandleAddReview records the caller's review of :bootcampId.
func (h *Handler) HandleAddReview(c *gin.Context) {
	bootcampID, err := utils.StringToObjectId(c.Param("bootcampId"), "Bootcamp")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if _, err := h.bootcamps.FindByID(ctx, bootcampID); err != nil {
		if apperror.IsNotFound(err) {
			err = apperror.New(apperror.NotFound, fmt.Sprintf("No bootcamp with the id of %s", bootcampID.Hex()), err)
		}
		apperror.Respond(c, h.logger, err)
		return
	}

	review := &Review{
		Title:    req.Title,
		Text:     req.Text,
		Rating:   req.Rating,
		Bootcamp: bootcampID,
		User:     authentication.CurrentUser(c).ID,
	}
	if err := h.store.Create(ctx, review); err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	h.recompute(ctx, bootcampID)

	c.JSON(http.StatusCreated, ReviewResponse{Success: true, Data: review})
}

func (h *Handler) loadOwned(ctx context.Context, c *gin.Context, action string) (*Review, error) {
	id, err := utils.StringToObjectId(c.Param("id"), "Review")
	if err != nil {
		return nil, err
	}
	review, err := h.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, c.Param("id"))
	}
	user := authentication.CurrentUser(c)
	if !authentication.CanModify(user, review.User) {
		return nil, apperror.NewForbidden(fmt.Sprintf("User %s is not authorized to %s review %s", user.ID.Hex(), action, review.ID.Hex()))
	}
	return review, nil
}

func (h *Handler) HandleUpdateReview(c *gin.Context) {
	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	review, err := h.loadOwned(ctx, c, "update")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	updated, err := h.store.Update(ctx, review.ID, req)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	if req.Rating != nil {
		h.recompute(ctx, updated.Bootcamp)
	}
	c.JSON(http.StatusOK, ReviewResponse{Success: true, Data: updated})
}

func (h *Handler) HandleDeleteReview(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	review, err := h.loadOwned(ctx, c, "delete")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	if err := h.store.Delete(ctx, review.ID); err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	h.recompute(ctx, review.Bootcamp)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

func (h *Handler) recompute(ctx context.Context, bootcampID primitive.ObjectID) {
	avg, err := h.store.AverageRating(ctx, bootcampID)
	if err != nil {
		h.logger.Error().Err(err).Str("bootcamp_id", bootcampID.Hex()).Msg("failed to average ratings")
		return
	}
	bootcamps.Recompute(ctx, h.bootcamps, h.logger, bootcampID, bootcamps.FieldAverageRating, avg, bootcamps.RoundRating)
}

func notFound(err error, rawID string) error {
	if apperror.IsNotFound(err) {
		return apperror.New(apperror.NotFound, fmt.Sprintf("No review found with the id of %s", rawID), err)
	}
	return err
}
