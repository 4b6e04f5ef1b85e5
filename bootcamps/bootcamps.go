package bootcamps

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"devcamper-backend/apperror"
	"devcamper-backend/authentication"
	"devcamper-backend/geocoder"
	"devcamper-backend/query"
	"devcamper-backend/storage"
	"devcamper-backend/users"
	"devcamper-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

// Schema lists the bootcamp fields clients may filter and sort on.
var Schema = query.Schema{
	"name":             query.String,
	"slug":             query.String,
	"description":      query.String,
	"careers":          query.String,
	"averageCost":      query.Number,
	"averageRating":    query.Number,
	"housing":          query.Bool,
	"jobAssistance":    query.Bool,
	"jobGuarantee":     query.Bool,
	"acceptGi":         query.Bool,
	"location.city":    query.String,
	"location.state":   query.String,
	"location.zipcode": query.String,
	"user":             query.ObjectID,
	"createdAt":        query.Date,
}

// PopulateCourses embeds every course of each listed bootcamp.
func PopulateCourses(coursesCollection string) query.Populate {
	return query.Populate{
		Path:         "courses",
		From:         coursesCollection,
		LocalField:   "_id",
		ForeignField: "bootcamp",
		Many:         true,
	}
}

// Dependent is a child collection removed together with its bootcamp.
type Dependent interface {
	DeleteByBootcamp(ctx context.Context, bootcampID primitive.ObjectID) (int64, error)
}

type Handler struct {
	store      Store
	list       query.Lister
	geocoder   geocoder.Geocoder
	photos     storage.Sink
	dependents []Dependent
	logger     *zerolog.Logger
}

func NewHandler(store Store, list query.Lister, geo geocoder.Geocoder, photos storage.Sink, logger *zerolog.Logger, dependents ...Dependent) *Handler {
	return &Handler{
		store:      store,
		list:       list,
		geocoder:   geo,
		photos:     photos,
		dependents: dependents,
		logger:     logger,
	}
}

// HandleGetBootcamps lists bootcamps with their courses.
func (h *Handler) HandleGetBootcamps(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	result, err := h.list.List(ctx, c.Request.URL.Query())
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) HandleGetBootcamp(c *gin.Context) {
	id, err := utils.StringToObjectId(c.Param("id"), "Bootcamp")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	bootcamp, err := h.store.FindByID(ctx, id)
	if err != nil {
		apperror.Respond(c, h.logger, notFound(err, c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, BootcampResponse{Success: true, Data: bootcamp})
}

// HandleCreateBootcamp publishes a bootcamp owned by the caller. Publishers get one.
func (h *Handler) HandleCreateBootcamp(c *gin.Context) {
	var req CreateBootcampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}
	user := authentication.CurrentUser(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if user.Role != users.RoleAdmin {
		n, err := h.store.CountByUser(ctx, user.ID)
		if err != nil {
			apperror.Respond(c, h.logger, err)
			return
		}
		if n > 0 {
			apperror.Respond(c, h.logger, apperror.NewBadRequest(fmt.Sprintf("The user with ID %s has already published a bootcamp", user.ID.Hex())))
			return
		}
	}

	loc, err := h.geocoder.Geocode(ctx, req.Address)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	bootcamp := &Bootcamp{
		Name:          req.Name,
		Slug:          slug.Make(req.Name),
		Description:   req.Description,
		Website:       req.Website,
		Phone:         req.Phone,
		Email:         req.Email,
		Location:      locationFrom(loc),
		Careers:       req.Careers,
		Photo:         DefaultPhoto,
		Housing:       req.Housing,
		JobAssistance: req.JobAssistance,
		JobGuarantee:  req.JobGuarantee,
		AcceptGi:      req.AcceptGi,
		User:          user.ID,
	}
	if err := h.store.Create(ctx, bootcamp); err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, BootcampResponse{Success: true, Data: bootcamp})
}

// loadOwned fetches the bootcamp at :id and checks the caller may change it.
func (h *Handler) loadOwned(ctx context.Context, c *gin.Context, action string) (*Bootcamp, error) {
	id, err := utils.StringToObjectId(c.Param("id"), "Bootcamp")
	if err != nil {
		return nil, err
	}
	bootcamp, err := h.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, c.Param("id"))
	}
	user := authentication.CurrentUser(c)
	if !authentication.CanModify(user, bootcamp.User) {
		return nil, apperror.NewForbidden(fmt.Sprintf("User %s is not authorized to %s this bootcamp", user.ID.Hex(), action))
	}
	return bootcamp, nil
}

func (h *Handler) HandleUpdateBootcamp(c *gin.Context) {
	var req UpdateBootcampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperror.Respond(c, h.logger, apperror.FromBinding(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	bootcamp, err := h.loadOwned(ctx, c, "update")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	changes := Changes{
		Name:          req.Name,
		Description:   req.Description,
		Website:       req.Website,
		Phone:         req.Phone,
		Email:         req.Email,
		Careers:       req.Careers,
		Housing:       req.Housing,
		JobAssistance: req.JobAssistance,
		JobGuarantee:  req.JobGuarantee,
		AcceptGi:      req.AcceptGi,
	}
	if req.Name != nil {
		s := slug.Make(*req.Name)
		changes.Slug = &s
	}
	if req.Address != nil {
		loc, err := h.geocoder.Geocode(ctx, *req.Address)
		if err != nil {
			apperror.Respond(c, h.logger, err)
			return
		}
		changes.Location = locationFrom(loc)
	}

	updated, err := h.store.Update(ctx, bootcamp.ID, changes)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, BootcampResponse{Success: true, Data: updated})
}

// HandleDeleteBootcamp removes the bootcamp after its courses and reviews.
func (h *Handler) HandleDeleteBootcamp(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	bootcamp, err := h.loadOwned(ctx, c, "delete")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	for _, d := range h.dependents {
		n, err := d.DeleteByBootcamp(ctx, bootcamp.ID)
		if err != nil {
			apperror.Respond(c, h.logger, err)
			return
		}
		h.logger.Debug().Str("bootcamp_id", bootcamp.ID.Hex()).Int64("deleted", n).Msg("cascade delete")
	}

	if err := h.store.Delete(ctx, bootcamp.ID); err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

// HandleGetBootcampsInRadius finds bootcamps within :distance km of :zipcode.
func (h *Handler) HandleGetBootcampsInRadius(c *gin.Context) {
	distance, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil || distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		apperror.Respond(c, h.logger, apperror.NewBadRequest("Distance must be a non-negative number of kilometres"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	loc, err := h.geocoder.Geocode(ctx, c.Param("zipcode"))
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	found, err := h.store.WithinRadius(ctx, loc.Lng, loc.Lat, distance)
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, BootcampListResponse{Success: true, Count: len(found), Data: found})
}

// HandleUploadPhoto stores the multipart "file" as the bootcamp photo.
func (h *Handler) HandleUploadPhoto(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	bootcamp, err := h.loadOwned(ctx, c, "update")
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		apperror.Respond(c, h.logger, apperror.New(apperror.BadRequest, "Please upload a file", err))
		return
	}
	file, err := header.Open()
	if err != nil {
		apperror.Respond(c, h.logger, apperror.NewUpstream("Problem with file upload", err))
		return
	}
	defer file.Close()

	name, err := h.photos.SaveImage(ctx, "photo_"+bootcamp.ID.Hex(), storage.Upload{
		Size: header.Size,
		Body: file,
	})
	if err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}

	if err := h.store.SetPhoto(ctx, bootcamp.ID, name); err != nil {
		apperror.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": name})
}

func notFound(err error, rawID string) error {
	if apperror.IsNotFound(err) {
		return apperror.New(apperror.NotFound, fmt.Sprintf("Bootcamp not found with id of %s", rawID), err)
	}
	return err
}
