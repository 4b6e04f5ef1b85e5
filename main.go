package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"devcamper-backend/authentication"
	"devcamper-backend/bootcamps"
	"devcamper-backend/config"
	"devcamper-backend/courses"
	"devcamper-backend/geocoder"
	"devcamper-backend/logger"
	"devcamper-backend/mailer"
	"devcamper-backend/query"
	"devcamper-backend/reviews"
	"devcamper-backend/scheduler"
	"devcamper-backend/storage"
	"devcamper-backend/users"
	"devcamper-backend/version"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Missing file is fine, the environment may already be populated.
	_ = godotenv.Load("config/config.env")

	cfg, err := config.Load()
	if err != nil {
		log := logger.New("info", false)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connectDatabase(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("disconnect mongo")
		}
	}()
	log.Info().Str("database", cfg.GetDatabaseName()).Msg("connected to MongoDB")

	db := client.Database(cfg.GetDatabaseName())
	if err := ensureIndexes(ctx, db, cfg); err != nil {
		log.Fatal().Err(err).Msg("index setup failed")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := bootcamps.RegisterValidation(); err != nil {
		log.Fatal().Err(err).Msg("register validators")
	}

	userStore := users.NewMongoStore(db, cfg.CollectionUserName)
	bootcampStore := bootcamps.NewMongoStore(db, cfg.CollectionBootcampsName)
	courseStore := courses.NewMongoStore(db, cfg.CollectionCoursesName)
	reviewStore := reviews.NewMongoStore(db, cfg.CollectionReviewsName)

	authService := authentication.NewService(userStore, mailer.NewMailer(cfg), cfg, log)
	authHandler := authentication.NewHandler(authService, cfg, log)

	userHandler := users.NewHandler(userStore, query.Resource{
		Collection: db.Collection(cfg.CollectionUserName),
		Schema:     users.Schema,
		Hidden:     users.HiddenFields,
	}, log)
	bootcampHandler := bootcamps.NewHandler(bootcampStore, query.Resource{
		Collection: db.Collection(cfg.CollectionBootcampsName),
		Schema:     bootcamps.Schema,
		Populate:   []query.Populate{bootcamps.PopulateCourses(cfg.CollectionCoursesName)},
	}, geocoder.NewClient(cfg, log), storage.NewDisk(cfg), log, courseStore, reviewStore)
	courseHandler := courses.NewHandler(courseStore, bootcampStore, query.Resource{
		Collection: db.Collection(cfg.CollectionCoursesName),
		Schema:     courses.Schema,
		Populate:   []query.Populate{courses.PopulateBootcamp(cfg.CollectionBootcampsName)},
	}, log)
	reviewHandler := reviews.NewHandler(reviewStore, bootcampStore, query.Resource{
		Collection: db.Collection(cfg.CollectionReviewsName),
		Schema:     reviews.Schema,
		Populate:   []query.Populate{reviews.PopulateBootcamp(cfg.CollectionBootcampsName)},
	}, log)

	jobs := scheduler.New(log)
	if err := jobs.AddResetSweep(cfg.ResetSweepSchedule, authService); err != nil {
		log.Fatal().Err(err).Msg("scheduler setup failed")
	}
	jobs.Start()

	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(log))
	r.Static("/uploads", cfg.FileUploadPath)

	api := r.Group("/api/v1")
	api.GET("/info", version.HandleGetInfo(cfg))

	protect := authHandler.Protect()
	publisher := authHandler.Authorize(users.RolePublisher, users.RoleAdmin)
	reviewer := authHandler.Authorize(users.RoleUser, users.RoleAdmin)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.HandleRegister)
		auth.POST("/login", authHandler.HandleLogin)
		auth.GET("/logout", authHandler.HandleLogout)
		auth.GET("/me", protect, authHandler.HandleMe)
		auth.PUT("/updatedetails", protect, authHandler.HandleUpdateDetails)
		auth.PUT("/updatepassword", protect, authHandler.HandleUpdatePassword)
		auth.POST("/forgotpassword", authHandler.HandleForgotPassword)
		auth.PUT("/resetpassword/:resettoken", authHandler.HandleResetPassword)
	}

	admin := api.Group("/users", protect, authHandler.Authorize(users.RoleAdmin))
	{
		admin.GET("", userHandler.HandleGetUsers)
		admin.POST("", userHandler.HandleCreateUser)
		admin.GET("/:id", userHandler.HandleGetUser)
		admin.PUT("/:id", userHandler.HandleUpdateUser)
		admin.DELETE("/:id", userHandler.HandleDeleteUser)
	}

	camps := api.Group("/bootcamps")
	{
		camps.GET("", bootcampHandler.HandleGetBootcamps)
		camps.POST("", protect, publisher, bootcampHandler.HandleCreateBootcamp)
		camps.GET("/radius/:zipcode/:distance", bootcampHandler.HandleGetBootcampsInRadius)
		camps.GET("/:id", bootcampHandler.HandleGetBootcamp)
		camps.PUT("/:id", protect, publisher, bootcampHandler.HandleUpdateBootcamp)
		camps.DELETE("/:id", protect, publisher, bootcampHandler.HandleDeleteBootcamp)
		camps.PUT("/:id/photo", protect, publisher, bootcampHandler.HandleUploadPhoto)

		camps.GET("/:id/courses", nestedBootcamp, courseHandler.HandleGetCourses)
		camps.POST("/:id/courses", nestedBootcamp, protect, publisher, courseHandler.HandleAddCourse)
		camps.GET("/:id/reviews", nestedBootcamp, reviewHandler.HandleGetReviews)
		camps.POST("/:id/reviews", nestedBootcamp, protect, reviewer, reviewHandler.HandleAddReview)
	}

	courseRoutes := api.Group("/courses")
	{
		courseRoutes.GET("", courseHandler.HandleGetCourses)
		courseRoutes.GET("/:id", courseHandler.HandleGetCourse)
		courseRoutes.PUT("/:id", protect, publisher, courseHandler.HandleUpdateCourse)
		courseRoutes.DELETE("/:id", protect, publisher, courseHandler.HandleDeleteCourse)
	}

	reviewRoutes := api.Group("/reviews")
	{
		reviewRoutes.GET("", reviewHandler.HandleGetReviews)
		reviewRoutes.GET("/:id", reviewHandler.HandleGetReview)
		reviewRoutes.PUT("/:id", protect, reviewer, reviewHandler.HandleUpdateReview)
		reviewRoutes.DELETE("/:id", protect, reviewer, reviewHandler.HandleDeleteReview)
	}

	serve(ctx, log, &http.Server{Addr: ":" + cfg.Port, Handler: r}, jobs)
}

// nestedBootcamp exposes the parent :id of a nested route as bootcampId.
func nestedBootcamp(c *gin.Context) {
	c.AddParam("bootcampId", c.Param("id"))
}

func serve(ctx context.Context, log *zerolog.Logger, srv *http.Server, jobs *scheduler.Scheduler) {
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	jobs.Stop(shutdownCtx)
}
