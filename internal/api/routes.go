package api

import (
	"net/http"
	"time"

	"fittrack/app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles everything the handlers depend on.
type Services struct {
	Auth      service.AuthService
	Profile   service.ProfileService
	Dashboard service.DashboardService
	Workout   service.WorkoutService
	Schedule  service.ScheduleService
	Friend    service.FriendService
}

// RouteOptions configures the non-API endpoints and request defaults.
type RouteOptions struct {
	// DefaultLocation is used when a request carries no tz query parameter.
	DefaultLocation *time.Location
	// MetricsPath is left unmounted when empty or when Gatherer is nil.
	MetricsPath string
	Gatherer    prometheus.Gatherer
}

func SetupRoutes(router *gin.Engine, services Services, opts RouteOptions) {
	loc := opts.DefaultLocation
	if loc == nil {
		loc = time.UTC
	}

	authHandler := NewAuthHandler(services.Auth)
	profileHandler := NewProfileHandler(services.Profile)
	dashboardHandler := NewDashboardHandler(services.Dashboard, loc)
	workoutHandler := NewWorkoutHandler(services.Workout, loc)
	scheduleHandler := NewScheduleHandler(services.Schedule, loc)
	friendHandler := NewFriendHandler(services.Friend)

	authMiddleware := AuthMiddleware(services.Auth)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	if opts.MetricsPath != "" && opts.Gatherer != nil {
		router.GET(opts.MetricsPath, gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/password-reset", authHandler.RequestPasswordReset)
			authGroup.POST("/password-reset/confirm", authHandler.ConfirmPasswordReset)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.POST("/auth/logout", authHandler.Logout)

		protected.GET("/me", profileHandler.GetMe)
		protected.PATCH("/me", profileHandler.UpdateMe)

		protected.GET("/dashboard", dashboardHandler.GetDashboard)
		protected.GET("/dashboard/steps/stream", dashboardHandler.StreamSteps)
		protected.POST("/steps", dashboardHandler.RecordSteps)

		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.GET("", workoutHandler.ListWorkouts)
			workoutGroup.POST("", workoutHandler.CreateWorkout)
			workoutGroup.GET("/stats", workoutHandler.GetStats)
			workoutGroup.GET("/:workoutId", workoutHandler.GetWorkout)
			workoutGroup.PUT("/:workoutId/exercises", workoutHandler.UpdateExercises)
			workoutGroup.POST("/:workoutId/schedule", workoutHandler.ScheduleWorkout)
			workoutGroup.POST("/:workoutId/video/upload-url", workoutHandler.RequestVideoUploadURL)
			workoutGroup.POST("/:workoutId/video/confirm", workoutHandler.ConfirmVideoUpload)
		}

		protected.GET("/schedule", scheduleHandler.GetSchedule)
		protected.POST("/sessions/:sessionId/complete", scheduleHandler.CompleteSession)

		friendGroup := protected.Group("/friends")
		{
			friendGroup.GET("", friendHandler.ListFriends)
			friendGroup.GET("/search", friendHandler.SearchUsers)
			friendGroup.POST("/discover", friendHandler.DiscoverContacts)
			friendGroup.POST("/requests", friendHandler.SendRequest)
			friendGroup.GET("/requests", friendHandler.IncomingRequests)
			friendGroup.POST("/requests/:requestId/accept", friendHandler.AcceptRequest)
			friendGroup.POST("/requests/:requestId/decline", friendHandler.DeclineRequest)
		}
	}
}
