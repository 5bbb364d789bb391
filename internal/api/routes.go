package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"cabdispatch/internal/api/handlers"
	"cabdispatch/internal/api/middleware"
)

// Router mounts every handler on a gin engine.
type Router struct {
	cabHandler      *handlers.CabHandler
	tripHandler     *handlers.TripHandler
	carHandler      *handlers.CarHandler
	driverHandler   *handlers.DriverHandler
	locationHandler *handlers.LocationHandler
	insightsHandler *handlers.InsightsHandler
	logger          *slog.Logger
}

// NewRouter creates a router over the given handlers.
func NewRouter(
	cabHandler *handlers.CabHandler,
	tripHandler *handlers.TripHandler,
	carHandler *handlers.CarHandler,
	driverHandler *handlers.DriverHandler,
	locationHandler *handlers.LocationHandler,
	insightsHandler *handlers.InsightsHandler,
	logger *slog.Logger,
) *Router {
	return &Router{
		cabHandler:      cabHandler,
		tripHandler:     tripHandler,
		carHandler:      carHandler,
		driverHandler:   driverHandler,
		locationHandler: locationHandler,
		insightsHandler: insightsHandler,
		logger:          logger,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.RequestID(), middleware.RequestLogger(r.logger))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	cabs := engine.Group("/cabs")
	{
		cabs.GET("", r.cabHandler.ListCabs)
		cabs.POST("", r.cabHandler.RegisterCab)
		cabs.GET("/:id", r.cabHandler.GetCab)
		cabs.DELETE("/:id", r.cabHandler.RemoveCab)
		cabs.PATCH("/:id/location", r.cabHandler.ChangeLocation)
		cabs.PATCH("/:id/state", r.cabHandler.ChangeState)
	}

	trips := engine.Group("/trips")
	{
		trips.GET("", r.tripHandler.ListTrips)
		trips.POST("", r.tripHandler.RequestTrip)
		trips.GET("/:id", r.tripHandler.GetTrip)
		trips.POST("/:id/book", r.tripHandler.BookTrip)
		trips.POST("/:id/complete", r.tripHandler.CompleteTrip)
		trips.POST("/:id/cancel", r.tripHandler.CancelTrip)
	}

	cars := engine.Group("/cars")
	{
		cars.GET("", r.carHandler.ListCars)
		cars.POST("", r.carHandler.AddCar)
		cars.GET("/:id", r.carHandler.GetCar)
		cars.PUT("/:id", r.carHandler.UpdateCar)
		cars.DELETE("/:id", r.carHandler.RemoveCar)
	}

	drivers := engine.Group("/drivers")
	{
		drivers.GET("", r.driverHandler.ListDrivers)
		drivers.POST("", r.driverHandler.AddDriver)
		drivers.GET("/:id", r.driverHandler.GetDriver)
		drivers.PUT("/:id", r.driverHandler.UpdateDriver)
		drivers.DELETE("/:id", r.driverHandler.RemoveDriver)
	}

	locations := engine.Group("/locations")
	{
		locations.GET("", r.locationHandler.ListLocations)
		locations.POST("", r.locationHandler.AddLocation)
		locations.GET("/:id", r.locationHandler.GetLocation)
		locations.PUT("/:id", r.locationHandler.UpdateLocation)
		locations.DELETE("/:id", r.locationHandler.RemoveLocation)
		locations.GET("/:id/available-cabs", r.cabHandler.AvailableAtLocation)
	}

	insights := engine.Group("/insights")
	{
		insights.GET("/idle-time", r.insightsHandler.IdleTime)
		insights.GET("/cabs/:id/history", r.insightsHandler.LocationHistory)
		insights.GET("/demand", r.insightsHandler.Demand)
	}
}
