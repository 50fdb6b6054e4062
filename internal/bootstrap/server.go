package bootstrap

import (
	"context"
	"net/http"
	"time"

	"github.com/avetkin/flighttracker/api"
	"github.com/avetkin/flighttracker/config"
	"github.com/avetkin/flighttracker/internal/service/booking"
	"github.com/avetkin/flighttracker/internal/service/flights"
	"github.com/avetkin/flighttracker/internal/service/session"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Run starts the HTTP server and blocks until the context is canceled
// or the server fails.
func Run(ctx context.Context, cfg *config.Config, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase, sessionSvc session.SessionUseCase) error {
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: newRouter(cfg, flightSvc, bookingSvc, sessionSvc),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newRouter(cfg *config.Config, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase, sessionSvc session.SessionUseCase) http.Handler {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	apiGroup := router.Group("/api")
	api.NewFlightHandler(flightSvc).Register(apiGroup.Group("/flights"))
	api.NewBookingHandler(bookingSvc).Register(apiGroup.Group("/bookings"))
	api.NewAuthHandler(sessionSvc).Register(apiGroup)

	if cfg.HTTP.SwaggerDir != "" {
		router.StaticFS("/swagger", http.Dir(cfg.HTTP.SwaggerDir))
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/flighttracker.swagger.json"),
		)))
	}

	return router
}
