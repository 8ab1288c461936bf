package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"chembot/internal/config"
	"chembot/internal/http-server/handlers/catalog"
	"chembot/internal/http-server/handlers/errors"
	"chembot/internal/http-server/handlers/report"
	"chembot/internal/http-server/middleware/authenticate"
	"chembot/internal/http-server/middleware/timeout"
	"chembot/lib/api/response"
	"chembot/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	catalog.Core
	report.Core
}

// New starts the read-only reporting api and blocks serving it.
func New(conf *config.Config, log *slog.Logger, handler Handler, db report.Database) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok("alive"))
	})

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, conf.ApiToken))
		rootApi.Route("/events", func(ev chi.Router) {
			ev.Get("/", catalog.List(log, handler))
			ev.Get("/{id}", catalog.Get(log, handler))
			ev.Get("/{id}/roster", report.Roster(log, handler))
			ev.Get("/{id}/ratings", report.Ratings(log, handler))
			ev.Get("/{id}/revenue", report.Revenue(log, db))
			ev.Get("/{id}/payments", report.Payments(log, db))
			ev.Get("/{id}/messages", report.Messages(log, db))
		})
		rootApi.Get("/members", report.Members(log, db))
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
