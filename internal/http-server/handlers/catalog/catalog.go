package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"chembot/entity"
	"chembot/lib/api/response"
	"chembot/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	ActiveEvents() ([]*entity.Event, error)
	AllEvents() ([]*entity.Event, error)
	GetEvent(eventId int64) (*entity.Event, error)
}

// List returns active events; ?all=1 includes deactivated ones.
func List(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.catalog")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		if handler == nil {
			log.Error("catalog not available")
			render.JSON(w, r, response.Error("Catalog not available"))
			return
		}

		var events []*entity.Event
		var err error
		if r.URL.Query().Get("all") == "1" {
			events, err = handler.AllEvents()
		} else {
			events, err = handler.ActiveEvents()
		}
		if err != nil {
			log.Error("listing events", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Request failed"))
			return
		}
		render.JSON(w, r, response.Ok(events))
	}
}

// Get returns one event by id.
func Get(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.catalog")
		rawId := chi.URLParam(r, "id")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("event_id", rawId),
		)

		if handler == nil {
			log.Error("catalog not available")
			render.JSON(w, r, response.Error("Catalog not available"))
			return
		}

		eventId, err := strconv.ParseInt(rawId, 10, 64)
		if err != nil {
			log.Warn("invalid event id")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid event id"))
			return
		}

		event, err := handler.GetEvent(eventId)
		if err != nil {
			log.Warn("event lookup", sl.Err(err))
			render.Status(r, 404)
			render.JSON(w, r, response.Error("Event not found"))
			return
		}
		render.JSON(w, r, response.Ok(event))
	}
}
