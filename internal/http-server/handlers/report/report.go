package report

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
	EventRegistrants(eventId int64) ([]*entity.User, error)
	EventSummary(eventId int64) (*entity.RatingSummary, error)
}

type Database interface {
	EventRevenue(eventId int64) (int64, error)
	EventPayments(eventId int64) ([]*entity.Payment, error)
	EventMessages(eventId int64) ([]*entity.OperatorMessage, error)
	UserCount() (int, error)
}

// Roster returns the participant list of one event.
func Roster(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.report")
		rawId := chi.URLParam(r, "id")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("event_id", rawId),
		)

		eventId, err := strconv.ParseInt(rawId, 10, 64)
		if err != nil {
			log.Warn("invalid event id")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid event id"))
			return
		}

		users, err := handler.EventRegistrants(eventId)
		if err != nil {
			log.Error("loading roster", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Request failed"))
			return
		}
		render.JSON(w, r, response.Ok(users))
	}
}

// Ratings returns the rating aggregation of one event.
func Ratings(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.report")
		rawId := chi.URLParam(r, "id")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("event_id", rawId),
		)

		eventId, err := strconv.ParseInt(rawId, 10, 64)
		if err != nil {
			log.Warn("invalid event id")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid event id"))
			return
		}

		summary, err := handler.EventSummary(eventId)
		if err != nil {
			log.Error("loading ratings", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Request failed"))
			return
		}
		render.JSON(w, r, response.Ok(summary))
	}
}

// Revenue returns the confirmed-payment total of one event.
func Revenue(logger *slog.Logger, db Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.report")
		rawId := chi.URLParam(r, "id")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("event_id", rawId),
		)

		eventId, err := strconv.ParseInt(rawId, 10, 64)
		if err != nil {
			log.Warn("invalid event id")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid event id"))
			return
		}

		total, err := db.EventRevenue(eventId)
		if err != nil {
			log.Error("loading revenue", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Request failed"))
			return
		}
		render.JSON(w, r, response.Ok(map[string]int64{"event_id": eventId, "revenue": total}))
	}
}

// Payments returns the confirmed-payment ledger of one event.
func Payments(logger *slog.Logger, db Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.report")
		rawId := chi.URLParam(r, "id")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("event_id", rawId),
		)

		eventId, err := strconv.ParseInt(rawId, 10, 64)
		if err != nil {
			log.Warn("invalid event id")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid event id"))
			return
		}

		payments, err := db.EventPayments(eventId)
		if err != nil {
			log.Error("loading payments", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Request failed"))
			return
		}
		render.JSON(w, r, response.Ok(payments))
	}
}

// Messages returns the operator-group relay log of one event.
func Messages(logger *slog.Logger, db Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.report")
		rawId := chi.URLParam(r, "id")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("event_id", rawId),
		)

		eventId, err := strconv.ParseInt(rawId, 10, 64)
		if err != nil {
			log.Warn("invalid event id")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid event id"))
			return
		}

		messages, err := db.EventMessages(eventId)
		if err != nil {
			log.Error("loading relay log", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Request failed"))
			return
		}
		render.JSON(w, r, response.Ok(messages))
	}
}

// Members returns the registered member count.
func Members(logger *slog.Logger, db Database) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.report")
		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		count, err := db.UserCount()
		if err != nil {
			log.Error("counting members", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Request failed"))
			return
		}
		render.JSON(w, r, response.Ok(map[string]int{"members": count}))
	}
}
