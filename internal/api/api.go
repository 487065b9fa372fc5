/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface: reminder pool management and
// schedule inspection.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/muninn/internal/auth"
	"github.com/friendsincode/muninn/internal/events"
	"github.com/friendsincode/muninn/internal/models"
	"github.com/friendsincode/muninn/internal/planner"
	"github.com/friendsincode/muninn/internal/sampler"
)

// API exposes HTTP handlers.
type API struct {
	db            *gorm.DB
	jwtSecret     []byte
	planner       *planner.Service
	bus           *events.Bus
	favouriteBias float64
	rng           sampler.Source
	logger        zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, plannerSvc *planner.Service, bus *events.Bus, favouriteBias float64, rng sampler.Source, logger zerolog.Logger) *API {
	return &API{
		db:            db,
		jwtSecret:     jwtSecret,
		planner:       plannerSvc,
		bus:           bus,
		favouriteBias: favouriteBias,
		rng:           rng,
		logger:        logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all endpoints on the given router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Route("/reminders", func(r chi.Router) {
				r.Get("/", a.handleRemindersList)
				r.Post("/", a.handleRemindersCreate)
				r.Get("/draw", a.handleRemindersDraw)
				r.Route("/{reminderID}", func(r chi.Router) {
					r.Get("/", a.handleRemindersGet)
					r.Patch("/", a.handleRemindersUpdate)
					r.Delete("/", a.handleRemindersDelete)
				})
			})

			pr.Route("/schedule", func(r chi.Router) {
				r.Get("/upcoming", a.handleScheduleUpcoming)
				r.Get("/preview", a.handleSchedulePreview)
				r.Post("/refresh", a.handleScheduleRefresh)
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleRemindersList(w http.ResponseWriter, r *http.Request) {
	query := a.db.WithContext(r.Context()).Order("created_at ASC")
	if tag := r.URL.Query().Get("tag"); tag != "" {
		query = query.Where("tag = ?", tag)
	}
	if r.URL.Query().Get("enabled") == "true" {
		query = query.Where("enabled = ?", true)
	}

	var reminders []models.Reminder
	if err := query.Find(&reminders).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, reminders)
}

type reminderRequest struct {
	Text      *string `json:"text"`
	Tag       *string `json:"tag"`
	Enabled   *bool   `json:"enabled"`
	Favourite *bool   `json:"favourite"`
}

func (a *API) handleRemindersCreate(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Text == nil || *req.Text == "" {
		writeError(w, http.StatusBadRequest, "text_required")
		return
	}

	reminder := models.Reminder{
		ID:      uuid.NewString(),
		Text:    *req.Text,
		Enabled: true,
	}
	if req.Tag != nil {
		reminder.Tag = *req.Tag
	}
	if req.Enabled != nil {
		reminder.Enabled = *req.Enabled
	}
	if req.Favourite != nil {
		reminder.Favourite = *req.Favourite
	}

	if err := a.db.WithContext(r.Context()).Create(&reminder).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.publishPoolUpdated(reminder.ID, "created")
	writeJSON(w, http.StatusCreated, reminder)
}

func (a *API) handleRemindersGet(w http.ResponseWriter, r *http.Request) {
	reminder, ok := a.loadReminder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (a *API) handleRemindersUpdate(w http.ResponseWriter, r *http.Request) {
	reminder, ok := a.loadReminder(w, r)
	if !ok {
		return
	}

	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Text != nil {
		if *req.Text == "" {
			writeError(w, http.StatusBadRequest, "text_required")
			return
		}
		reminder.Text = *req.Text
	}
	if req.Tag != nil {
		reminder.Tag = *req.Tag
	}
	if req.Enabled != nil {
		reminder.Enabled = *req.Enabled
	}
	if req.Favourite != nil {
		reminder.Favourite = *req.Favourite
	}

	if err := a.db.WithContext(r.Context()).Save(&reminder).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.publishPoolUpdated(reminder.ID, "updated")
	writeJSON(w, http.StatusOK, reminder)
}

func (a *API) handleRemindersDelete(w http.ResponseWriter, r *http.Request) {
	reminder, ok := a.loadReminder(w, r)
	if !ok {
		return
	}

	if err := a.db.WithContext(r.Context()).Delete(&reminder).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.publishPoolUpdated(reminder.ID, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

// handleRemindersDraw returns one favourite-weighted pick from the
// pool, without scheduling it.
func (a *API) handleRemindersDraw(w http.ResponseWriter, r *http.Request) {
	var reminders []models.Reminder
	if err := a.db.WithContext(r.Context()).Find(&reminders).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	pool := make([]sampler.Entry, 0, len(reminders))
	for _, reminder := range reminders {
		pool = append(pool, sampler.Entry{
			Text:      reminder.Text,
			Enabled:   reminder.Enabled,
			Tag:       reminder.Tag,
			Favourite: reminder.Favourite,
		})
	}

	pick, err := sampler.Select(pool, a.favouriteBias, a.rng)
	if err != nil {
		if errors.Is(err, sampler.ErrEmptyPool) {
			writeError(w, http.StatusNotFound, "empty_pool")
		} else {
			writeError(w, http.StatusInternalServerError, "draw_failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"text":      pick.Text,
		"tag":       pick.Tag,
		"favourite": pick.Favourite,
	})
}

func (a *API) handleScheduleUpcoming(w http.ResponseWriter, r *http.Request) {
	horizon := 24 * time.Hour
	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_hours")
			return
		}
		horizon = time.Duration(hours) * time.Hour
	}

	entries, err := a.planner.Upcoming(r.Context(), time.Now(), horizon)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleSchedulePreview(w http.ResponseWriter, r *http.Request) {
	count := 10
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			writeError(w, http.StatusBadRequest, "invalid_count")
			return
		}
		count = parsed
	}

	items, err := a.planner.Preview(r.Context(), time.Now(), count)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "preview_failed")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleScheduleRefresh(w http.ResponseWriter, r *http.Request) {
	a.planner.RefreshNow(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// loadReminder fetches the reminder named in the URL, writing the error
// response itself when the lookup fails.
func (a *API) loadReminder(w http.ResponseWriter, r *http.Request) (models.Reminder, bool) {
	id := chi.URLParam(r, "reminderID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "reminder_id_required")
		return models.Reminder{}, false
	}

	var reminder models.Reminder
	if err := a.db.WithContext(r.Context()).First(&reminder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
		} else {
			writeError(w, http.StatusInternalServerError, "db_error")
		}
		return models.Reminder{}, false
	}
	return reminder, true
}

func (a *API) publishPoolUpdated(reminderID, action string) {
	if a.bus == nil {
		return
	}
	a.bus.Publish(events.EventPoolUpdated, events.Payload{
		"reminder_id": reminderID,
		"action":      action,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
