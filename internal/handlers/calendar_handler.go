package handlers

import (
	"net/http"
	"time"

	"eduportal/internal/models"
	"eduportal/internal/service"
)

// CalendarHandler serves events, date queries and summaries
type CalendarHandler struct {
	calendarService *service.CalendarService
}

func NewCalendarHandler(calendarService *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarService: calendarService}
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	events := h.calendarService.ListEvents()
	respondJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.calendarService.GetEvent(r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, "get event failed", err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.CalendarEventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	event, err := h.calendarService.AddEvent(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, "add event failed", err)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.CalendarEventPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	event, err := h.calendarService.UpdateEvent(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		respondWithServiceError(w, "update event failed", err)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.calendarService.DeleteEvent(r.Context(), r.PathValue("id")); err != nil {
		respondWithServiceError(w, "delete event failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OnDate lists the events of /api/events/on/{date}
func (h *CalendarHandler) OnDate(w http.ResponseWriter, r *http.Request) {
	date, ok := h.date(w, r.PathValue("date"))
	if !ok {
		return
	}
	events := h.calendarService.EventsOnDate(date)
	respondJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// Range lists the events between ?start= and ?end= inclusive
func (h *CalendarHandler) Range(w http.ResponseWriter, r *http.Request) {
	start, ok := h.date(w, r.URL.Query().Get("start"))
	if !ok {
		return
	}
	end, ok := h.date(w, r.URL.Query().Get("end"))
	if !ok {
		return
	}
	events := h.calendarService.EventsInRange(start, end)
	respondJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (h *CalendarHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date, ok := h.date(w, r.PathValue("date"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.calendarService.DailySummary(date))
}

func (h *CalendarHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	date, ok := h.date(w, r.PathValue("date"))
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.calendarService.WeeklySummary(date))
}

// ICS downloads every event as an iCalendar file
func (h *CalendarHandler) ICS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=family-calendar.ics")
	_, _ = w.Write([]byte(h.calendarService.ExportICS()))
}

// date parses value as a day; "today" selects the current day
func (h *CalendarHandler) date(w http.ResponseWriter, value string) (time.Time, bool) {
	if value == "today" {
		return h.calendarService.Today(), true
	}
	date, err := h.calendarService.ParseDate(value)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidDate, "", nil)
		return time.Time{}, false
	}
	return date, true
}
