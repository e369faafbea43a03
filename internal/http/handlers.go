package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/totallytravels/backend/internal/lifecycle"
	"github.com/totallytravels/backend/internal/location"
	"github.com/totallytravels/backend/internal/mail"
	"github.com/totallytravels/backend/internal/models"
	"github.com/totallytravels/backend/internal/observability"
	"github.com/totallytravels/backend/internal/validation"
	"github.com/totallytravels/backend/internal/weather"
)

// maxFormBody bounds contact/booking request bodies, mirroring the 1mb
// JSON body limit of the original deployment.
const maxFormBody = 1 << 20

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	resolver    *location.Resolver
	weather     weather.Fetcher
	mailer      mail.Sender
	logger      *zap.Logger
	validate    *validator.Validate
	queryMaxLen int
	// cachePing, when set, is called by the health check. Used when the
	// cache backend is memcached.
	cachePing func() error
}

// NewHandler returns a new Handler.
func NewHandler(
	resolver *location.Resolver,
	fetcher weather.Fetcher,
	mailer mail.Sender,
	logger *zap.Logger,
	queryMaxLen int,
	cachePing func() error,
) *Handler {
	return &Handler{
		resolver:    resolver,
		weather:     fetcher,
		mailer:      mailer,
		logger:      logger,
		validate:    validator.New(),
		queryMaxLen: queryMaxLen,
		cachePing:   cachePing,
	}
}

// GetWeather handles GET /api/weather?city=&q=&lat=&lon= (lng is an alias for lon).
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q, err := validation.ValidateQuery(params.Get("q"), h.queryMaxLen)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Query parameter q is too long")
		return
	}
	city := strings.ToLower(strings.TrimSpace(params.Get("city")))
	lon := params.Get("lon")
	if lon == "" {
		lon = params.Get("lng")
	}

	resolved, err := h.resolver.Resolve(r.Context(), location.Request{
		Lat:   params.Get("lat"),
		Lon:   lon,
		Query: q,
		City:  city,
	})
	if err != nil {
		switch {
		case errors.Is(err, location.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest,
				"Provide ?q=<place name> OR one of the supported ?city= values OR ?lat=&lon=")
		case errors.Is(err, location.ErrNotFound):
			writeError(w, http.StatusNotFound, `Location not found for "`+q+`"`)
		default:
			requestLogger(r, h.logger).Error("resolve location failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to fetch weather.")
		}
		return
	}

	observability.RecordWeatherQuery(city)

	current, err := h.weather.FetchCurrent(r.Context(), resolved.Latitude, resolved.Longitude)
	if err != nil {
		requestLogger(r, h.logger).Error("fetch weather failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch weather.")
		return
	}

	query := q
	if query == "" {
		query = city
	}
	writeJSON(w, http.StatusOK, models.WeatherReport{
		Success:      true,
		Query:        query,
		Location:     resolved.Label,
		Latitude:     resolved.Latitude,
		Longitude:    resolved.Longitude,
		TemperatureC: current.Temperature2m,
		Humidity:     current.RelativeHumidity2m,
		WindSpeedKmh: current.WindSpeed10m,
		WeatherCode:  current.WeatherCode,
		Condition:    weather.ConditionText(current.WeatherCode),
		Time:         current.Time,
	})
}

type contactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// PostContact handles POST /api/contact.
func (h *Handler) PostContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeForm(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: name, email, message")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: name, email, message")
		return
	}

	if !h.mailer.Configured() {
		writeError(w, http.StatusInternalServerError, mailNotConfiguredMessage)
		return
	}

	if err := h.mailer.SendContact(mail.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}); err != nil {
		observability.EmailSendsTotal.WithLabelValues("contact", "error").Inc()
		requestLogger(r, h.logger).Error("contact email failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to send message.")
		return
	}

	observability.EmailSendsTotal.WithLabelValues("contact", "sent").Inc()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type bookingRequest struct {
	Name         string          `json:"name" validate:"required"`
	Email        string          `json:"email" validate:"required"`
	Phone        flexString      `json:"phone" validate:"required"`
	Dates        string          `json:"dates" validate:"required"`
	Destinations destinationList `json:"destinations" validate:"required,min=1"`
	Travelers    flexString      `json:"travelers" validate:"required"`
	Message      string          `json:"message"`
}

// PostBook handles POST /api/book.
func (h *Handler) PostBook(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeForm(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, bookingMissingFieldsMessage)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, bookingMissingFieldsMessage)
		return
	}

	if !h.mailer.Configured() {
		writeError(w, http.StatusInternalServerError, mailNotConfiguredMessage)
		return
	}

	if err := h.mailer.SendBooking(mail.BookingRequest{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        string(req.Phone),
		Dates:        req.Dates,
		Destinations: req.Destinations,
		Travelers:    string(req.Travelers),
		Message:      req.Message,
	}); err != nil {
		observability.EmailSendsTotal.WithLabelValues("booking", "error").Inc()
		requestLogger(r, h.logger).Error("booking email failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to send booking.")
		return
	}

	observability.EmailSendsTotal.WithLabelValues("booking", "sent").Inc()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

const mailNotConfiguredMessage = "Email is not configured on the server. " +
	"Set SMTP_USERNAME, SMTP_PASSWORD (and optionally CONTACT_TO)."

const bookingMissingFieldsMessage = "Missing required fields: name, email, phone, dates, destinations, travelers"

// GetRoot handles GET /.
func (h *Handler) GetRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Totally Travels backend is running"))
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	statusCode := http.StatusOK
	if lifecycle.IsShuttingDown() {
		status = "shutting-down"
		statusCode = http.StatusServiceUnavailable
	}

	checks := make(map[string]string)
	if h.mailer.Configured() {
		checks["mail"] = "configured"
	} else {
		checks["mail"] = "not_configured"
	}
	if h.cachePing != nil {
		if h.cachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}

	body := map[string]interface{}{
		"status":    status,
		"service":   "totally-travels-backend",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if lifecycle.IsShuttingDown() {
		body["draining_for"] = lifecycle.DrainingFor().Round(time.Millisecond).String()
	}
	writeJSON(w, statusCode, body)
}

// decodeForm decodes a JSON form body with the size cap applied.
func decodeForm(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	return json.NewDecoder(r.Body).Decode(v)
}

// flexString accepts a JSON string or number. The booking form sends
// travelers as a number; other clients send strings.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	return errors.New("expected string or number")
}

// destinationList accepts a JSON array of strings or a single string.
type destinationList []string

func (d *destinationList) UnmarshalJSON(b []byte) error {
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		*d = arr
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*d = destinationList{s}
		return nil
	}
	return errors.New("expected string or array of strings")
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the error envelope the frontend expects.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// requestLogger returns the request-scoped logger from context, falling back
// to the handler's base logger.
func requestLogger(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		return logger
	}
	return fallback
}
