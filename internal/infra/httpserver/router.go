package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appdiag "github.com/bryanwahyu/verdant-vision/internal/application/diagnosis"
	"github.com/bryanwahyu/verdant-vision/internal/domain/detection"
	domain "github.com/bryanwahyu/verdant-vision/internal/domain/diagnosis"
	"github.com/bryanwahyu/verdant-vision/internal/middleware"
)

// maxBodyBytes fits a 5MB photo after base64 plus the JSON envelope
const maxBodyBytes = 8 << 20

// Options optional collaborators of the router; zero values disable them
type Options struct {
	Logger         *zap.Logger
	Metrics        *middleware.Metrics
	RateLimiter    *middleware.RateLimiter
	APIKeys        map[string]string
	CORSOrigins    []string
	HealthCheckers map[string]middleware.HealthChecker
}

type Router struct {
	diagSvc *appdiag.Service
	logger  *zap.Logger
}

func NewRouter(diagSvc *appdiag.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{diagSvc: diagSvc, logger: logger}
	mux := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(logger))
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimit(opts.RateLimiter))
	}

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Get("/healthz", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/detect", r.wrap(r.handleDetect))
		rt.Post("/diagnoses", r.wrap(r.handleDetectAndSave))
		rt.Get("/diagnoses", r.wrap(r.handleHistory))
		rt.Get("/analytics/summary", r.wrap(r.handleSummary))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest input ditolak sebelum sampai ke service
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var bad badRequest
		if errors.As(err, &bad) {
			middleware.WriteError(w, http.StatusBadRequest, "bad_request", bad.msg)
			return
		}

		var detErr *detection.Error
		if errors.As(err, &detErr) {
			status := statusForKind(detErr.Kind)
			if errors.Is(err, detection.ErrQuotaExceeded) {
				status = http.StatusTooManyRequests
			}
			middleware.WriteError(w, status, string(detErr.Kind), detErr.Error())
			return
		}

		r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
		middleware.WriteError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func statusForKind(k detection.Kind) int {
	switch k {
	case detection.KindServiceBusy:
		return http.StatusServiceUnavailable
	case detection.KindContentRejected, detection.KindUnprocessableImage:
		return http.StatusUnprocessableEntity
	case detection.KindDetectionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type detectRequest struct {
	PhotoDataURI string `json:"photo_data_uri"`
	Description  string `json:"description"`
}

func (r *Router) decodeDetect(w http.ResponseWriter, req *http.Request) (detection.Input, error) {
	var body detectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return detection.Input{}, badRequest{msg: "File size exceeds 5MB. Please choose a smaller image."}
		}
		return detection.Input{}, badRequest{msg: fmt.Sprintf("invalid request body: %v", err)}
	}
	if err := middleware.ValidatePhotoDataURI(body.PhotoDataURI); err != nil {
		return detection.Input{}, badRequest{msg: err.Error()}
	}
	desc := middleware.SanitizeString(body.Description)
	if err := middleware.ValidateDescription(desc); err != nil {
		return detection.Input{}, badRequest{msg: err.Error()}
	}
	return detection.Input{PhotoDataURI: body.PhotoDataURI, Description: desc}, nil
}

// POST /v1/detect
// Body: {"photo_data_uri": "data:image/...", "description": "..."}
func (r *Router) handleDetect(w http.ResponseWriter, req *http.Request) error {
	in, err := r.decodeDetect(w, req)
	if err != nil {
		return err
	}
	res, err := r.diagSvc.Detect(req.Context(), in)
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusOK, toResultView(res))
}

// POST /v1/diagnoses : detect lalu simpan ke history
func (r *Router) handleDetectAndSave(w http.ResponseWriter, req *http.Request) error {
	in, err := r.decodeDetect(w, req)
	if err != nil {
		return err
	}
	res, err := r.diagSvc.DetectAndSave(req.Context(), appdiag.SaveCommand{
		Input:    in,
		PhotoRef: in.PhotoDataURI,
		UserID:   middleware.GetUserFromContext(req.Context()),
	})
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusCreated, toResultView(res))
}

// GET /v1/diagnoses?limit=20
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	limit := 0
	if v := req.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return badRequest{msg: "limit must be an integer"}
		}
		limit = middleware.ValidateLimit(n)
	}

	list, err := r.diagSvc.History(req.Context())
	if err != nil {
		return err
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	out := make([]recordView, 0, len(list))
	for _, rec := range list {
		out = append(out, toRecordView(rec))
	}
	return middleware.WriteJSON(w, http.StatusOK, out)
}

// GET /v1/analytics/summary
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	summary, err := r.diagSvc.Summary(req.Context())
	if err != nil {
		return err
	}
	return middleware.WriteJSON(w, http.StatusOK, summary)
}

// response views

type diagnosisView struct {
	Disease    string       `json:"disease"`
	Confidence float64      `json:"confidence"`
	Level      domain.Level `json:"level"`
}

type resultView struct {
	Diagnoses []diagnosisView `json:"diagnoses"`
}

type recordView struct {
	ID           domain.RecordID `json:"id"`
	Diagnoses    []diagnosisView `json:"diagnoses"`
	PhotoDataURI string          `json:"photoDataUri,omitempty"`
	Timestamp    string          `json:"timestamp"`
	UserID       string          `json:"userId,omitempty"`
}

func toDiagnosisViews(in []domain.Diagnosis) []diagnosisView {
	out := make([]diagnosisView, 0, len(in))
	for _, d := range in {
		out = append(out, diagnosisView{Disease: d.Disease, Confidence: d.Confidence, Level: d.Level()})
	}
	return out
}

func toResultView(res domain.Result) resultView {
	return resultView{Diagnoses: toDiagnosisViews(res.Diagnoses)}
}

func toRecordView(rec domain.Record) recordView {
	return recordView{
		ID:           rec.ID,
		Diagnoses:    toDiagnosisViews(rec.Diagnoses),
		PhotoDataURI: rec.PhotoDataURI,
		Timestamp:    rec.Timestamp.UTC().Format(time.RFC3339Nano),
		UserID:       rec.UserID,
	}
}
