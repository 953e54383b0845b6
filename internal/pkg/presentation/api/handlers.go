package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/diwise/county-lookup/internal/pkg/application/lookup"
	"github.com/diwise/county-lookup/internal/pkg/presentation/api/auth"
	apierrors "github.com/diwise/county-lookup/internal/pkg/presentation/api/errors"
	"github.com/diwise/county-lookup/pkg/counties"
	"github.com/diwise/county-lookup/pkg/geo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("county-lookup/api")

func RegisterHandlers(ctx context.Context, r *chi.Mux, authenticator auth.Authenticator, app lookup.CountyResolver) error {

	log := logging.GetFromContext(ctx)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Logger(log))

		r.Route("/counties", func(r chi.Router) {
			r.Get("/lookup", NewResolvePointHandler(app, authenticator))

			r.With(RequiredContentTypes([]string{"application/json"})).
				Post("/lookup", NewResolveBatchHandler(app, authenticator))

			r.With(RequiredContentTypes([]string{"text/csv"})).
				Post("/records", NewResolveRecordsHandler(app, authenticator))
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return nil
}

// NewResolvePointHandler handles single point lookups via query parameters
func NewResolvePointHandler(app lookup.PointResolver, authenticator auth.Authenticator) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "resolve-point")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		if err = authenticator.CheckAccess(ctx, r); err != nil {
			apierrors.ReportNewAccessDenied(w, err.Error())
			return
		}

		lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)

		if latErr != nil || lonErr != nil {
			err = fmt.Errorf("lat and lon must both be present and numeric")
			apierrors.ReportNewBadRequestData(w, err.Error())
			return
		}

		result, err := app.ResolvePoint(ctx, lat, lon)
		if err != nil {
			apierrors.ReportNewBadRequestData(w, err.Error())
			return
		}

		respondWithJSON(w, http.StatusOK, result)
	})
}

// NewResolveBatchHandler handles ordered batches of points posted as JSON
func NewResolveBatchHandler(app lookup.BatchResolver, authenticator auth.Authenticator) http.HandlerFunc {
	type pointDTO struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}

	type batchDTO struct {
		Points []pointDTO `json:"points"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "resolve-batch")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		if err = authenticator.CheckAccess(ctx, r); err != nil {
			apierrors.ReportNewAccessDenied(w, err.Error())
			return
		}

		body := batchDTO{}
		if err = json.NewDecoder(r.Body).Decode(&body); err != nil {
			apierrors.ReportNewInvalidRequest(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()))
			return
		}

		points := make([]geo.Point, len(body.Points))
		for i, p := range body.Points {
			points[i] = geo.NewPoint(p.Lat, p.Lon)
		}

		batch, err := app.ResolveBatch(ctx, points)
		if err != nil {
			apierrors.ReportNewInternalError(w, err.Error())
			return
		}

		respondWithJSON(w, http.StatusOK, batch)
	})
}

// NewResolveRecordsHandler accepts a csv body of records and resolves them
// as one ordered batch. Rows that fail to decode are reported alongside
// the results without failing the rows that did decode.
func NewResolveRecordsHandler(app lookup.RecordResolver, authenticator auth.Authenticator) http.HandlerFunc {
	type responseDTO struct {
		ID           string                  `json:"id"`
		Results      []counties.RecordResult `json:"results"`
		DecodeErrors []string                `json:"decodeErrors,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "resolve-records")
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()

		if err = authenticator.CheckAccess(ctx, r); err != nil {
			apierrors.ReportNewAccessDenied(w, err.Error())
			return
		}

		records, decodeErr := counties.ReadRecords(r.Body)
		if len(records) == 0 && decodeErr != nil {
			err = decodeErr
			apierrors.ReportNewBadRequestData(w, err.Error())
			return
		}

		batch, err := app.ResolveRecords(ctx, records)
		if err != nil {
			apierrors.ReportNewInternalError(w, err.Error())
			return
		}

		response := responseDTO{ID: batch.ID, Results: batch.Results}
		if decodeErr != nil {
			for _, line := range strings.Split(decodeErr.Error(), "\n") {
				response.DecodeErrors = append(response.DecodeErrors, line)
			}
		}

		respondWithJSON(w, http.StatusOK, response)
	})
}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequiredContentTypes(validTypes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType := r.Header.Get("Content-Type")
			isValidContentType := true

			if len(contentType) > 0 {
				isValidContentType = false

				for _, t := range validTypes {
					if strings.HasPrefix(contentType, t) {
						isValidContentType = true
						break
					}
				}
			}

			if isValidContentType {
				next.ServeHTTP(w, r)
			} else {
				http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
			}
		})
	}
}

func respondWithJSON(w http.ResponseWriter, code int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		apierrors.ReportNewInternalError(w, err.Error())
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}
