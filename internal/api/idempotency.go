// internal/api/idempotency.go
package api

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"driverpay/internal/service"
)

// maxIdempotentBody bounds how much request body the middleware will hash and
// therefore how large a replayable request may be.
const maxIdempotentBody = 1 << 20 // 1 MiB

// IdempotencyMiddleware deduplicates retried write requests. Every wrapped
// route requires an Idempotency-Key header; the claim identity is
// (key, method, route pattern). Responses are stored with their status code
// and replayed verbatim; concurrent retries get 409 with a Retry-After hint.
// Lease and window come from configuration.
//
// 5xx responses deliberately leave the claim in progress: the lease expires
// on its own and the retry runs the handler again, whose flows are themselves
// replay-safe.
func IdempotencyMiddleware(idem *service.IdempotencyService, lease, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				writeJSONError(w, http.StatusBadRequest, "Missing Idempotency-Key header")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody))
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "Failed to read request body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := sha256.Sum256(body)
			requestHash := hex.EncodeToString(hash[:])
			endpoint := routePattern(r)

			outcome, err := idem.ClaimOrGet(r.Context(), service.ClaimParams{
				Key:         key,
				Method:      r.Method,
				Endpoint:    endpoint,
				RequestHash: &requestHash,
				Lease:       lease,
				Window:      window,
			})
			if err != nil {
				logger.Error("idempotency claim failed", "key", key, "error", err)
				writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			switch outcome.Decision {
			case service.DecisionStoredSuccess:
				replayStored(w, outcome)
				return
			case service.DecisionStoredFailure:
				replayStoredFailure(w, outcome)
				return
			case service.DecisionInProgress:
				w.Header().Set("Retry-After", strconv.Itoa(outcome.RetryAfterSec))
				writeJSONError(w, http.StatusConflict, "Request is already being processed")
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			switch {
			case recorder.status < 400:
				if err := idem.Succeed(r.Context(), key, r.Method, endpoint, recorder.status, recorder.body.Bytes(), nil); err != nil {
					logger.Error("failed to store idempotent response", "key", key, "error", err)
				}
			case recorder.status < 500:
				errCode := strconv.Itoa(recorder.status)
				details := recorder.body.String()
				if err := idem.Fail(r.Context(), key, r.Method, endpoint, &errCode, &details); err != nil {
					logger.Error("failed to store idempotent failure", "key", key, "error", err)
				}
			}
		})
	}
}

func replayStored(w http.ResponseWriter, outcome *service.ClaimOutcome) {
	code := http.StatusOK
	if outcome.Claim.ResponseCode != nil {
		code = *outcome.Claim.ResponseCode
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotency-Replayed", "true")
	w.WriteHeader(code)
	_, _ = w.Write(outcome.Claim.ResponseBody)
}

// replayStoredFailure re-emits a cached client error with its original status
// code and body, so retries observe the same outcome as the first attempt.
func replayStoredFailure(w http.ResponseWriter, outcome *service.ClaimOutcome) {
	code := http.StatusUnprocessableEntity
	if outcome.Claim.ErrorCode != nil {
		if parsed, err := strconv.Atoi(*outcome.Claim.ErrorCode); err == nil {
			code = parsed
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Idempotency-Replayed", "true")
	w.WriteHeader(code)
	if outcome.Claim.ErrorDetails != nil {
		_, _ = w.Write([]byte(*outcome.Claim.ErrorDetails))
	}
}

// routePattern prefers the chi pattern ("/orders/{orderID}/refund") over the
// raw path so retries with the same key land on the same claim regardless of
// path parameter values.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// responseRecorder tees the handler's response so it can be stored for replay.
type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
