package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/iho/cashledger/internal/infrastructure/logger"
	"github.com/iho/cashledger/internal/usecase"
)

const (
	IdempotencyKeyHeader  = "Idempotency-Key"
	DefaultIdempotencyTTL = 24 * time.Hour

	// legacyPending is the bare marker a store may hold for a claimed key.
	legacyPending = "processing"
	maxKeyedBody  = 1 << 20
)

// storedResponse is kept per key. Status is zero while the first request is
// still running.
type storedResponse struct {
	Fingerprint string `json:"fingerprint,omitempty"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// IdempotencyMiddleware makes mutating requests that carry an
// Idempotency-Key safe to resend. A key is scoped by method and path and
// bound to the request body: resending it with another body is refused.
// Server errors release the key so the client can try again.
type IdempotencyMiddleware struct {
	store usecase.IdempotencyStore
	ttl   time.Duration
}

func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" || !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		log := logger.FromContext(r.Context()).With().Str("idempotency_key", key).Logger()

		body, err := io.ReadAll(io.LimitReader(r.Body, maxKeyedBody+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request", "could not read request body")
			return
		}
		if len(body) > maxKeyedBody {
			writeError(w, http.StatusRequestEntityTooLarge, "invalid request", "request body too large")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		sum := sha256.Sum256(body)
		fingerprint := hex.EncodeToString(sum[:])
		scoped := r.Method + " " + r.URL.Path + ":" + key

		claim, _ := json.Marshal(storedResponse{Fingerprint: fingerprint})
		exists, cached, err := m.store.CheckAndSet(r.Context(), scoped, claim, m.ttl)
		if err != nil {
			log.Error().Err(err).Msg("idempotency check failed")
			writeError(w, http.StatusInternalServerError, "idempotency check failed", "")
			return
		}
		if exists {
			replay(w, cached, fingerprint)
			return
		}

		rec := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// Settle the key even when the client has gone away.
		ctx := context.WithoutCancel(r.Context())
		if rec.status >= http.StatusInternalServerError {
			if err := m.store.Release(ctx, scoped); err != nil {
				log.Warn().Err(err).Msg("failed to release idempotency key")
			}
			return
		}

		final, _ := json.Marshal(storedResponse{
			Fingerprint: fingerprint,
			Status:      rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err := m.store.Update(ctx, scoped, final, m.ttl); err != nil {
			log.Warn().Err(err).Msg("failed to store idempotent response")
		}
	})
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func replay(w http.ResponseWriter, cached []byte, fingerprint string) {
	if len(cached) == 0 || string(cached) == legacyPending {
		writeError(w, http.StatusConflict, "duplicate request", "a request with this idempotency key is in progress")
		return
	}

	var stored storedResponse
	if err := json.Unmarshal(cached, &stored); err != nil {
		writeError(w, http.StatusConflict, "duplicate request", "stored response for this idempotency key is unreadable")
		return
	}
	if stored.Fingerprint != "" && stored.Fingerprint != fingerprint {
		writeError(w, http.StatusUnprocessableEntity, "idempotency key reused", "this key was sent with a different request body")
		return
	}
	if stored.Status == 0 {
		writeError(w, http.StatusConflict, "duplicate request", "a request with this idempotency key is in progress")
		return
	}

	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set("X-Idempotency-Replay", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// bufferedWriter passes the response through and keeps a copy of it.
type bufferedWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

func (b *bufferedWriter) WriteHeader(status int) {
	b.status = status
	b.ResponseWriter.WriteHeader(status)
}
