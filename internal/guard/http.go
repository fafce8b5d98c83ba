package guard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/meridian-platform/meridian-identity/internal/platform/httpx"
	"github.com/meridian-platform/meridian-identity/internal/s2s"
	"github.com/meridian-platform/meridian-identity/internal/shared"
)

// DenialCounter counts denied requests by reason.
type DenialCounter interface {
	IncDenial(reason string)
}

// Middleware wires the decision procedure into chi-style HTTP handlers.
type Middleware struct {
	Guard   *Guard
	Headers s2s.Headers
	Logger  *slog.Logger
	Denials DenialCounter
}

// Require guards every request with the given capability. On allow it stores
// the resolved identity (possibly nil for public operations) in the request
// context; on deny it writes the transport-native failure and stops.
func (m Middleware) Require(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := m.Guard.Decide(m.descriptor(r), capability)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Warn("request denied",
						slog.String("path", r.URL.Path),
						slog.Any("error", err))
				}
				if m.Denials != nil {
					m.Denials.IncDenial(denialReason(err))
				}
				httpx.RespondError(w, err)
				return
			}
			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrMissingBearer):
		return "missing_bearer"
	case errors.Is(err, shared.ErrMissingUserContext):
		return "missing_user_context"
	case errors.Is(err, shared.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, shared.ErrMissingServiceSignature):
		return "missing_service_signature"
	default:
		return "unauthenticated"
	}
}

func (m Middleware) descriptor(r *http.Request) Descriptor {
	return Descriptor{
		Authorization:    r.Header.Get("Authorization"),
		ServiceName:      r.Header.Get(m.Headers.ServiceName),
		ServiceSignature: r.Header.Get(m.Headers.ServiceSignature),
		AssertedUserID:   r.Header.Get(m.Headers.AssertedUserID),
		AssertedRole:     r.Header.Get(m.Headers.AssertedRole),
	}
}
