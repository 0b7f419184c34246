// Package auth guards /predict with HMAC-signed bearer tokens when a secret
// is configured.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/Brownie44l1/freshness-api/internal/logging"
)

const opVerify = "auth.verify"

var (
	ErrNoSecret      = errors.New("token verification is not configured")
	ErrMissingToken  = errors.New("authorization header required")
	ErrMalformed     = errors.New("authorization header must be 'Bearer <token>'")
	ErrInvalidToken  = errors.New("invalid token")
	ErrWrongAudience = errors.New("token audience not accepted")
)

type subjectKey struct{}

// SubjectFromContext returns the verified token subject, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	subject, ok := ctx.Value(subjectKey{}).(string)
	return subject, ok && subject != ""
}

// Verifier checks bearer tokens against one HMAC secret and, optionally, one
// audience.
type Verifier struct {
	secret   []byte
	audience string
}

func NewVerifier(secret, audience string) *Verifier {
	return &Verifier{
		secret:   []byte(strings.TrimSpace(secret)),
		audience: strings.TrimSpace(audience),
	}
}

// Verify validates the Authorization header value and returns the token
// subject, which may be empty.
func (v *Verifier) Verify(header string) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrNoSecret
	}

	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	switch {
	case header == "":
		return "", ErrMissingToken
	case !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "":
		return "", ErrMalformed
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if v.audience != "" && !containsAudience(claims.Audience, v.audience) {
		return "", ErrWrongAudience
	}
	return claims.Subject, nil
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Middleware rejects requests whose token fails v with 401. Failures are
// logged as "auth.verify" operation errors under the request id.
func Middleware(v *Verifier, logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("auth")
	return func(c *gin.Context) {
		requestID := logging.RequestIDFromContext(c.Request.Context())

		subject, err := v.Verify(c.GetHeader("Authorization"))
		if err != nil {
			err = logging.NewOperationError(opVerify, requestID, err)
			logging.WithOperation(logger, opVerify, requestID).Warn("request rejected",
				append(logging.ErrorFields(err), zap.String("path", c.Request.URL.Path))...)
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: message(err), RequestID: requestID})
			return
		}

		if subject != "" {
			c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), subjectKey{}, subject))
		}
		c.Next()
	}
}

// message keeps token parser details out of the response.
func message(err error) string {
	for _, known := range []error{ErrNoSecret, ErrMissingToken, ErrMalformed, ErrInvalidToken, ErrWrongAudience} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "unauthorized"
}

func containsAudience(audiences jwt.ClaimStrings, want string) bool {
	for _, aud := range audiences {
		if aud == want {
			return true
		}
	}
	return false
}
