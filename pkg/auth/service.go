package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
)

// Token sources reported by ValidateRequest.
const (
	SourceSession = "session"
	SourceBearer  = "bearer"
)

// AuthService resolves the user id behind a request.
type AuthService interface {
	// ValidateRequest looks for credentials in:
	//   1. the signed session cookie (browser clients)
	//   2. an Authorization header with the "Bearer" scheme (API clients)
	// Returns the user id and which source supplied it.
	ValidateRequest(r *http.Request) (uuid.UUID, string, error)
}

type authService struct {
	sessions *SessionStore
	tokens   *TokenIssuer
	logger   *zap.Logger
}

// NewAuthService creates an AuthService over the session store and token issuer.
func NewAuthService(sessions *SessionStore, tokens *TokenIssuer, logger *zap.Logger) AuthService {
	return &authService{
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

func (s *authService) ValidateRequest(r *http.Request) (uuid.UUID, string, error) {
	userID, err := s.sessions.UserID(r)
	if err == nil {
		return userID, SourceSession, nil
	}
	if !errors.Is(err, ErrNoSession) {
		s.logger.Debug("Session cookie rejected",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		return uuid.Nil, SourceSession, err
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return uuid.Nil, "", ErrMissingAuthorization
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		s.logger.Debug("Invalid Authorization header format",
			zap.String("path", r.URL.Path))
		return uuid.Nil, SourceBearer, ErrInvalidAuthFormat
	}

	userID, err = s.tokens.Parse(parts[1])
	if err != nil {
		s.logger.Debug("Bearer token validation failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		return uuid.Nil, SourceBearer, err
	}
	return userID, SourceBearer, nil
}

var _ AuthService = (*authService)(nil)
