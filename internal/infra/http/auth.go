package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"notetree/internal/domain"

	"github.com/gin-gonic/gin"
)

var errUnsupportedAuthMode = errors.New("unsupported auth mode")

// Authenticator maps a bearer token to the sender address it is bound to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Address, error)
}

// StaticAuthenticator authenticates against a fixed token-to-address table,
// loaded from configuration as comma separated token:hexaddress pairs.
type StaticAuthenticator struct {
	senders map[string]domain.Address
}

func NewStaticAuthenticator(pairs string) (*StaticAuthenticator, error) {
	senders := make(map[string]domain.Address)
	for _, pair := range strings.Split(pairs, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, addrHex, ok := strings.Cut(pair, ":")
		if !ok || token == "" {
			return nil, errors.New("malformed api key entry")
		}
		addr, err := domain.ParseAddress(addrHex)
		if err != nil {
			return nil, err
		}
		senders[token] = addr
	}
	if len(senders) == 0 {
		return nil, errors.New("static auth requires at least one api key")
	}
	return &StaticAuthenticator{senders: senders}, nil
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (domain.Address, error) {
	addr, ok := a.senders[token]
	if !ok {
		return domain.Address{}, domain.ErrUnauthorized
	}
	return addr, nil
}

// requireSender resolves the authenticated sender for a mutation. With auth
// mode "none" the sender is taken from the X-Sender header, which is only
// acceptable for local development.
func (s *Server) requireSender(c *gin.Context) (domain.Address, bool) {
	if s.authInitErr != nil {
		writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
		return domain.Address{}, false
	}
	if s.authenticator == nil {
		raw := strings.TrimSpace(c.GetHeader("X-Sender"))
		if raw == "" {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing sender")
			return domain.Address{}, false
		}
		sender, err := domain.ParseAddress(raw)
		if err != nil {
			writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid sender")
			return domain.Address{}, false
		}
		return sender, true
	}

	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
		return domain.Address{}, false
	}
	sender, err := s.authenticator.Authenticate(c.Request.Context(), token)
	if err != nil {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
		return domain.Address{}, false
	}
	return sender, true
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}
