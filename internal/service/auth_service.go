package service

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"

	"github.com/cybergutta/akademitrack-agent/internal/models"
	"github.com/cybergutta/akademitrack-agent/pkg/credstore"
)

const credentialsKey = "credentials"

// AuthService is the authentication collaborator: it obtains a fresh session
// cookie set and scope parameters through the external browser-login helper
// and persists them in the credential store. Login itself (Feide, headless
// browser) lives outside this process; the helper prints the result as JSON.
type AuthService struct {
	helperCommand string
	helperTimeout time.Duration
	store         *credstore.Store
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewAuthService builds the gateway.
func NewAuthService(helperCommand string, helperTimeout time.Duration, store *credstore.Store, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if helperTimeout <= 0 {
		helperTimeout = 3 * time.Minute
	}
	return &AuthService{
		helperCommand: helperCommand,
		helperTimeout: helperTimeout,
		store:         store,
		validate:      validator.New(),
		logger:        logger,
	}
}

// Stored returns previously persisted credentials, if any.
func (s *AuthService) Stored() (models.Credentials, bool) {
	if s.store == nil {
		return models.Credentials{}, false
	}
	raw, err := s.store.Get(credentialsKey)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			s.logger.Sugar().Warnw("credential store read failed", "error", err)
		}
		return models.Credentials{}, false
	}
	var creds models.Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		s.logger.Sugar().Warnw("stored credentials corrupt", "error", err)
		return models.Credentials{}, false
	}
	if !creds.Valid() {
		return models.Credentials{}, false
	}
	return creds, true
}

// Authenticate runs the login helper and returns the outcome as data, never
// as a typed error: the loop branches on the outcome value.
func (s *AuthService) Authenticate(ctx context.Context) (models.Credentials, models.AuthOutcome) {
	if s.helperCommand == "" {
		s.logger.Sugar().Warnw("no login helper configured")
		return models.Credentials{}, models.AuthInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, s.helperTimeout)
	defer cancel()

	parts := strings.Fields(s.helperCommand)
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	output, err := cmd.Output()
	if err != nil {
		s.logger.Sugar().Warnw("login helper failed", "error", err)
		return models.Credentials{}, models.AuthTransientFailure
	}

	var creds models.Credentials
	if err := json.Unmarshal(output, &creds); err != nil {
		s.logger.Sugar().Warnw("login helper output undecodable", "error", err)
		return models.Credentials{}, models.AuthInvalidCredentials
	}
	if err := s.validate.Struct(creds.Scope); err != nil || len(creds.Cookies) == 0 {
		s.logger.Sugar().Warnw("login helper produced incomplete credentials")
		return models.Credentials{}, models.AuthInvalidCredentials
	}

	s.persist(creds)
	s.logger.Sugar().Infow("authentication refreshed", "cookies", len(creds.Cookies))
	return creds, models.AuthSuccess
}

func (s *AuthService) persist(creds models.Credentials) {
	if s.store == nil {
		return
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return
	}
	if err := s.store.Set(credentialsKey, string(raw)); err != nil {
		s.logger.Sugar().Warnw("credential store write failed", "error", err)
	}
}
