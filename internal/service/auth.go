package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sakif/snippet-api/internal/apperror"
	"github.com/sakif/snippet-api/internal/auth"
	"github.com/sakif/snippet-api/internal/model"
	"github.com/sakif/snippet-api/internal/repository"
)

const MaxUsernameLength = 150

// Letters, digits and @ . + - _ only.
var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

const msgBadCredentials = "Invalid username/password."

// AuthService handles the authentication business logic.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT), PasswordService (bcrypt)
//
// It also implements auth.PasswordChecker for Basic auth in the Identify
// middleware.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

var _ auth.PasswordChecker = (*AuthService)(nil)

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// respond (or set the cookie) in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// CreateUser registers a local account with a password. Used by the
// createuser command.
func (s *AuthService) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)

	fields := map[string][]string{}
	switch {
	case username == "":
		fields["username"] = []string{"This field may not be blank."}
	case utf8.RuneCountInString(username) > MaxUsernameLength:
		fields["username"] = []string{fmt.Sprintf("Ensure this field has no more than %d characters.", MaxUsernameLength)}
	case !usernamePattern.MatchString(username):
		fields["username"] = []string{"Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."}
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		fields["password"] = []string{strings.TrimPrefix(err.Error(), "auth: ")}
	}
	if len(fields) > 0 {
		return nil, apperror.Invalid(fields, nil)
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", slog.Int64("userID", user.ID), slog.String("username", username))
	return user, nil
}

// CheckPassword returns the identity of username when password matches.
// Unknown users and wrong passwords fail the same way.
func (s *AuthService) CheckPassword(ctx context.Context, username, password string) (*model.Identity, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, apperror.Unauthorized(msgBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return &model.Identity{UserID: user.ID, Username: user.Username}, nil
}

// Login checks a username and password and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	id, err := s.CheckPassword(ctx, username, password)
	if err != nil {
		s.logger.Info("password login failed", slog.String("username", username))
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id.UserID, err)
	}
	return s.issue(user, "password")
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback: first login
// creates the user, later logins refresh their profile. Either way a JWT
// is issued.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, errors.New("service/auth: GitHub user must not be nil")
	}

	githubID := ghUser.ID
	user := &model.User{
		Username:  ghUser.Login,
		GitHubID:  &githubID,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}
	return s.issue(user, "github")
}

// GetUserByID backs GET /auth/me.
func (s *AuthService) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", id, err)
	}
	return user, nil
}

// TokenTTL is the lifetime of issued tokens; handlers use it for cookie MaxAge.
func (s *AuthService) TokenTTL() int {
	return int(s.tokens.TTL().Seconds())
}

func (s *AuthService) issue(user *model.User, method string) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}

	s.logger.Info("user authenticated",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("method", method),
	)
	return &AuthResult{User: user, Token: token}, nil
}
