package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/auth"
	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/repository"
)

const (
	minPasswordLen = 8
	// maxUsernameAttempts bounds suffixing when a GitHub login collides with
	// existing usernames.
	maxUsernameAttempts = 20
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)
	usernameInvalid = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// errBadCredentials is shared by "no such user" and "wrong password" so the
// response does not reveal which usernames exist.
var errBadCredentials = apperror.Unauthorized("invalid username or password")

// AuthService registers users, checks credentials and issues session tokens.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                               ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Registration provisions the new user's skills and challenges in the same
// transaction as the user row.
type AuthService struct {
	users     repository.UserRepository
	catalog   *catalog.Catalog
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	c *catalog.Catalog,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		catalog:   c,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user and a fresh token so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a password account. A taken username is a Conflict.
func (s *AuthService) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("service/auth: %w", apperror.ValidationFailed("username",
			"username must be 3-32 letters, digits, '-' or '_'"))
	}
	if len(password) < minPasswordLen || len(password) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("service/auth: %w", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d to %d bytes", minPasswordLen, auth.MaxPasswordBytes)))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user, Provisioning(s.catalog)); err != nil {
		return nil, fmt.Errorf("service/auth: registering %s: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// Login checks a username and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: %w", errBadCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", username, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, fmt.Errorf("service/auth: %w", errBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginOrRegisterGitHub signs in the account linked to a GitHub user,
// creating and provisioning one on first login. The username is the GitHub
// login, with a numeric suffix if it is already taken.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, errors.New("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	if err == nil {
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up GitHub user %d: %w", gh.ID, err)
	}

	base := githubUsername(gh.Login)
	for attempt := 1; attempt <= maxUsernameAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = base + "-" + strconv.Itoa(attempt)
		}

		user = &model.User{Username: candidate, GitHubID: gh.ID}
		err := s.users.CreateUser(ctx, user, Provisioning(s.catalog))
		if err == nil {
			s.logger.Info("user registered via GitHub",
				slog.String("userID", user.ID),
				slog.String("username", user.Username),
				slog.Int64("githubID", gh.ID),
			)
			return s.issue(user)
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/auth: registering GitHub user %d: %w", gh.ID, err)
		}

		// The conflict may be a concurrent first login of the same account.
		if existing, err := s.users.GetUserByGitHubID(ctx, gh.ID); err == nil {
			return s.issue(existing)
		}
	}
	return nil, fmt.Errorf("service/auth: %w", apperror.Conflict("user", base))
}

// GetUserByID returns the user behind a validated token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: %w", apperror.Unauthorized("no user in session"))
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken returns the user ID a token was issued for.
func (s *AuthService) ValidateToken(token string) (string, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", &apperror.AppError{
			Err: apperror.ErrUnauthorized, Message: "invalid session", Cause: err,
		})
	}
	return userID, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// githubUsername turns a GitHub login into a valid local username.
func githubUsername(login string) string {
	name := usernameInvalid.ReplaceAllString(login, "")
	if len(name) > 28 {
		name = name[:28]
	}
	for len(name) < 3 {
		name += "_"
	}
	return name
}
