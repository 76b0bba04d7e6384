package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"panel-auth/internal/abuse"
	"panel-auth/internal/domain"
	"panel-auth/internal/ledger"
	"panel-auth/internal/repository"
	"panel-auth/internal/token"
)

// dummyHash is compared against when the username is unknown so lookups
// for existing and missing users cost roughly the same.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{3,30}$`)

// Challenger issues and verifies single-use human verification challenges.
type Challenger interface {
	Issue() (id, image string, err error)
	Verify(id, answer string) bool
}

// AuthService composes the credential store, challenge issuer, attempt
// ledger, abuse policy and session issuer into the public auth operations.
type AuthService struct {
	users     repository.UserRepository
	challenge Challenger
	attempts  *ledger.Ledger
	policy    *abuse.Policy
	tokens    *token.Issuer
	logger    *logrus.Logger

	// bootstrapMu serializes the empty-store check and the first create so
	// concurrent Register calls cannot both mint an admin.
	bootstrapMu sync.Mutex
}

func NewAuthService(
	users repository.UserRepository,
	challenge Challenger,
	attempts *ledger.Ledger,
	policy *abuse.Policy,
	tokens *token.Issuer,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		challenge: challenge,
		attempts:  attempts,
		policy:    policy,
		tokens:    tokens,
		logger:    logger,
	}
}

// HasUsers reports whether any account exists yet.
func (s *AuthService) HasUsers(ctx context.Context) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		s.logger.Errorf("count users: %v", err)
		return false, ErrInternal
	}
	return count > 0, nil
}

// GenerateCaptcha issues a fresh challenge and returns its id and image.
func (s *AuthService) GenerateCaptcha() (id, image string, err error) {
	id, image, err = s.challenge.Issue()
	if err != nil {
		s.logger.Errorf("issue captcha: %v", err)
		return "", "", ErrInternal
	}
	return id, image, nil
}

// CheckIfRequireCaptcha reports whether the next login attempt for the
// username must carry a valid captcha. Evaluated fresh on every call.
func (s *AuthService) CheckIfRequireCaptcha(username string) bool {
	return s.policy.RequiresChallenge(username)
}

// Register creates the first account with the admin role. It is the only
// path that can ever create that account; once any user exists every call
// fails with ErrAlreadyInitialized regardless of input.
func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	s.bootstrapMu.Lock()
	defer s.bootstrapMu.Unlock()

	hasUsers, err := s.HasUsers(ctx)
	if err != nil {
		return nil, err
	}
	if hasUsers {
		return nil, ErrAlreadyInitialized
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Errorf("hash password: %v", err)
		return nil, ErrInternal
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		s.logger.Errorf("create user: %v", err)
		return nil, ErrInternal
	}

	s.logger.Infof("registered initial admin account %q", username)
	return sanitizeUser(user), nil
}

// Login runs the per-attempt state machine: lookup, challenge gate,
// password check, ledger record, session mint. Challenge-gated rejections
// are recorded but never count as password guesses.
func (s *AuthService) Login(ctx context.Context, username, password, ip, captchaID, captchaCode string) (string, *domain.User, error) {
	if err := validateUsername(username); err != nil {
		return "", nil, err
	}
	if err := validatePassword(password); err != nil {
		return "", nil, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Errorf("lookup user %q: %v", username, err)
		return "", nil, ErrInternal
	}

	if user == nil {
		// burn a comparison so unknown usernames cost the same as wrong
		// passwords
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		s.recordAttempt(username, ip, false, false)
		return "", nil, ErrInvalidCredentials
	}

	if s.policy.RequiresChallenge(username) {
		if captchaID == "" || !s.challenge.Verify(captchaID, captchaCode) {
			s.recordAttempt(username, ip, false, true)
			return "", nil, ErrChallengeRequired
		}
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.recordAttempt(username, ip, false, false)
		return "", nil, ErrInvalidCredentials
	}

	s.recordAttempt(username, ip, true, false)

	tok, err := s.tokens.Mint(user)
	if err != nil {
		s.logger.Errorf("mint token for %q: %v", username, err)
		return "", nil, ErrInternal
	}

	s.logger.Infof("user %q logged in from %s", username, ip)
	return tok, sanitizeUser(user), nil
}

// ChangePassword re-verifies the current password before persisting the
// new hash.
func (s *AuthService) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidCredentials
		}
		s.logger.Errorf("lookup user %q: %v", username, err)
		return ErrInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Errorf("hash password: %v", err)
		return ErrInternal
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		s.logger.Errorf("update password for %q: %v", username, err)
		return ErrInternal
	}

	s.logger.Infof("user %q changed password", username)
	return nil
}

// ChangeUsername renames the account. Tokens minted under the old name
// stay valid until expiry; VerifyToken re-resolves the current name by id.
func (s *AuthService) ChangeUsername(ctx context.Context, currentUsername, newUsername string) (*domain.User, error) {
	if err := validateUsername(newUsername); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, currentUsername)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Errorf("lookup user %q: %v", currentUsername, err)
		return nil, ErrInternal
	}

	// renaming onto the current name is a no-op
	if user.Username == newUsername {
		return sanitizeUser(user), nil
	}

	if err := s.users.UpdateUsername(ctx, user.ID, newUsername); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		s.logger.Errorf("rename user %q: %v", currentUsername, err)
		return nil, ErrInternal
	}

	s.logger.Infof("user %q renamed to %q", currentUsername, newUsername)
	user.Username = newUsername
	return sanitizeUser(user), nil
}

// GetUsers lists all accounts without password material.
func (s *AuthService) GetUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Errorf("list users: %v", err)
		return nil, ErrInternal
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// GetLoginAttempts returns up to limit attempt records, most recent first.
func (s *AuthService) GetLoginAttempts(limit int) []domain.LoginAttempt {
	return s.attempts.Recent(limit)
}

// VerifyToken checks signature and expiry, then re-resolves the account by
// its immutable id so a renamed or deleted user is never trusted from the
// token's embedded snapshot.
func (s *AuthService) VerifyToken(ctx context.Context, tokenStr string) (*domain.User, error) {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		s.logger.Errorf("resolve token user %d: %v", claims.UserID, err)
		return nil, ErrInternal
	}
	return sanitizeUser(user), nil
}

func (s *AuthService) recordAttempt(username, ip string, success, challengeRequired bool) {
	s.attempts.Record(domain.LoginAttempt{
		Username:          username,
		IP:                ip,
		Success:           success,
		ChallengeRequired: challengeRequired,
		Timestamp:         time.Now(),
	})
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-30 alphanumeric characters", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	return nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
