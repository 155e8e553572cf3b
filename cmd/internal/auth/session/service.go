package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"warden/cmd/identity"
	"warden/cmd/security/password"
	"warden/cmd/security/token"
)

// Service implements the session lifecycle over a credential store.
//
// Operations on different users are fully independent. For the same user the
// store's conditional refresh-token update is the only synchronization point;
// the service holds no locks of its own.
type Service struct {
	log    *slog.Logger
	store  identity.Store
	tokens *token.Issuer
	hasher password.Config

	// dummyHash is verified when a login targets an unknown email so that
	// "no such user" and "wrong password" take comparable time.
	dummyHash string
}

// NewService constructs a Service with the provided configuration, store, and
// hashing policy.
func NewService(log *slog.Logger, cfg Config, store identity.Store, hasher password.Config) (*Service, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("session: nil store")
	}

	issuer, err := token.NewIssuer(cfg.TokenConfig())
	if err != nil {
		return nil, err
	}

	s := &Service{
		log:    log,
		store:  store,
		tokens: issuer,
		hasher: hasher,
	}

	if hash, err := hasher.Hash("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}

	return s, nil
}

// SignUp creates a new user with a hashed password and no active session.
//
// The plaintext password is hashed immediately and never stored or logged.
func (s *Service) SignUp(ctx context.Context, email, plainPassword string, username *string) (identity.User, error) {
	const op = "session.SignUp"

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return identity.User{}, ErrEmailTaken
	} else if !identity.IsNotFound(err) {
		return identity.User{}, internalErr(op, err)
	}

	hash, err := s.hasher.Hash(plainPassword)
	if err != nil {
		return identity.User{}, internalErr(op, err)
	}

	user, err := s.store.CreateUser(ctx, identity.CreateUserInput{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		// Lost the race against a concurrent sign-up for the same email.
		if identity.IsConflict(err) {
			return identity.User{}, ErrEmailTaken
		}
		return identity.User{}, internalErr(op, err)
	}

	s.log.Info("session.signup", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues a fresh token pair, persisting the
// refresh token on the user record. This is a rotation point: any previously
// issued refresh token for the user becomes invalid the moment the new one
// is stored.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (identity.User, token.Pair, error) {
	const op = "session.Login"

	now := time.Now().UTC()

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			if s.dummyHash != "" {
				_, _ = s.hasher.Verify(s.dummyHash, plainPassword)
			}
			return identity.User{}, token.Pair{}, ErrInvalidCredentials
		}
		return identity.User{}, token.Pair{}, internalErr(op, err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, plainPassword)
	if err != nil || !ok {
		return identity.User{}, token.Pair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email, now)
	if err != nil {
		return identity.User{}, token.Pair{}, internalErr(op, err)
	}

	if err := s.store.SaveRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return identity.User{}, token.Pair{}, internalErr(op, err)
	}

	s.log.Info("session.login", "user_id", user.ID)
	stored := pair.RefreshToken
	user.RefreshToken = &stored
	return user, pair, nil
}

// Refresh rotates the refresh token: it verifies the presented token, checks
// it against the value stored on the user record, and atomically swaps in a
// freshly issued one.
//
// Of two concurrent Refresh calls presenting the same valid token, at most
// one succeeds; the other observes a now-mismatched stored value and fails
// with ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (token.Pair, error) {
	const op = "session.Refresh"

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return token.Pair{}, ErrMissingToken
	}

	now := time.Now().UTC()

	claims, err := s.tokens.VerifyRefresh(refreshToken, now)
	if err != nil {
		// Expired and malformed both surface as ErrInvalidToken; keep the
		// distinction in logs.
		s.log.Debug("session.refresh.rejected", "reason", err.Error())
		return token.Pair{}, ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return token.Pair{}, ErrUserNotFound
		}
		return token.Pair{}, internalErr(op, err)
	}

	// Rotation check: a superseded token is invalid even while its signature
	// and expiry still verify.
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		s.log.Debug("session.refresh.rejected", "reason", "stored token mismatch", "user_id", user.ID)
		return token.Pair{}, ErrInvalidToken
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email, now)
	if err != nil {
		return token.Pair{}, internalErr(op, err)
	}

	if err := s.store.SwapRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken); err != nil {
		switch {
		case identity.IsNotCurrent(err):
			// A concurrent rotation won; this token is spent.
			s.log.Debug("session.refresh.rejected", "reason", "lost rotation race", "user_id", user.ID)
			return token.Pair{}, ErrInvalidToken
		case identity.IsNotFound(err):
			return token.Pair{}, ErrUserNotFound
		default:
			return token.Pair{}, internalErr(op, err)
		}
	}

	s.log.Info("session.refresh", "user_id", user.ID)
	return pair, nil
}

// Logout revokes the user's current session by clearing the stored refresh
// token, unconditionally: even a stale, already-rotated-out token ends the
// session of the user it decodes to. The intent is "no active session
// survives logout", not "only the matching session is revoked".
func (s *Service) Logout(ctx context.Context, refreshToken string) (string, error) {
	const op = "session.Logout"

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", ErrNotLoggedIn
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken, time.Now().UTC())
	if err != nil {
		s.log.Debug("session.logout.rejected", "reason", err.Error())
		return "", ErrInvalidToken
	}

	if err := s.store.ClearRefreshToken(ctx, claims.UserID); err != nil {
		// The user being gone already means there is no session to end.
		if !identity.IsNotFound(err) {
			return "", internalErr(op, err)
		}
	}

	s.log.Info("session.logout", "user_id", claims.UserID)
	return claims.UserID, nil
}

// VerifyAccess validates an access token and returns its claims.
// No store lookup happens here: access tokens are trusted on signature alone
// until they expire.
func (s *Service) VerifyAccess(accessToken string) (token.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccess(strings.TrimSpace(accessToken), time.Now().UTC())
	if err != nil {
		return token.AccessClaims{}, ErrInvalidToken
	}
	return claims, nil
}
