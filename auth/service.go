package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt3 "github.com/gbrlsnchs/jwt/v3"
	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/ipfs-force-community/rebalance-gateway/userstore"
)

var log = logging.Logger("auth")

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid session token")
)

type SignupRequest struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Password      string  `json:"password"`
	WalletAddress *string `json:"walletAddress"`
}

// Token is an issued session token and the session it stands for.
type Token struct {
	Token   string
	Session *userstore.Session
}

// Service issues and verifies sessions.
type Service struct {
	handle *userstore.Handle
	alg    *jwt3.HMACSHA
	ttl    time.Duration
}

func NewService(handle *userstore.Handle, secret []byte, ttl time.Duration) *Service {
	return &Service{
		handle: handle,
		alg:    jwt3.NewHS256(secret),
		ttl:    ttl,
	}
}

func (s *Service) Signup(ctx context.Context, req *SignupRequest) (*userstore.User, error) {
	if len(strings.TrimSpace(req.Name)) == 0 || len(strings.TrimSpace(req.Email)) == 0 || len(req.Password) == 0 {
		return nil, ErrMissingFields
	}
	store, err := s.handle.Get(ctx)
	if err != nil {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now()
	user := &userstore.User{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.TrimSpace(req.Email),
		PasswordHash:  hash,
		WalletAddress: req.WalletAddress,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	log.Infow("user signed up", "user", user.ID)
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	store, err := s.handle.Get(ctx)
	if err != nil {
		return nil, err
	}
	user, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, store, &userstore.Session{
		UserID:        user.ID,
		Email:         user.Email,
		WalletAddress: user.WalletAddress,
	})
}

// Guest issues a session that belongs to no user.
func (s *Service) Guest(ctx context.Context) (*Token, error) {
	store, err := s.handle.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, store, &userstore.Session{})
}

func (s *Service) issue(ctx context.Context, store *userstore.Store, session *userstore.Session) (*Token, error) {
	now := time.Now()
	session.ID = uuid.New().String()
	session.CreatedAt = now
	session.ExpiresAt = now.Add(s.ttl)
	if err := store.PutSession(ctx, session); err != nil {
		return nil, err
	}

	token, err := jwt3.Sign(JWTPayload{
		Payload: jwt3.Payload{
			Subject:        session.UserID,
			JWTID:          session.ID,
			IssuedAt:       jwt3.NumericDate(now),
			ExpirationTime: jwt3.NumericDate(session.ExpiresAt),
		},
		Perm: SessionPerms,
	}, s.alg)
	if err != nil {
		return nil, err
	}
	return &Token{Token: string(token), Session: session}, nil
}

// Verify checks the token and loads the live session it names.
func (s *Service) Verify(ctx context.Context, token string) (*userstore.Session, error) {
	var payload JWTPayload
	now := time.Now()
	if _, err := jwt3.Verify([]byte(token), s.alg, &payload,
		jwt3.ValidatePayload(&payload.Payload, jwt3.ExpirationTimeValidator(now))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	store, err := s.handle.Get(ctx)
	if err != nil {
		return nil, err
	}
	session, err := store.GetSession(ctx, payload.JWTID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s not found", ErrInvalidToken, payload.JWTID)
		}
		return nil, err
	}
	return session, nil
}

// Logout removes the session so its token stops working.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	store, err := s.handle.Get(ctx)
	if err != nil {
		return err
	}
	return store.DeleteSession(ctx, sessionID)
}
