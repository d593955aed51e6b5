package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/filecoin-project/go-jsonrpc/auth"
	jwt3 "github.com/gbrlsnchs/jwt/v3"
)

const TokenFile = "token"

const (
	PermRead  auth.Permission = "read"
	PermWrite auth.Permission = "write"
	PermAdmin auth.Permission = "admin"
)

var (
	AdminPerms   = []auth.Permission{PermRead, PermWrite, PermAdmin}
	SessionPerms = []auth.Permission{PermRead, PermWrite}
)

type JWTPayload struct {
	jwt3.Payload
	Perm []auth.Permission `json:"perm,omitempty"`
}

// LocalToken is the admin token of this gateway, written to the repo for the CLI.
type LocalToken struct {
	repo   string
	Seckey []byte
	Token  []byte
}

func NewLocalToken(repo string) (*LocalToken, error) {
	var err error
	var seckey []byte
	if seckey, err = io.ReadAll(io.LimitReader(rand.Reader, 32)); err != nil {
		return nil, err
	}
	var cliToken []byte
	if cliToken, err = jwt3.Sign(JWTPayload{
		Payload: jwt3.Payload{Subject: "GateWayLocalToken", IssuedAt: jwt3.NumericDate(time.Now())},
		Perm:    AdminPerms,
	}, jwt3.NewHS256(seckey)); err != nil {
		return nil, err
	}

	return &LocalToken{
		repo:   repo,
		Seckey: seckey,
		Token:  cliToken,
	}, nil
}

func (l *LocalToken) Verify(ctx context.Context, token string) ([]auth.Permission, error) {
	var payload JWTPayload
	if _, err := jwt3.Verify([]byte(token), jwt3.NewHS256(l.Seckey), &payload); err != nil {
		return nil, fmt.Errorf("JWT Verification failed: %v", err)
	}
	perms := make([]auth.Permission, len(payload.Perm))
	copy(perms, payload.Perm)
	return perms, nil
}

func (l *LocalToken) SaveToken() error {
	return os.WriteFile(filepath.Join(l.repo, TokenFile), l.Token, 0600)
}

// ReadToken reads the admin token saved in repo.
func ReadToken(repo string) (string, error) {
	data, err := os.ReadFile(filepath.Join(repo, TokenFile))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
