package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ipfs-force-community/rebalance-gateway/auth"
	"github.com/ipfs-force-community/rebalance-gateway/userstore"
)

type userView struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	WalletAddress *string `json:"walletAddress"`
}

func newUserView(u *userstore.User) *userView {
	return &userView{ID: u.ID, Name: u.Name, Email: u.Email, WalletAddress: u.WalletAddress}
}

type tokenView struct {
	Token     string  `json:"token"`
	SessionID string  `json:"sessionId"`
	ExpiresAt string  `json:"expiresAt"`
	User      *string `json:"userId"`
}

func newTokenView(t *auth.Token) *tokenView {
	view := &tokenView{
		Token:     t.Token,
		SessionID: t.Session.ID,
		ExpiresAt: t.Session.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if t.Session.Authenticated() {
		view.User = &t.Session.UserID
	}
	return view
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Errorf("signup error: %v", err)
		writeJSON(w, http.StatusInternalServerError, message{"Something went wrong"})
		return
	}
	if req.WalletAddress != nil && len(*req.WalletAddress) == 0 {
		req.WalletAddress = nil
	}

	user, err := s.sessions.Signup(r.Context(), &req)
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		writeJSON(w, http.StatusBadRequest, message{"Missing required fields"})
	case errors.Is(err, userstore.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, message{"User with this email already exists"})
	case err != nil:
		log.Errorf("signup error: %v", err)
		writeJSON(w, http.StatusInternalServerError, message{"Something went wrong"})
	default:
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "User created successfully",
			"user":    newUserView(user),
		})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, message{"Missing required fields"})
		return
	}
	token, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, message{"Invalid email or password"})
	case err != nil:
		log.Errorf("login error: %v", err)
		writeJSON(w, http.StatusInternalServerError, message{"Something went wrong"})
	default:
		writeJSON(w, http.StatusOK, newTokenView(token))
	}
}

func (s *Server) guest(w http.ResponseWriter, r *http.Request) {
	token, err := s.sessions.Guest(r.Context())
	if err != nil {
		log.Errorf("guest session error: %v", err)
		writeJSON(w, http.StatusInternalServerError, message{"Something went wrong"})
		return
	}
	writeJSON(w, http.StatusOK, newTokenView(token))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.CtxGetSession(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, message{"Unauthorized"})
		return
	}
	if err := s.sessions.Logout(r.Context(), session.ID); err != nil {
		log.Errorf("logout error: %v", err)
		writeJSON(w, http.StatusInternalServerError, message{"Something went wrong"})
		return
	}
	writeJSON(w, http.StatusOK, message{"Signed out"})
}

type walletRequest struct {
	WalletAddress string `json:"walletAddress"`
}

type walletResponse struct {
	Message       string  `json:"message,omitempty"`
	WalletAddress *string `json:"walletAddress"`
}

// setWallet links an address to the signed-in user and refreshes the session copy.
func (s *Server) setWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := auth.CtxGetSession(ctx)
	if !ok || !session.Authenticated() {
		writeJSON(w, http.StatusUnauthorized, message{"Unauthorized"})
		return
	}

	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.WalletAddress) == 0 {
		writeJSON(w, http.StatusBadRequest, message{"Wallet address is required"})
		return
	}
	if !common.IsHexAddress(req.WalletAddress) {
		writeJSON(w, http.StatusBadRequest, message{"Invalid wallet address"})
		return
	}

	store, err := s.handle.Get(ctx)
	if err != nil {
		log.Errorf("open store: %v", err)
		writeJSON(w, http.StatusInternalServerError, message{"Failed to update wallet address"})
		return
	}
	user, err := store.SetUserWallet(ctx, session.UserID, req.WalletAddress)
	if err != nil {
		log.Errorf("update wallet of %s: %v", session.UserID, err)
		writeJSON(w, http.StatusInternalServerError, message{"Failed to update wallet address"})
		return
	}
	if err := store.SetSessionWallet(ctx, session.ID, req.WalletAddress); err != nil {
		log.Warnf("refresh session %s wallet: %v", session.ID, err)
	}
	writeJSON(w, http.StatusOK, walletResponse{Message: "Wallet address updated", WalletAddress: user.WalletAddress})
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, ok := auth.CtxGetSession(ctx)
	if !ok || !session.Authenticated() {
		writeJSON(w, http.StatusUnauthorized, message{"Unauthorized"})
		return
	}
	store, err := s.handle.Get(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, message{"Something went wrong"})
		return
	}
	user, err := store.GetUser(ctx, session.UserID)
	if err != nil {
		log.Errorf("load user %s: %v", session.UserID, err)
		writeJSON(w, http.StatusInternalServerError, message{"Something went wrong"})
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{WalletAddress: user.WalletAddress})
}
