package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/filecoin-project/go-jsonrpc/auth"
	"go.opencensus.io/trace"

	"github.com/ipfs-force-community/rebalance-gateway/types"
	"github.com/ipfs-force-community/rebalance-gateway/userstore"
)

type sessionKeyType struct{}

var sessionKey = sessionKeyType{}

func CtxWithSession(ctx context.Context, session *userstore.Session) context.Context {
	ctx = types.CtxWithSession(ctx, session.ID)
	return context.WithValue(ctx, sessionKey, session)
}

// CtxGetSession returns the session the request was authenticated with.
func CtxGetSession(ctx context.Context) (*userstore.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*userstore.Session)
	return session, ok
}

// AuthHandler authenticates requests with either the local admin token or a session token.
// With Optional set, requests without a token pass through unauthenticated.
type AuthHandler struct {
	Local    *LocalToken
	Sessions *Service
	Optional bool
	Next     http.Handler
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := trace.StartSpan(r.Context(), "AuthHandler.ServeHTTP",
		func(so *trace.StartOptions) { so.Sampler = trace.AlwaysSample() })
	defer span.End()

	token := r.Header.Get("Authorization")
	if token == "" {
		token = r.FormValue("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	ctx = types.CtxWithIP(ctx, getClientIp(r))

	if len(token) == 0 {
		switch {
		case isLoopback(r.RemoteAddr):
			// local call doesn't need a token
			ctx = auth.WithPerm(ctx, AdminPerms)
		case h.Optional:
		default:
			message := "JWT verifycation failed, empty token"
			span.SetStatus(trace.Status{Code: trace.StatusCodeUnauthenticated, Message: message})
			log.Warn(message)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		h.Next.ServeHTTP(w, r.WithContext(ctx))
		return
	}

	if !strings.HasPrefix(token, "Bearer ") {
		log.Warn("missing Bearer prefix in auth header")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	token = strings.TrimPrefix(token, "Bearer ")

	span.AddAttributes(trace.StringAttribute("X-Real-IP", r.RemoteAddr),
		trace.StringAttribute("preHost", r.Host))

	if h.Local != nil {
		if perms, err := h.Local.Verify(ctx, token); err == nil {
			span.AddAttributes(trace.StringAttribute("Account", "local"))
			h.Next.ServeHTTP(w, r.WithContext(auth.WithPerm(ctx, perms)))
			return
		}
	}

	session, err := h.Sessions.Verify(ctx, token)
	if err != nil {
		message := fmt.Sprintf("JWT Verification failed (originating from %s): %s", r.RemoteAddr, err.Error())
		span.SetStatus(trace.Status{
			Code:    trace.StatusCodeUnauthenticated,
			Message: message})
		log.Warn(message)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	span.AddAttributes(trace.StringAttribute("Session", session.ID))
	ctx = CtxWithSession(ctx, session)
	ctx = auth.WithPerm(ctx, SessionPerms)
	h.Next.ServeHTTP(w, r.WithContext(ctx))
}

func getClientIp(r *http.Request) string {
	realIp := r.Header.Get("X-Real-IP")
	if len(realIp) == 0 {
		return r.RemoteAddr
	}
	return realIp
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
