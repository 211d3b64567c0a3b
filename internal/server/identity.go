package server

import (
	"context"
	"net/http"

	"tailscale.com/client/local"
)

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	userInfoKey contextKey = "user_info"
)

// UserInfo is the identity attached to a request by the identity middleware.
type UserInfo struct {
	Login       string `json:"login"`
	DisplayName string `json:"display_name"`
}

// devUserInfo is the identity used when no Tailscale client is configured.
var devUserInfo = UserInfo{Login: "local", DisplayName: "Local Dev User"}

// SetTailscale configures WhoIs-based identity resolution. Without it every
// request is attributed to the dev user.
func (s *Server) SetTailscale(lc *local.Client) {
	s.lc = lc
}

// userIDFromContext returns the user ID set by identity middleware, or 1.
func userIDFromContext(r *http.Request) int {
	if id, ok := r.Context().Value(userIDKey).(int); ok {
		return id
	}
	return 1
}

// userInfoFromContext returns the identity set by identity middleware, or
// the dev user.
func userInfoFromContext(r *http.Request) UserInfo {
	if info, ok := r.Context().Value(userInfoKey).(UserInfo); ok {
		return info
	}
	return devUserInfo
}

// identity resolves the requesting user. Behind tsnet, WhoIs maps the remote
// address to a tailnet login and the user row is created on first sight. In
// dev mode everything maps to user 1.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.lc == nil {
			next.ServeHTTP(w, withIdentity(r, 1, devUserInfo))
			return
		}

		whois, err := s.lc.WhoIs(r.Context(), r.RemoteAddr)
		if err != nil || whois.UserProfile == nil {
			s.log.Warn("whois failed", "remote", r.RemoteAddr, "error", err)
			http.Error(w, `{"error":"identity unavailable"}`, http.StatusForbidden)
			return
		}

		info := UserInfo{
			Login:       whois.UserProfile.LoginName,
			DisplayName: whois.UserProfile.DisplayName,
		}
		userID := 1
		if s.db != nil {
			userID, err = s.db.GetOrCreateUser(r.Context(), info.Login, info.DisplayName)
			if err != nil {
				s.log.Error("user lookup failed", "login", info.Login, "error", err)
				http.Error(w, `{"error":"identity unavailable"}`, http.StatusInternalServerError)
				return
			}
		}

		next.ServeHTTP(w, withIdentity(r, userID, info))
	})
}

// DevIdentity attributes every request to user 1 with the dev identity.
// Used in tests and by tools that bypass the full identity middleware.
func DevIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, withIdentity(r, 1, devUserInfo))
	})
}

func withIdentity(r *http.Request, userID int, info UserInfo) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	ctx = context.WithValue(ctx, userInfoKey, info)
	return r.WithContext(ctx)
}

// handleMe reports the resolved identity of the caller.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userInfoFromContext(r))
}
