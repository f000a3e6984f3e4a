// Package session persists the OAuth sessions obtained during install.
//
// An offline session (one per shop, id "offline_{shop}") holds the long-lived
// access token used for Admin API calls. Online sessions are per admin user and
// expire. Storage backends are interchangeable behind Storage.
package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("session: not found")

type Session struct {
	ID          string     `json:"id"`
	Shop        string     `json:"shop"`
	State       string     `json:"state"`
	IsOnline    bool       `json:"isOnline"`
	Scope       string     `json:"scope,omitempty"`
	AccessToken string     `json:"accessToken,omitempty"`
	Expires     *time.Time `json:"expires,omitempty"`
	UserID      *int64     `json:"userId,omitempty"`
}

type Storage interface {
	StoreSession(ctx context.Context, s Session) error
	// LoadSession returns ErrNotFound when id is unknown.
	LoadSession(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessions(ctx context.Context, ids []string) error
	FindSessionsByShop(ctx context.Context, shop string) ([]Session, error)
}

func OfflineID(shop string) string {
	return "offline_" + shop
}

// IsActive reports whether the session can be used for Admin API calls: it has a
// token, has not expired and was granted every scope in required.
func (s Session) IsActive(required []string, now time.Time) bool {
	if s.AccessToken == "" {
		return false
	}
	if s.Expires != nil && !s.Expires.After(now) {
		return false
	}
	return ScopesCover(s.Scope, required)
}

// ScopesCover reports whether granted (comma separated) includes every required
// scope. A write_X grant implies read_X.
func ScopesCover(granted string, required []string) bool {
	have := map[string]bool{}
	for _, sc := range strings.Split(granted, ",") {
		sc = strings.TrimSpace(sc)
		if sc == "" {
			continue
		}
		have[sc] = true
		if rest, ok := strings.CutPrefix(sc, "write_"); ok {
			have["read_"+rest] = true
		}
	}
	for _, r := range required {
		if r = strings.TrimSpace(r); r != "" && !have[r] {
			return false
		}
	}
	return true
}
