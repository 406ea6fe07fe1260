package httpserver

import (
	"net/http"
	"time"

	authmw "github.com/blogplatform/auth_service/internal/middleware/auth"
)

const (
	// AccessCookie carries the access token (15 minute horizon). The guard
	// middleware owns the name; handlers must set the cookie it reads.
	AccessCookie = authmw.AccessCookie
	// RefreshCookie carries the refresh token (7 day horizon).
	RefreshCookie = "refresh-token"
)

func createCookie(name, value, path string, exp time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func deleteCookie(name, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
