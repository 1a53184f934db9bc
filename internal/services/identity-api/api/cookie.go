package api

import (
	"net/http"
	"strings"
	"time"
)

type CookieOpts struct {
	Name   string
	Domain string
	Path   string
	Secure bool
}

func (o CookieOpts) withDefaults() CookieOpts {
	if o.Name == "" {
		o.Name = "refresh_token"
	}
	if o.Path == "" {
		o.Path = "/"
	}
	return o
}

func (o CookieOpts) refresh(raw string, ttl time.Duration, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     o.Name,
		Value:    raw,
		Path:     o.Path,
		Domain:   o.Domain,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  now.Add(ttl).UTC(),
	}
}

func (o CookieOpts) cleared() *http.Cookie {
	return &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     o.Path,
		Domain:   o.Domain,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	}
}

func parseCookie(header, name string) string {
	for _, p := range strings.Split(header, ";") {
		kv := strings.SplitN(strings.TrimSpace(p), "=", 2)
		if len(kv) == 2 && kv[0] == name {
			return kv[1]
		}
	}
	return ""
}
