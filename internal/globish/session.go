package globish

import (
	"net/http"
	"strings"
)

// Session is the request context derived from one bearer token. It is a
// value: a refreshed token produces a new Session instead of mutating the
// headers other callers hold.
type Session struct {
	header http.Header
	token  string
}

// Header returns a copy of the headers to send with a request.
func (s Session) Header() http.Header {
	if s.header == nil {
		return http.Header{}
	}
	return s.header.Clone()
}

// Authorized reports whether the session carries a bearer token.
func (s Session) Authorized() bool {
	return strings.TrimSpace(s.token) != ""
}

// NewSession builds a Session for token on top of the client's browser headers.
func (c *Client) NewSession(token string) Session {
	h := c.baseHeader.Clone()
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return Session{header: h, token: token}
}

// browserHeader mimics the web app so requests look like the student portal.
func browserHeader(origin, userAgent, language string) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Origin", origin)
	h.Set("Referer", strings.TrimSuffix(origin, "/")+"/")
	h.Set("Priority", "u=1, i")
	h.Set("Sec-Ch-Ua", `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`)
	h.Set("Sec-Ch-Ua-Mobile", "?0")
	h.Set("Sec-Ch-Ua-Platform", `"macOS"`)
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-site")
	h.Set("User-Agent", userAgent)
	h.Set("X-Lang", language)
	h.Set("X-Requested-With", "XMLHttpRequest")
	return h
}
