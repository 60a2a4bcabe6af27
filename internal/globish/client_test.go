package globish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autobook/internal/config"
	"autobook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.GlobishConfig{
		BaseURL:     srv.URL,
		CatalogPath: "/Student/Booking/GroupClass",
		BookingPath: "/Student/Booking/GroupClass",
		LoginPath:   "/Student/Auth/Login",
		Language:    "en",
		Categories: []models.Category{
			{Name: "workshop", Type: "workshop", Campaign: "workshop"},
			{Name: "masterclass", Type: "master-class", Campaign: "master-class"},
		},
		ProbeOn:   "workshop",
		Timeout:   2 * time.Second,
		Origin:    "https://app.example.test",
		UserAgent: "test-agent",
	})
	require.NoError(t, err)
	return c
}

func TestNewClientUnknownProbe(t *testing.T) {
	_, err := NewClient(config.GlobishConfig{
		BaseURL:    "http://localhost",
		Categories: []models.Category{{Name: "workshop", Type: "workshop"}},
		ProbeOn:    "nope",
	})
	assert.Error(t, err)
}

func TestListClasses(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/Student/Booking/GroupClass", r.URL.Path)
		assert.Equal(t, "master-class", r.URL.Query().Get("type"))
		assert.Equal(t, "master-class", r.URL.Query().Get("campaign"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "https://app.example.test/", r.Header.Get("Referer"))
		_, _ = io.WriteString(w, `{"data":{"classes":[{"id":1,"topic":"Grammar","booked":false},{"id":"2","topic":"Speaking","booked":true}]}}`)
	})

	listings, err := c.ListClasses(context.Background(), c.NewSession("tok"), models.Category{Name: "masterclass", Type: "master-class", Campaign: "master-class"})
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, models.ClassListing{ID: "1", Topic: "Grammar"}, listings[0])
	assert.True(t, listings[1].Booked)
}

func TestListClassesNon2xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ListClasses(context.Background(), c.NewSession("tok"), models.Category{Name: "workshop", Type: "workshop"})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusBadGateway, te.StatusCode)
}

func TestListClassesBadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>blocked</html>")
	})

	_, err := c.ListClasses(context.Background(), c.NewSession("tok"), models.Category{Name: "workshop", Type: "workshop"})
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantErr   bool
		rejected  bool
		transport bool
	}{
		{name: "ok", status: http.StatusOK},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: true, rejected: true},
		{name: "not found", status: http.StatusNotFound, wantErr: true, rejected: true},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true, transport: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "workshop", r.URL.Query().Get("type"))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"data":{"classes":[]}}`)
			})

			err := c.Probe(context.Background(), c.NewSession("tok"))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.rejected, errors.Is(err, ErrCredentialRejected))
			var te *TransportError
			assert.Equal(t, tt.transport, errors.As(err, &te))
		})
	}
}

func TestProbeNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c, err := NewClient(config.GlobishConfig{
		BaseURL:    srv.URL,
		Categories: []models.Category{{Name: "workshop", Type: "workshop"}},
		ProbeOn:    "workshop",
	})
	require.NoError(t, err)
	srv.Close()

	err = c.Probe(context.Background(), c.NewSession("tok"))
	var te *TransportError
	assert.ErrorAs(t, err, &te)
	assert.NotErrorIs(t, err, ErrCredentialRejected)
}

func TestBook(t *testing.T) {
	t.Run("Booked", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/Student/Booking/GroupClass/42", r.URL.Path)
			_, _ = io.WriteString(w, `{"statusCode":201,"message":"created"}`)
		})

		res, err := c.Book(context.Background(), c.NewSession("tok"), "42")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeBooked, res.Outcome)
		assert.Equal(t, 201, res.StatusCode)
	})

	t.Run("RejectedDespiteHTTP200", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"statusCode":400,"message":"class is full"}`)
		})

		res, err := c.Book(context.Background(), c.NewSession("tok"), "43")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeRejected, res.Outcome)
		assert.Contains(t, string(res.Payload), "class is full")
	})

	t.Run("EmbeddedCodeWinsOverHTTPStatus", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"statusCode":409}`)
		})

		res, err := c.Book(context.Background(), c.NewSession("tok"), "44")
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeRejected, res.Outcome)
	})

	t.Run("UndecodableBody", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := c.Book(context.Background(), c.NewSession("tok"), "45")
		var te *TransportError
		assert.ErrorAs(t, err, &te)
	})
}

func TestLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/Student/Auth/Login", r.URL.Path)
			assert.Empty(t, r.Header.Get("Authorization"))
			var body loginRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alice", body.Username)
			assert.Equal(t, "pw", body.Password)
			_, _ = io.WriteString(w, `{"data":"fresh-token"}`)
		})

		token, err := c.Login(context.Background(), models.Principal{Username: "alice", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, "fresh-token", token)
	})

	t.Run("Refused", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := c.Login(context.Background(), models.Principal{Username: "alice", Password: "bad"})
		var te *TransportError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	})

	t.Run("EmptyToken", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"data":""}`)
		})

		_, err := c.Login(context.Background(), models.Principal{Username: "alice", Password: "pw"})
		assert.Error(t, err)
	})
}

func TestSessionIsImmutable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	first := c.NewSession("one")
	h := first.Header()
	h.Set("Authorization", "Bearer tampered")

	second := c.NewSession("two")
	assert.Equal(t, "Bearer one", first.Header().Get("Authorization"))
	assert.Equal(t, "Bearer two", second.Header().Get("Authorization"))
	assert.True(t, first.Authorized())
	assert.False(t, c.NewSession("").Authorized())
	assert.False(t, Session{}.Authorized())
}
