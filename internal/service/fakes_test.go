package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"autobook/internal/config"
	"autobook/internal/globish"
	"autobook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testCategories = []models.Category{
	{Name: "workshop", Type: "workshop", Campaign: "workshop"},
	{Name: "masterclass", Type: "master-class", Campaign: "master-class"},
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// sessionFactory builds real sessions; it never sends requests.
func sessionFactory(t *testing.T) *globish.Client {
	t.Helper()
	c, err := globish.NewClient(config.GlobishConfig{
		BaseURL:    "http://globish.invalid",
		Categories: testCategories,
		ProbeOn:    "workshop",
	})
	require.NoError(t, err)
	return c
}

type countingPacer struct {
	mu    sync.Mutex
	waits int
}

func (c *countingPacer) pacer() *Pacer {
	return &Pacer{delay: time.Second, sleep: func(ctx context.Context, _ time.Duration) error {
		c.mu.Lock()
		c.waits++
		c.mu.Unlock()
		return ctx.Err()
	}}
}

func (c *countingPacer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waits
}

type fakeAuthClient struct {
	sessions *globish.Client

	// probeResults are consumed in order; once exhausted the last one repeats
	probeResults []error
	probeTokens  []string

	loginToken string
	loginErr   error
	loginCalls int
}

func (f *fakeAuthClient) NewSession(token string) globish.Session {
	return f.sessions.NewSession(token)
}

func (f *fakeAuthClient) Probe(_ context.Context, sess globish.Session) error {
	f.probeTokens = append(f.probeTokens, sess.Header().Get("Authorization"))
	if len(f.probeResults) == 0 {
		return nil
	}
	res := f.probeResults[0]
	if len(f.probeResults) > 1 {
		f.probeResults = f.probeResults[1:]
	}
	return res
}

func (f *fakeAuthClient) Login(_ context.Context, _ models.Principal) (string, error) {
	f.loginCalls++
	return f.loginToken, f.loginErr
}

type fakeAuthenticator struct {
	err     error
	calls   int
	session globish.Session
}

func (f *fakeAuthenticator) EnsureValid(context.Context) error {
	f.calls++
	return f.err
}

func (f *fakeAuthenticator) Session() globish.Session { return f.session }

type fakeRemote struct {
	listings map[string][]models.ClassListing
	listErr  map[string]error
	rejected map[models.ListingID]bool
	bookErr  map[models.ListingID]error

	listed []string
	booked []models.ListingID
	auths  []string
}

func (f *fakeRemote) ListClasses(_ context.Context, sess globish.Session, category models.Category) ([]models.ClassListing, error) {
	f.listed = append(f.listed, category.Name)
	f.auths = append(f.auths, sess.Header().Get("Authorization"))
	if err := f.listErr[category.Name]; err != nil {
		return nil, err
	}
	return f.listings[category.Name], nil
}

func (f *fakeRemote) Book(_ context.Context, sess globish.Session, id models.ListingID) (globish.BookResult, error) {
	f.booked = append(f.booked, id)
	f.auths = append(f.auths, sess.Header().Get("Authorization"))
	if err := f.bookErr[id]; err != nil {
		return globish.BookResult{}, err
	}
	if f.rejected[id] {
		return globish.BookResult{
			Outcome:    models.OutcomeRejected,
			StatusCode: http.StatusBadRequest,
			Payload:    []byte(`{"statusCode":400,"message":"full"}`),
		}, nil
	}
	return globish.BookResult{Outcome: models.OutcomeBooked, StatusCode: models.BookedStatusCode}, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *mockNotifier) texts() []string {
	var out []string
	for _, c := range m.Calls {
		if c.Method == "Send" {
			out = append(out, c.Arguments.String(1))
		}
	}
	return out
}

func newMockNotifier() *mockNotifier {
	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything).Return(nil)
	return n
}

type recordingGuard struct {
	prior   bool
	raised  []string
	checks  int
	raiseFn func(reason string) error
}

func (g *recordingGuard) HasPriorCrash(context.Context) (bool, error) {
	g.checks++
	return g.prior, nil
}

func (g *recordingGuard) Raise(_ context.Context, reason string) error {
	g.raised = append(g.raised, reason)
	if g.raiseFn != nil {
		return g.raiseFn(reason)
	}
	return nil
}

func (g *recordingGuard) Clear(context.Context) error {
	g.prior = false
	return nil
}

type capturedEvent struct {
	Type    string
	Payload interface{}
}

type recordingBus struct {
	events []capturedEvent
}

func (b *recordingBus) PublishJSON(eventType string, payload interface{}) error {
	b.events = append(b.events, capturedEvent{Type: eventType, Payload: payload})
	return nil
}

func (b *recordingBus) types() []string {
	var out []string
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}
