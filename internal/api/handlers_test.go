package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"intentlink/internal/errors"
	"intentlink/internal/intent"
	"intentlink/internal/middleware"
	"intentlink/internal/storage"
	"intentlink/internal/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*IntentionHandler, http.Handler) {
	t.Helper()
	cache, err := intent.NewDecodeCache(8)
	require.NoError(t, err)
	svc := view.NewService(cache, storage.NewMemoryKV(), view.Options{
		BaseURL:  "https://intentl.ink",
		Location: time.UTC,
		Limits:   intent.DefaultLimits,
	}, nil)

	handler := NewIntentionHandler(svc, nil)
	handler.now = func() time.Time { return fixedNow }

	mux := http.NewServeMux()
	handler.Routes(mux)
	return handler, middleware.Chain(mux, middleware.Viewer)
}

func createIntention(t *testing.T, srv http.Handler, body map[string]any) view.Shared {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intentions", bytes.NewReader(data)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var shared view.Shared
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&shared))
	return shared
}

func TestIntentionHandler_Create(t *testing.T) {
	_, srv := newTestServer(t)

	tests := []struct {
		name       string
		input      map[string]any
		wantStatus int
		wantErr    bool
	}{
		{
			name: "valid intention",
			input: map[string]any{
				"activity":    "Bouldering",
				"scheduledAt": "2025-03-14T18:00:00Z",
				"place":       "Mission Cliffs, San Francisco, CA",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing activity",
			input:      map[string]any{"scheduledAt": "2025-03-14T18:00:00Z"},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
		},
		{
			name:       "missing time",
			input:      map[string]any{"activity": "Bouldering"},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
		},
		{
			name:       "unknown field",
			input:      map[string]any{"activity": "Bouldering", "scheduledAt": "2025-03-14T18:00:00Z", "who": "me"},
			wantStatus: http.StatusBadRequest,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.input)
			require.NoError(t, err)

			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intentions", bytes.NewReader(body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			if tt.wantErr {
				var e errors.Error
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
				assert.Equal(t, errors.ErrorTypeValidation, e.Type)
				return
			}

			var shared view.Shared
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&shared))
			assert.NotEmpty(t, shared.Token)
			assert.Equal(t, "https://intentl.ink/i/"+shared.Token, shared.URL)
			assert.Equal(t, tt.input["activity"], shared.Intention.Activity)
			assert.Equal(t, fixedNow.UnixMilli(), shared.Intention.CreatedAt)
		})
	}
}

func TestIntentionHandler_Get(t *testing.T) {
	_, srv := newTestServer(t)
	shared := createIntention(t, srv, map[string]any{
		"activity":    "Bouldering",
		"scheduledAt": "2025-03-14T18:00:00Z",
		"place":       "Mission Cliffs, San Francisco, CA",
	})

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{name: "valid token", token: shared.Token, wantStatus: http.StatusOK},
		{name: "garbled token", token: "not!a!token", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/intentions/"+tt.token, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus != http.StatusOK {
				var e errors.Error
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
				assert.Equal(t, errors.ErrorTypeDecoding, e.Type)
				return
			}

			var page view.Page
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
			assert.Equal(t, "Bouldering", page.Activity)
			assert.Equal(t, "Today at 6:00 PM", page.When)
			assert.Equal(t, "San Francisco, CA", page.Place)
			assert.True(t, page.PlaceCoarsened)
			assert.False(t, page.Expired)
		})
	}
}

func TestShareLinkIsServed(t *testing.T) {
	_, srv := newTestServer(t)
	shared := createIntention(t, srv, map[string]any{
		"activity":    "Bouldering",
		"scheduledAt": "2025-03-14T18:00:00Z",
	})

	link, err := url.Parse(shared.URL)
	require.NoError(t, err)
	assert.Equal(t, "/i/"+shared.Token, link.Path)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, link.Path, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page view.Page
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, shared.Token, page.Token)
	assert.Equal(t, "Bouldering", page.Activity)
}

func TestIntentionHandler_Preview(t *testing.T) {
	_, srv := newTestServer(t)
	shared := createIntention(t, srv, map[string]any{
		"activity":    "Picnic",
		"scheduledAt": "2025-03-14T12:30:00Z",
		"place":       "Dolores Park, San Francisco",
	})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/intentions/"+shared.Token+"/preview", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var preview view.Preview
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&preview))
	assert.Equal(t, view.Preview{
		Activity: "Picnic",
		When:     "Today at 12:30 PM",
		Place:    "Dolores Park, San Francisco",
	}, preview)
}

func TestIntentionHandler_Interact(t *testing.T) {
	_, srv := newTestServer(t)
	shared := createIntention(t, srv, map[string]any{
		"activity":    "Bouldering",
		"scheduledAt": "2025-03-14T18:00:00Z",
	})
	path := "/api/intentions/" + shared.Token + "/interactions"

	interact := func(cookie *http.Cookie, kind string) (*httptest.ResponseRecorder, view.Interaction) {
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(`{"kind":"`+kind+`"}`))
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		var res view.Interaction
		if rec.Code == http.StatusOK {
			require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&res))
		}
		return rec, res
	}

	rec, first := interact(nil, "interested")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, first.Accepted)
	assert.Equal(t, 1, first.Stats.InterestedCount)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	viewer := cookies[0]

	_, again := interact(viewer, "interested")
	assert.False(t, again.Accepted)
	assert.Equal(t, intent.KindInterested, again.Choice)
	assert.Equal(t, 1, again.Stats.InterestedCount)

	_, other := interact(nil, "here")
	assert.True(t, other.Accepted)
	assert.Equal(t, intent.InteractionStats{InterestedCount: 1, HereCount: 1}, other.Stats)

	rec, _ = interact(viewer, "maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/intentions/"+shared.Token+"/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats intent.InteractionStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, other.Stats, stats)
}

func TestIntentionHandler_InteractExpired(t *testing.T) {
	handler, srv := newTestServer(t)
	shared := createIntention(t, srv, map[string]any{
		"activity":    "Bouldering",
		"scheduledAt": "2025-03-14T13:00:00Z",
	})

	handler.now = func() time.Time { return fixedNow.Add(4 * time.Hour) }

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/intentions/"+shared.Token+"/interactions",
		bytes.NewBufferString(`{"kind":"interested"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/intentions/"+shared.Token, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var page view.Page
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.True(t, page.Expired)
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}
