package crmapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"praxis/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger := zerolog.New(io.Discard)
	return NewClient(srv.URL+"/", "secret", "extra", &logger), srv
}

func TestListResources_HeadersAndCache(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/api/v1/resources", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.Equal(t, "extra", r.Header.Get("x-api-extra"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = w.Write([]byte(`{"resources":[{"id":"p1","name":"Dr. Alvarez","working_days":[1,3],"working_hours":{"start_hour":8,"end_hour":16}}]}`))
	})

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client.UseRedisCache(rdb, time.Minute)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := client.ListResources(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Dr. Alvarez", got[0].Name)
		assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, got[0].WorkingDays)
		assert.Equal(t, 8, got[0].StartHour())
	}
	assert.Equal(t, int32(1), calls.Load())

	client.InvalidateResources(ctx)
	_, err := client.ListResources(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestListAppointments_SkipsMalformed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/appointments", r.URL.Path)
		assert.Equal(t, "p1,p2", r.URL.Query().Get("resource_ids"))
		assert.Equal(t, "2026-01-12T00:00:00Z", r.URL.Query().Get("start"))
		_, _ = w.Write([]byte(`{"appointments":[
			{"id":"ok","resource_id":"p1","start":"2026-01-12T10:00:00Z","end":"2026-01-12T10:30:00Z","category":"appointment","title":"Intake"},
			{"id":"inverted","resource_id":"p1","start":"2026-01-12T11:00:00Z","end":"2026-01-12T10:00:00Z"},
			{"id":"badcat","resource_id":"p1","start":"2026-01-12T12:00:00Z","end":"2026-01-12T13:00:00Z","category":"party"},
			{"id":"nocat","resource_id":"p2","start":"2026-01-12T14:00:00Z","end":"2026-01-12T15:00:00Z"}
		]}`))
	})

	start := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	got, err := client.ListAppointments(context.Background(), start, start.AddDate(0, 0, 7), []string{"p1", "p2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ok", got[0].ID)
	assert.Equal(t, 30*time.Minute, got[0].Duration())
	assert.Equal(t, "nocat", got[1].ID)
	assert.Equal(t, model.CategoryAppointment, got[1].Category)
}

func TestUpdateAppointment(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/appointments/a1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var u model.Update
		require.NoError(t, json.NewDecoder(r.Body).Decode(&u))
		require.NotNil(t, u.Start)
		require.NotNil(t, u.ResourceID)
		a := model.Appointment{ID: "a1", ResourceID: *u.ResourceID, Start: *u.Start, End: *u.End, Category: model.CategoryAppointment}
		_ = json.NewEncoder(w).Encode(a)
	})

	start := time.Date(2026, 1, 13, 14, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	rid := "p2"
	got, err := client.UpdateAppointment(context.Background(), "a1", model.Update{Start: &start, End: &end, ResourceID: &rid})
	require.NoError(t, err)
	assert.Equal(t, "p2", got.ResourceID)
	assert.True(t, got.Start.Equal(start))
}

func TestMutationErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPost:
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"slot taken"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	ctx := context.Background()

	err := client.DeleteAppointment(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	start := time.Date(2026, 1, 13, 14, 0, 0, 0, time.UTC)
	_, err = client.CreateAppointment(ctx, model.Draft{ResourceID: "p1", Start: start, End: start.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "slot taken")

	_, err = client.ListResources(ctx)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Status)
}

func TestCreateAppointment_ValidatesLocally(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { calls.Add(1) })

	start := time.Date(2026, 1, 13, 14, 0, 0, 0, time.UTC)
	_, err := client.CreateAppointment(context.Background(), model.Draft{ResourceID: "p1", Start: start, End: start})
	assert.ErrorIs(t, err, model.ErrInvalidInterval)
	assert.Equal(t, int32(0), calls.Load())
}

func TestHealthCheck(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
		}
	})
	assert.NoError(t, client.HealthCheck(context.Background()))

	down, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.Error(t, down.HealthCheck(context.Background()))
}

func TestRateLimit_CancelledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"resources":[]}`))
	})
	client.UseRateLimit(0.001, 1)

	_, err := client.ListResources(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.ListResources(ctx)
	assert.Error(t, err)
}
