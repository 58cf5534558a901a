package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/barberbooking/config"
	"github.com/Domenick1991/barberbooking/internal/bookingapi"
	"github.com/Domenick1991/barberbooking/internal/cache"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/service/reservation"
	"github.com/Domenick1991/barberbooking/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// remoteAPI is an in-memory stand-in for the booking server.
type remoteAPI struct {
	token string

	mu       sync.Mutex
	bookings []map[string]interface{}
}

func (r *remoteAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/barbershops/{id}/available-times", r.authorized(func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewEncoder(w).Encode([]string{"09:00", "09:30"})
	}))
	mux.HandleFunc("POST /api/bookings", r.authorized(func(w http.ResponseWriter, req *http.Request) {
		var body bookingapi.CreateBookingRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		booking := map[string]interface{}{
			"id":         "b-1",
			"date":       body.Date,
			"cancelled":  false,
			"service":    map[string]interface{}{"id": body.ServiceID, "name": "Corte"},
			"barbershop": map[string]interface{}{"id": "shop-1", "name": "Vintage Barber"},
		}
		r.mu.Lock()
		r.bookings = append(r.bookings, booking)
		r.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(booking)
	}))
	mux.HandleFunc("GET /api/bookings/my-bookings", r.authorized(func(w http.ResponseWriter, req *http.Request) {
		r.mu.Lock()
		defer r.mu.Unlock()
		_ = json.NewEncoder(w).Encode(r.bookings)
	}))
	return mux
}

func (r *remoteAPI) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer "+r.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, req)
	}
}

func signedToken(t *testing.T) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "ana@example.com",
		"name": "Ana",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return raw
}

func serve(t *testing.T, router http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_BookingFlow(t *testing.T) {
	token := signedToken(t)
	remote := &remoteAPI{token: token}
	server := httptest.NewServer(remote.handler())
	defer server.Close()

	storePath := filepath.Join(t.TempDir(), "session.json")
	store := cache.NewFileTokenStore(storePath, "jwtToken")
	manager := session.NewManager(store)

	client, err := bookingapi.New(server.URL, 5*time.Second, bookingapi.WithLocation(time.UTC))
	require.NoError(t, err)

	bookings := reservation.NewBookings(client, manager)
	dialogs := reservation.NewRegistry(client, manager,
		reservation.WithLocation(time.UTC),
		reservation.WithInvalidator(bookings),
	)

	cfg := &config.Config{
		Auth: config.AuthConfig{LoginURL: server.URL + "/oauth2/authorization/google", TokenParam: "token", AfterLoginURL: "/"},
	}
	router := NewRouter(cfg, Deps{
		Sessions: manager,
		Dialogs:  dialogs,
		Bookings: bookings,
		Location: time.UTC,
		Logger:   zap.NewNop(),
	})

	w := serve(t, router, "GET", "/session", nil)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())

	w = serve(t, router, "GET", "/auth/login", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, cfg.Auth.LoginURL, w.Header().Get("Location"))

	w = serve(t, router, "GET", "/auth/callback?token="+token, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	persisted, err := store.LoadToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, token, persisted)

	w = serve(t, router, "GET", "/session", nil)
	var current struct {
		Authenticated bool   `json:"authenticated"`
		Email         string `json:"email"`
		Name          string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	assert.True(t, current.Authenticated)
	assert.Equal(t, "ana@example.com", current.Email)
	assert.Equal(t, "Ana", current.Name)

	w = serve(t, router, "POST", "/reservations", gin.H{"barbershopId": "shop-1", "serviceId": "svc-1"})
	require.Equal(t, http.StatusCreated, w.Code)
	var opened struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))

	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(domain.DateLayout)
	w = serve(t, router, "PUT", "/reservations/"+opened.ID+"/date", gin.H{"date": tomorrow})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"ready"`)

	w = serve(t, router, "PUT", "/reservations/"+opened.ID+"/time", gin.H{"time": "09:30"})
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(t, router, "POST", "/reservations/"+opened.ID+"/submit", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var submitted struct {
		Message string `json:"message"`
		Date    string `json:"date"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	assert.Equal(t, reservation.MessageCreated, submitted.Message)
	assert.Equal(t, tomorrow+"T09:30:00.000Z", submitted.Date)

	w = serve(t, router, "GET", "/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Confirmed []struct {
			ID string `json:"id"`
		} `json:"confirmed"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Confirmed, 1)
	assert.Equal(t, "b-1", view.Confirmed[0].ID)

	w = serve(t, router, "POST", "/session/logout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, dialogs.Len())

	w = serve(t, router, "GET", "/bookings", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	persisted, err = store.LoadToken(context.Background())
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := NewRouter(&config.Config{}, Deps{Dialogs: reservation.NewRegistry(nil, nil)})

	w := serve(t, router, "GET", "/nowhere", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
