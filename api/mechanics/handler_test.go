package mechanics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aapatcall/roadassist/core/model"
	"github.com/aapatcall/roadassist/core/registry"
)

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestStatusHandlerRegistersNewMechanic(t *testing.T) {
	store := registry.NewMemoryStore()
	h := NewStatusHandler(store)

	w := post(h, `{"mechanic_id":"m1","name":"Ravi","phone":"9999900001","available":true,"latitude":23.21,"longitude":77.4,"vehicle_type":"2W"}`)
	require.Equal(t, http.StatusOK, w.Code)

	m, ok := store.Get("m1")
	require.True(t, ok)
	assert.True(t, m.Available)
	assert.True(t, m.HasLocation)
	assert.Equal(t, model.VehicleTwoWheeler, m.VehicleType)
}

func TestStatusHandlerUpdatesExisting(t *testing.T) {
	store := registry.NewMemoryStore()
	store.Upsert(model.Mechanic{ID: "m1", Name: "Ravi", Available: true})
	h := NewStatusHandler(store)

	w := post(h, `{"mechanic_id":"m1","available":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	m, _ := store.Get("m1")
	assert.False(t, m.Available)
	assert.Equal(t, "Ravi", m.Name, "update must not erase the record")
}

func TestStatusHandlerErrors(t *testing.T) {
	store := registry.NewMemoryStore()
	h := NewStatusHandler(store)

	assert.Equal(t, http.StatusBadRequest, post(h, `{}`).Code, "missing mechanic_id")
	assert.Equal(t, http.StatusNotFound, post(h, `{"mechanic_id":"ghost","available":true}`).Code, "unknown without name")
	assert.Equal(t, http.StatusBadRequest, post(h, `{"mechanic_id":"m1","name":"X","vehicle_type":"boat"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h, `{"mechanic_id":"m1","name":"X","latitude":200,"longitude":0.1}`).Code)
}

func TestGetHandler(t *testing.T) {
	store := registry.NewMemoryStore()
	store.Upsert(model.Mechanic{
		ID: "m1", Name: "Ravi", Phone: "9999900001", Available: true,
		Location: model.Coordinates{Lat: 23.21, Lng: 77.4}, HasLocation: true,
	})
	r := mux.NewRouter()
	r.Handle("/api/mechanics/{id}", NewGetHandler(store)).Methods("GET")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mechanics/m1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var v mechanicView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "Ravi", v.Name)
	assert.InDelta(t, 23.21, v.Latitude, 1e-9)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mechanics/ghost", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListHandlerFilters(t *testing.T) {
	store := registry.NewMemoryStore()
	store.Upsert(model.Mechanic{ID: "m1", Name: "Ravi", Available: true, VehicleType: model.VehicleTwoWheeler})
	store.Upsert(model.Mechanic{ID: "m2", Name: "Asha", Available: false, VehicleType: model.VehicleFourWheel})
	h := NewListHandler(store)

	req := httptest.NewRequest(http.MethodGet, "/?available=true", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var views []mechanicView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "m1", views[0].MechanicID)
}
