// iNethi Management Backend - Community Network Monitoring
// Copyright 2026 iNethi Network CIC
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/inethi/manage-backend

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/inethi/manage-backend/internal/auth"
	"github.com/inethi/manage-backend/internal/config"
	"github.com/inethi/manage-backend/internal/database"
	"github.com/inethi/manage-backend/internal/metricsdb"
	"github.com/inethi/manage-backend/internal/models"
)

type fakeRegistry struct {
	meshes    map[string]models.Mesh
	settings  map[string]models.MeshSettings
	nodes     map[string]models.Node
	unknown   map[string]models.UnknownNode
	alerts    map[int64]models.Alert
	sessions  []models.ClientSession
	wlanconfs map[int64]models.WlanConf
	pingErr   error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		meshes:    map[string]models.Mesh{},
		settings:  map[string]models.MeshSettings{},
		nodes:     map[string]models.Node{},
		unknown:   map[string]models.UnknownNode{},
		alerts:    map[int64]models.Alert{},
		wlanconfs: map[int64]models.WlanConf{},
	}
}

func (f *fakeRegistry) Ping(context.Context) error { return f.pingErr }

func (f *fakeRegistry) CreateMesh(_ context.Context, m *models.Mesh) error {
	f.meshes[m.Name] = *m
	f.settings[m.Name] = models.MeshSettings{Mesh: m.Name, AlertsEnabled: true}
	return nil
}

func (f *fakeRegistry) GetMesh(_ context.Context, name string) (*models.Mesh, error) {
	m, ok := f.meshes[name]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &m, nil
}

func (f *fakeRegistry) ListMeshes(context.Context) ([]models.Mesh, error) {
	var out []models.Mesh
	for _, m := range f.meshes {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeRegistry) UpdateMesh(_ context.Context, m *models.Mesh) error {
	if _, ok := f.meshes[m.Name]; !ok {
		return database.ErrNotFound
	}
	f.meshes[m.Name] = *m
	return nil
}

func (f *fakeRegistry) DeleteMesh(_ context.Context, name string) error {
	if _, ok := f.meshes[name]; !ok {
		return database.ErrNotFound
	}
	delete(f.meshes, name)
	return nil
}

func (f *fakeRegistry) GetMeshSettings(_ context.Context, mesh string) (*models.MeshSettings, error) {
	s, ok := f.settings[mesh]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &s, nil
}

func (f *fakeRegistry) UpdateMeshSettings(_ context.Context, s *models.MeshSettings) error {
	if _, ok := f.settings[s.Mesh]; !ok {
		return database.ErrNotFound
	}
	f.settings[s.Mesh] = *s
	return nil
}

func (f *fakeRegistry) CreateNode(_ context.Context, n *models.Node) error {
	f.nodes[n.MAC] = *n
	return nil
}

func (f *fakeRegistry) GetNode(_ context.Context, mac string) (*models.Node, error) {
	n, ok := f.nodes[mac]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &n, nil
}

func (f *fakeRegistry) ListNodes(_ context.Context, mesh string) ([]models.Node, error) {
	var out []models.Node
	for _, n := range f.nodes {
		if mesh == "" || n.Mesh == mesh {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeRegistry) ListMeshMACs(_ context.Context, mesh string) ([]string, error) {
	var out []string
	for _, n := range f.nodes {
		if n.Mesh == mesh {
			out = append(out, n.MAC)
		}
	}
	return out, nil
}

func (f *fakeRegistry) UpdateNode(_ context.Context, n *models.Node) error {
	if _, ok := f.nodes[n.MAC]; !ok {
		return database.ErrNotFound
	}
	f.nodes[n.MAC] = *n
	return nil
}

func (f *fakeRegistry) DeleteNode(_ context.Context, mac string) error {
	if _, ok := f.nodes[mac]; !ok {
		return database.ErrNotFound
	}
	delete(f.nodes, mac)
	return nil
}

func (f *fakeRegistry) SetRebootFlag(_ context.Context, mac string, flag bool) error {
	n, ok := f.nodes[mac]
	if !ok {
		return database.ErrNotFound
	}
	n.RebootFlag = flag
	f.nodes[mac] = n
	return nil
}

func (f *fakeRegistry) ConsumeRebootFlag(_ context.Context, mac string) (bool, error) {
	n, ok := f.nodes[mac]
	if !ok {
		return false, database.ErrNotFound
	}
	flag := n.RebootFlag
	n.RebootFlag = false
	f.nodes[mac] = n
	return flag, nil
}

func (f *fakeRegistry) TouchNodeContact(_ context.Context, mac, ip string, when time.Time) error {
	n, ok := f.nodes[mac]
	if !ok {
		return database.ErrNotFound
	}
	n.LastContact = &when
	n.IP = ip
	n.Status = models.StatusOnline
	f.nodes[mac] = n
	return nil
}

func (f *fakeRegistry) UpsertUnknownNode(_ context.Context, u *models.UnknownNode) (bool, error) {
	_, existed := f.unknown[u.MAC]
	f.unknown[u.MAC] = *u
	return !existed, nil
}

func (f *fakeRegistry) ListUnknownNodes(context.Context) ([]models.UnknownNode, error) {
	var out []models.UnknownNode
	for _, u := range f.unknown {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeRegistry) ListAlerts(_ context.Context, fl database.AlertFilter) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range f.alerts {
		if fl.Mesh != "" && a.Mesh != fl.Mesh {
			continue
		}
		if fl.Resolved != nil && a.Resolved() != *fl.Resolved {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRegistry) GetAlert(_ context.Context, id int64) (*models.Alert, error) {
	a, ok := f.alerts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &a, nil
}

func (f *fakeRegistry) UpdateAlert(_ context.Context, a *models.Alert) error {
	if _, ok := f.alerts[a.ID]; !ok {
		return database.ErrNotFound
	}
	f.alerts[a.ID] = *a
	return nil
}

func (f *fakeRegistry) ListClientSessions(_ context.Context, fl database.SessionFilter) ([]models.ClientSession, error) {
	var out []models.ClientSession
	for _, s := range f.sessions {
		if fl.Username != "" && s.Username != fl.Username {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRegistry) UserUsageTotals(context.Context) ([]models.UserUsage, error) {
	return nil, nil
}

func (f *fakeRegistry) CreateWlanConf(_ context.Context, w *models.WlanConf) error {
	w.ID = int64(len(f.wlanconfs) + 1)
	f.wlanconfs[w.ID] = *w
	return nil
}

func (f *fakeRegistry) GetWlanConf(_ context.Context, id int64) (*models.WlanConf, error) {
	c, ok := f.wlanconfs[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &c, nil
}

func (f *fakeRegistry) ListWlanConfs(_ context.Context, mesh string) ([]models.WlanConf, error) {
	var out []models.WlanConf
	for _, c := range f.wlanconfs {
		if mesh == "" || c.Mesh == mesh {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRegistry) DeleteWlanConf(_ context.Context, id int64) error {
	if _, ok := f.wlanconfs[id]; !ok {
		return database.ErrNotFound
	}
	delete(f.wlanconfs, id)
	return nil
}

type fakeMetricStore struct {
	resources []models.ResourcesMetric
	uptime    []models.UptimeMetric
}

func (f *fakeMetricStore) Ping(context.Context) error { return nil }

func (f *fakeMetricStore) QueryUptime(_ context.Context, fl metricsdb.Filter) ([]models.UptimeMetric, error) {
	var out []models.UptimeMetric
	for _, m := range f.uptime {
		if matchesFilter(m.MAC, fl) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMetricStore) QueryRTT(context.Context, metricsdb.Filter) ([]models.RTTMetric, error) {
	return nil, nil
}

func (f *fakeMetricStore) QueryResources(context.Context, metricsdb.Filter) ([]models.ResourcesMetric, error) {
	return nil, nil
}

func (f *fakeMetricStore) QueryDataUsage(context.Context, metricsdb.Filter) ([]models.DataUsageMetric, error) {
	return nil, nil
}

func (f *fakeMetricStore) QueryDataRate(context.Context, metricsdb.Filter) ([]models.DataRateMetric, error) {
	return nil, nil
}

func (f *fakeMetricStore) QueryFailures(context.Context, metricsdb.Filter) ([]models.FailuresMetric, error) {
	return nil, nil
}

func (f *fakeMetricStore) InsertResources(_ context.Context, m *models.ResourcesMetric) error {
	f.resources = append(f.resources, *m)
	return nil
}

func (f *fakeMetricStore) LatestResources(context.Context, string) (*models.ResourcesMetric, error) {
	if len(f.resources) == 0 {
		return nil, nil
	}
	return &f.resources[len(f.resources)-1], nil
}

func (f *fakeMetricStore) LatestRTT(context.Context, string) (*models.RTTMetric, error) {
	return nil, nil
}

func matchesFilter(mac string, fl metricsdb.Filter) bool {
	if fl.MAC != "" {
		return mac == fl.MAC
	}
	if len(fl.MACs) > 0 {
		for _, m := range fl.MACs {
			if m == mac {
				return true
			}
		}
		return false
	}
	return true
}

type denyAdminAuthenticator struct{}

func (denyAdminAuthenticator) Authenticate(context.Context, *http.Request) (*auth.Subject, error) {
	return &auth.Subject{Username: "viewer", Roles: []string{"viewer"}}, nil
}

func (denyAdminAuthenticator) Name() string { return "viewer-stub" }

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		DefaultPageSize: 100,
		MaxPageSize:     1000,
		RateLimitReqs:   1000,
		RateLimitWindow: time.Minute,
		ReportMinGap:    time.Minute,
	}
}

func testChecks() config.ChecksConfig {
	return config.ChecksConfig{
		CPUMax:         80,
		MemMax:         70,
		RTTMax:         40,
		LastPingMax:    20 * time.Minute,
		LastContactMax: 5 * time.Minute,
	}
}

// testServer builds a router with the none authenticator (anonymous admin).
func testServer(reg *fakeRegistry, store *fakeMetricStore) (*Handlers, http.Handler) {
	h := NewHandlers(reg, store, nil, testAPIConfig(), testChecks())
	router := NewRouter(h, auth.NewMiddleware(auth.NoneAuthenticator{}, ""), nil)
	return h, router
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var envelope models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v (body %s)", err, rec.Body.String())
	}
	return envelope
}

func TestNodeCRUD(t *testing.T) {
	reg := newFakeRegistry()
	_, router := testServer(reg, &fakeMetricStore{})

	t.Run("create", func(t *testing.T) {
		body := `{"mac":"6c:75:14:7d:65:d4","name":"gateway","mesh":"ocean-view"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/nodes", strings.NewReader(body)))
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
		if _, ok := reg.nodes["6c:75:14:7d:65:d4"]; !ok {
			t.Error("node not stored")
		}
	})

	t.Run("duplicate rejected", func(t *testing.T) {
		body := `{"mac":"6c:75:14:7d:65:d4","name":"again"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/nodes", strings.NewReader(body)))
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("invalid mac rejected", func(t *testing.T) {
		body := `{"mac":"not-a-mac","name":"broken"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/nodes", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		if envelope := decodeEnvelope(t, rec); envelope.Error == nil || envelope.Error.Code != models.ErrCodeValidation {
			t.Errorf("error = %+v", envelope.Error)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/monitoring/nodes/aa:aa:aa:aa:aa:aa", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/monitoring/nodes/6c:75:14:7d:65:d4", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
		if len(reg.nodes) != 0 {
			t.Error("node not deleted")
		}
	})
}

func TestOverview(t *testing.T) {
	reg := newFakeRegistry()
	lat, lon := -34.03, 18.35
	reg.nodes["6c:75:14:7d:65:d4"] = models.Node{
		MAC: "6c:75:14:7d:65:d4", Mesh: "ocean-view",
		Lat: &lat, Lon: &lon, HealthStatus: models.HealthOK,
	}
	reg.nodes["6c:75:14:7d:65:d5"] = models.Node{
		MAC: "6c:75:14:7d:65:d5", Mesh: "ocean-view",
		HealthStatus: models.HealthWarning,
	}
	// Latitude without longitude does not count as positioned.
	reg.nodes["6c:75:14:7d:65:d6"] = models.Node{
		MAC: "6c:75:14:7d:65:d6", Mesh: "delft",
		Lat: &lat, HealthStatus: models.HealthOK,
	}
	reg.unknown["aa:bb:cc:dd:ee:ff"] = models.UnknownNode{MAC: "aa:bb:cc:dd:ee:ff"}
	_, router := testServer(reg, &fakeMetricStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/monitoring/overview", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	envelope := decodeEnvelope(t, rec)
	counters, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T", envelope.Data)
	}
	want := map[string]float64{
		"n_nodes":            3,
		"n_positioned_nodes": 1,
		"n_unknown_nodes":    1,
		"n_ok_nodes":         2,
	}
	for key, n := range want {
		if got, _ := counters[key].(float64); got != n {
			t.Errorf("%s = %v, want %v", key, counters[key], n)
		}
	}
}

func TestNodeReport(t *testing.T) {
	t.Run("known node", func(t *testing.T) {
		reg := newFakeRegistry()
		reg.nodes["6c:75:14:7d:65:d4"] = models.Node{MAC: "6c:75:14:7d:65:d4", RebootFlag: true}
		store := &fakeMetricStore{}
		_, router := testServer(reg, store)

		body := `{"ip":"10.0.0.9","memory":55.5,"cpu":12.0}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
			"/api/v1/monitoring/nodes/6c:75:14:7d:65:d4/report", strings.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
		}
		envelope := decodeEnvelope(t, rec)
		data := envelope.Data.(map[string]any)
		if data["reboot"] != true {
			t.Errorf("reboot = %v, want true", data["reboot"])
		}

		node := reg.nodes["6c:75:14:7d:65:d4"]
		if node.RebootFlag {
			t.Error("reboot flag not consumed")
		}
		if node.Status != models.StatusOnline || node.LastContact == nil || node.IP != "10.0.0.9" {
			t.Errorf("contact not recorded: %+v", node)
		}
		if len(store.resources) != 1 || store.resources[0].Memory != 55.5 || store.resources[0].CPU != 12.0 {
			t.Errorf("resources = %+v", store.resources)
		}
	})

	t.Run("unknown mac parked", func(t *testing.T) {
		reg := newFakeRegistry()
		_, router := testServer(reg, &fakeMetricStore{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
			"/api/v1/monitoring/nodes/aa:bb:cc:dd:ee:ff/report", strings.NewReader(`{"ip":"10.0.0.50"}`)))

		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", rec.Code)
		}
		u, ok := reg.unknown["aa:bb:cc:dd:ee:ff"]
		if !ok || u.FromIP != "10.0.0.50" {
			t.Errorf("unknown node = %+v", u)
		}
	})

	t.Run("throttled within gap", func(t *testing.T) {
		reg := newFakeRegistry()
		reg.nodes["6c:75:14:7d:65:d4"] = models.Node{MAC: "6c:75:14:7d:65:d4", RebootFlag: true}
		store := &fakeMetricStore{}
		h, router := testServer(reg, store)

		base := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
		h.now = func() time.Time { return base }

		first := httptest.NewRecorder()
		router.ServeHTTP(first, httptest.NewRequest(http.MethodPost,
			"/api/v1/monitoring/nodes/6c:75:14:7d:65:d4/report", strings.NewReader(`{"memory":10}`)))
		if first.Code != http.StatusOK {
			t.Fatalf("first status = %d", first.Code)
		}

		// 5 seconds later: inside the 1 minute gap, nothing written.
		h.now = func() time.Time { return base.Add(5 * time.Second) }
		second := httptest.NewRecorder()
		router.ServeHTTP(second, httptest.NewRequest(http.MethodPost,
			"/api/v1/monitoring/nodes/6c:75:14:7d:65:d4/report", strings.NewReader(`{"memory":20}`)))
		if second.Code != http.StatusOK {
			t.Fatalf("second status = %d", second.Code)
		}
		if len(store.resources) != 1 {
			t.Errorf("resources = %d rows, want 1", len(store.resources))
		}

		// After the gap the next report lands again.
		h.now = func() time.Time { return base.Add(2 * time.Minute) }
		third := httptest.NewRecorder()
		router.ServeHTTP(third, httptest.NewRequest(http.MethodPost,
			"/api/v1/monitoring/nodes/6c:75:14:7d:65:d4/report", strings.NewReader(`{"memory":30}`)))
		if third.Code != http.StatusOK || len(store.resources) != 2 {
			t.Errorf("third status = %d resources = %d", third.Code, len(store.resources))
		}
	})
}

func TestResolveAlert(t *testing.T) {
	reg := newFakeRegistry()
	reg.alerts[7] = models.Alert{
		ID: 7, Level: models.LevelCritical, Status: models.AlertNew,
		Title: models.TitleOffline, Text: "down", Mesh: "ocean-view",
	}
	_, router := testServer(reg, &fakeMetricStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/alerts/7/resolve", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	resolved := reg.alerts[7]
	if !resolved.Resolved() {
		t.Error("alert not resolved")
	}
	if !strings.Contains(reg.alerts[7].Text, "Resolved this alert") {
		t.Errorf("text = %q", reg.alerts[7].Text)
	}

	// Resolving again stays resolved and succeeds.
	again := httptest.NewRecorder()
	router.ServeHTTP(again, httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/alerts/7/resolve", nil))
	if again.Code != http.StatusOK {
		t.Errorf("second resolve status = %d", again.Code)
	}
}

func TestMetricQueryMeshFilter(t *testing.T) {
	reg := newFakeRegistry()
	reg.nodes["aa:aa:aa:aa:aa:01"] = models.Node{MAC: "aa:aa:aa:aa:aa:01", Mesh: "ocean-view"}
	reg.nodes["aa:aa:aa:aa:aa:02"] = models.Node{MAC: "aa:aa:aa:aa:aa:02", Mesh: "other"}
	store := &fakeMetricStore{uptime: []models.UptimeMetric{
		{MAC: "aa:aa:aa:aa:aa:01", Reachable: true},
		{MAC: "aa:aa:aa:aa:aa:02", Reachable: true},
	}}
	_, router := testServer(reg, store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/metrics/uptime?mesh=ocean-view", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	envelope := decodeEnvelope(t, rec)
	rows := envelope.Data.([]any)
	if len(rows) != 1 {
		t.Errorf("rows = %d, want only the ocean-view node", len(rows))
	}
}

func TestAdminGate(t *testing.T) {
	reg := newFakeRegistry()
	h := NewHandlers(reg, &fakeMetricStore{}, nil, testAPIConfig(), testChecks())
	router := NewRouter(h, auth.NewMiddleware(denyAdminAuthenticator{}, ""), nil)

	t.Run("reads allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/monitoring/meshes", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("writes forbidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/monitoring/meshes",
			strings.NewReader(`{"name":"ocean-view"}`)))
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})

	t.Run("report bypasses auth", func(t *testing.T) {
		reg.nodes["6c:75:14:7d:65:d4"] = models.Node{MAC: "6c:75:14:7d:65:d4"}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
			"/api/v1/monitoring/nodes/6c:75:14:7d:65:d4/report", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	reg := newFakeRegistry()
	_, router := testServer(reg, &fakeMetricStore{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}

	reg.pingErr = context.DeadlineExceeded
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d, want 503", rec.Code)
	}
}
