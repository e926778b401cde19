package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"festgrid/internal/app"
	"festgrid/internal/config"
	"festgrid/internal/convert"
	"festgrid/internal/database"
	"festgrid/internal/hub"
	"festgrid/internal/model"
	"festgrid/internal/schedule"
	"festgrid/internal/store"
)

func setupServer(t *testing.T, mutate func(*config.Config)) (*Server, *hub.Hub) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	a, err := app.New(cfg, store.NewKVStore(db), nil)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	h := hub.New()
	now := func() time.Time { return time.Date(2025, 3, 29, 15, 0, 0, 0, a.Location()) }
	return NewServer(a, h, now), h
}

func do(t *testing.T, s *Server, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s, _ := setupServer(t, nil)
	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestRegistries(t *testing.T) {
	s, _ := setupServer(t, nil)

	var days []model.FestivalDay
	decode(t, do(t, s, http.MethodGet, "/api/days", ""), &days)
	if len(days) != 2 || days[0].Date != "2025-03-29" || days[1].Date != "2025-03-30" {
		t.Errorf("days = %+v", days)
	}

	var stages []model.Stage
	decode(t, do(t, s, http.MethodGet, "/api/stages", ""), &stages)
	if len(stages) != 10 {
		t.Errorf("stages = %d", len(stages))
	}

	var slots []model.TimeSlotInfo
	decode(t, do(t, s, http.MethodGet, "/api/slots?date=2025-03-29", ""), &slots)
	if len(slots) != 78 || slots[0].Time != "11:00" || slots[77].Time != "23:50" {
		t.Errorf("slots = %d", len(slots))
	}

	if rec := do(t, s, http.MethodGet, "/api/slots?date=2030-01-01", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown day status = %d", rec.Code)
	}
}

func TestGridFilters(t *testing.T) {
	s, _ := setupServer(t, nil)

	var g schedule.Grid
	decode(t, do(t, s, http.MethodGet, "/api/grid?date=2025-03-29&stages=stage1,stage2", ""), &g)
	if len(g.Columns) != 2 {
		t.Fatalf("columns = %d, want 2", len(g.Columns))
	}
	for _, col := range g.Columns {
		for _, c := range col.Cards {
			if c.StageID != col.Stage.ID {
				t.Errorf("card %s in column %s", c.ID, col.Stage.ID)
			}
			if c.Height < 50 {
				t.Errorf("card %s height %v below minimum", c.ID, c.Height)
			}
		}
	}

	decode(t, do(t, s, http.MethodGet, "/api/grid?date=2025-03-29&mobile=1&favorites=1", ""), &g)
	if len(g.Columns) != 0 || g.RowHeight != 20 {
		t.Errorf("favorites-only: columns=%d row=%v", len(g.Columns), g.RowHeight)
	}
}

func TestNow(t *testing.T) {
	s, _ := setupServer(t, nil)

	var resp struct {
		Top *float64 `json:"top"`
	}
	decode(t, do(t, s, http.MethodGet, "/api/now?date=2025-03-29", ""), &resp)
	if resp.Top == nil {
		t.Fatal("top = null on the current day")
	}
	// 15:00 is 250 minutes after the adjusted start of 10:50.
	want := 250.0 / 770.0 * 78 * 30
	if d := *resp.Top - want; d > 1e-6 || d < -1e-6 {
		t.Errorf("top = %v, want %v", *resp.Top, want)
	}

	decode(t, do(t, s, http.MethodGet, "/api/now?date=2025-03-30", ""), &resp)
	if resp.Top != nil {
		t.Errorf("top = %v on another day, want null", *resp.Top)
	}
}

func TestToggleFavoriteBroadcasts(t *testing.T) {
	s, h := setupServer(t, nil)
	c := hub.NewClient(h, nil)
	h.Register(c)
	defer h.Unregister(c)

	var resp struct {
		ID       string `json:"id"`
		Favorite bool   `json:"favorite"`
	}
	rec := do(t, s, http.MethodPost, "/api/favorites/p1/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d", rec.Code)
	}
	decode(t, rec, &resp)
	if resp.ID != "p1" || !resp.Favorite {
		t.Errorf("toggle = %+v", resp)
	}
	if h.ClientCount() != 1 {
		t.Fatal("client lost")
	}

	var favs struct {
		Favorites []string `json:"favorites"`
	}
	decode(t, do(t, s, http.MethodGet, "/api/favorites", ""), &favs)
	if len(favs.Favorites) != 1 || favs.Favorites[0] != "p1" {
		t.Errorf("favorites = %v", favs.Favorites)
	}

	if rec := do(t, s, http.MethodPost, "/api/favorites/missing/toggle", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/favorites/p1/toggle", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET toggle status = %d", rec.Code)
	}
}

func TestExport(t *testing.T) {
	s, _ := setupServer(t, nil)

	if rec := do(t, s, http.MethodGet, "/api/export?date=2025-03-29", ""); rec.Code != http.StatusNotFound {
		t.Errorf("empty export status = %d, want 404", rec.Code)
	}

	do(t, s, http.MethodPost, "/api/favorites/p1/toggle", "")

	var resp struct {
		DataURL string `json:"data_url"`
	}
	rec := do(t, s, http.MethodGet, "/api/export?date=2025-03-29&theme=dark", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &resp)
	data, err := convert.DecodeDataURL(resp.DataURL)
	if err != nil {
		t.Fatalf("data url: %v", err)
	}
	img, err := convert.DecodePNG(data)
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	if img.Bounds().Dx() != 1000 {
		t.Errorf("width = %d, want 1000", img.Bounds().Dx())
	}

	rec = do(t, s, http.MethodGet, "/export.png?date=2025-03-29", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Errorf("png status = %d type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

func TestFavoritesICS(t *testing.T) {
	s, _ := setupServer(t, nil)
	do(t, s, http.MethodPost, "/api/favorites/p3/toggle", "")

	rec := do(t, s, http.MethodGet, "/api/favorites.ics?date=2025-03-29", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "UID:p3@festgrid") {
		t.Error("calendar missing favorite")
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "festival-favorites-20250329.ics") {
		t.Errorf("disposition = %q", cd)
	}
}

func TestImport(t *testing.T) {
	s, _ := setupServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/performances", `{"id":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("object body status = %d", rec.Code)
	}
	rec = do(t, s, http.MethodPost, "/api/performances", `[{"id":"x","stageId":"stage1","startTime":"12:00","endTime":"13:00"}]`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "item at index 0 is missing a name") {
		t.Errorf("missing name = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/performances",
		`[{"id":"x","name":"New","stageId":"stage1","date":"2025-03-29","startTime":"12:00","endTime":"13:00"}]`)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}

	var g schedule.Grid
	decode(t, do(t, s, http.MethodGet, "/api/grid?date=2025-03-29&stages=stage1", ""), &g)
	if len(g.Columns) != 1 || len(g.Columns[0].Cards) != 1 || g.Columns[0].Cards[0].ID != "x" {
		t.Errorf("grid after import = %+v", g.Columns)
	}

	if rec := do(t, s, http.MethodDelete, "/api/performances", ""); rec.Code != http.StatusNoContent {
		t.Errorf("reset status = %d", rec.Code)
	}
}

func TestGridPage(t *testing.T) {
	s, _ := setupServer(t, nil)
	rec := do(t, s, http.MethodGet, "/grid?date=2025-03-29&theme=dark", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{`data-ready="true"`, `class="now"`, "南霸天", "#1f2937", `data-id="p1"`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "ZgotmplZ") {
		t.Error("template produced an unsafe-value placeholder")
	}

	if rec := do(t, s, http.MethodGet, "/", ""); rec.Code != http.StatusFound {
		t.Errorf("root status = %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	s, _ := setupServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}
	})

	if rec := do(t, s, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health behind auth = %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/days", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no credentials = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/days", nil)
	req.SetBasicAuth("u", "p")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with credentials = %d", rec.Code)
	}
}

func TestPasswordMatchesBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !passwordMatches("secret", string(hash)) {
		t.Error("bcrypt hash did not match its password")
	}
	if passwordMatches("wrong", string(hash)) {
		t.Error("bcrypt hash matched a wrong password")
	}
	if !passwordMatches("plain", "plain") || passwordMatches("plain", "other") {
		t.Error("plain comparison wrong")
	}
}
