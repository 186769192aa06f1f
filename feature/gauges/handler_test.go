package gauges_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/jancika1998-netizen/Water-Level/feature/gauges"
	"github.com/jancika1998-netizen/Water-Level/feature/gauges/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func newTestApp(t *testing.T, svc *gauges.Service) *fiber.App {
	t.Helper()
	app := fiber.New()
	gauges.NewHandler(svc).RegisterRoutes(app)
	return app
}

func TestHandleSnapshot(t *testing.T) {
	fetcher := &stubFetcher{features: []models.RawFeature{
		rawFeature("Atbara", 5.2, 1700000000000),
	}}
	svc, _ := newTestService(t, fetcher)
	_, err := svc.Sync(context.Background(), models.ModeFull)
	assert.NoError(t, err)

	app := newTestApp(t, svc)
	req := httptest.NewRequest("GET", "/gauges/data", nil)
	resp, err := app.Test(req, 2000)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var statuses []models.StationStatus
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&statuses))
	assert.Len(t, statuses, 1)
	assert.Equal(t, "Atbara", statuses[0].Station)
	assert.Equal(t, "MINOR FLOOD", statuses[0].Status)
}

func TestHandleHistory(t *testing.T) {
	fetcher := &stubFetcher{features: []models.RawFeature{
		rawFeature("Blue Nile/Station 1", 5.2, 1700000000000),
	}}
	svc, _ := newTestService(t, fetcher)
	_, err := svc.Sync(context.Background(), models.ModeFull)
	assert.NoError(t, err)

	app := newTestApp(t, svc)

	// Station keys may contain spaces; the path segment arrives escaped.
	req := httptest.NewRequest("GET", "/gauges/history/Blue%20Nile_Station%201", nil)
	resp, err := app.Test(req, 2000)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var rows []models.HistoryRow
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	assert.Len(t, rows, 1)
	assert.Equal(t, "2023-11-14 22:13:20", rows[0].DateTime)
}

func TestHandleHistoryUnknownStation(t *testing.T) {
	svc, _ := newTestService(t, &stubFetcher{})
	app := newTestApp(t, svc)

	req := httptest.NewRequest("GET", "/gauges/history/Nowhere", nil)
	resp, err := app.Test(req, 2000)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, "[]", string(body))
}

func TestHandleHistoryCSV(t *testing.T) {
	fetcher := &stubFetcher{features: []models.RawFeature{
		rawFeature("Atbara", 5.2, 1700000000000),
	}}
	svc, _ := newTestService(t, fetcher)
	_, err := svc.Sync(context.Background(), models.ModeFull)
	assert.NoError(t, err)

	app := newTestApp(t, svc)
	req := httptest.NewRequest("GET", "/gauges/history/Atbara/csv", nil)
	resp, err := app.Test(req, 2000)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `Atbara.csv`)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "DateTime,Level (m),Status\n2023-11-14 22:13:20,5.2,MINOR FLOOD\n", string(body))
}

func TestHandleSync(t *testing.T) {
	fetcher := &stubFetcher{features: []models.RawFeature{
		rawFeature("Atbara", 5.2, 1700000000000),
	}}
	svc, _ := newTestService(t, fetcher)
	app := newTestApp(t, svc)

	req := httptest.NewRequest("POST", "/gauges/sync?full=true", nil)
	resp, err := app.Test(req, 2000)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var payload map[string]any
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "success", payload["status"])
	assert.Equal(t, "full", payload["mode"])
	assert.Equal(t, float64(1), payload["rows_appended"])
	assert.Equal(t, models.ModeFull, fetcher.gotMode)
}

func TestHandleSyncDefaultsToIncremental(t *testing.T) {
	fetcher := &stubFetcher{}
	svc, _ := newTestService(t, fetcher)
	app := newTestApp(t, svc)

	req := httptest.NewRequest("POST", "/gauges/sync", nil)
	resp, err := app.Test(req, 2000)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, models.ModeIncremental, fetcher.gotMode)
}

func TestHandleSyncFeedDown(t *testing.T) {
	fetcher := &stubFetcher{err: models.ErrFeedUnavailable}
	svc, _ := newTestService(t, fetcher)
	app := newTestApp(t, svc)

	req := httptest.NewRequest("POST", "/gauges/sync", nil)
	resp, err := app.Test(req, 2000)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	var payload map[string]string
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Contains(t, payload["error"], "feed")
}
