package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"axie-market-cache/internal/marketplace"
	"axie-market-cache/internal/model"
	"axie-market-cache/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUnits struct {
	latest     []model.Unit
	err        error
	gotParams  marketplace.ListingsParams
	gotFrom    int
	gotSize    int
	detailFunc func(id string) (*model.DecodedUnit, error)
}

func (f *fakeUnits) ListLatestUnits(ctx context.Context) ([]model.Unit, error) {
	return f.latest, f.err
}

func (f *fakeUnits) ListAllUnits(ctx context.Context) ([]model.DecodedUnit, error) {
	return []model.DecodedUnit{}, f.err
}

func (f *fakeUnits) ListRecentlySold(ctx context.Context) ([]model.SoldRecord, error) {
	return []model.SoldRecord{{ID: "9", Timestamp: 1700000000}}, f.err
}

func (f *fakeUnits) SyncLatestUnits(ctx context.Context, p marketplace.ListingsParams) (service.SyncResult, error) {
	f.gotParams = p
	return service.SyncResult{Collection: "latest_units", Records: p.Size}, f.err
}

func (f *fakeUnits) SyncRecentlySold(ctx context.Context, from, size int) (service.SyncResult, error) {
	f.gotFrom, f.gotSize = from, size
	return service.SyncResult{Collection: "recently_sold", Records: size}, f.err
}

func (f *fakeUnits) FetchUnitDetail(ctx context.Context, id string) (*model.DecodedUnit, error) {
	return f.detailFunc(id)
}

func newUnitRouter(units Units) http.Handler {
	h := NewUnitHandler(units, marketplace.DefaultListingsParams(), 20)
	r := chi.NewRouter()
	r.Get("/units", h.ListAll)
	r.Get("/units/latest", h.ListLatest)
	r.Get("/units/sold", h.ListSold)
	r.Get("/units/{id}", h.GetDetail)
	r.Post("/units/latest/sync", h.SyncLatest)
	r.Post("/units/sold/sync", h.SyncSold)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestUnitHandler_ListLatest(t *testing.T) {
	units := &fakeUnits{latest: []model.Unit{{ID: "A"}, {ID: "B"}}}
	rec, body := do(t, newUnitRouter(units), http.MethodGet, "/units/latest", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["data"], 2)
	assert.Equal(t, map[string]interface{}{"collection": "latest_units", "total": float64(2)}, body["meta"])
}

func TestUnitHandler_SyncLatestParams(t *testing.T) {
	tests := []struct {
		name string
		body string
		want marketplace.ListingsParams
	}{
		{
			name: "empty body uses defaults",
			body: "",
			want: marketplace.DefaultListingsParams(),
		},
		{
			name: "body overrides fields",
			body: `{"from":0,"size":2}`,
			want: func() marketplace.ListingsParams {
				p := marketplace.DefaultListingsParams()
				p.Size = 2
				return p
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := &fakeUnits{}
			rec, _ := do(t, newUnitRouter(units), http.MethodPost, "/units/latest/sync", tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, units.gotParams)
		})
	}
}

func TestUnitHandler_SyncLatestKeepsDefaultCriteria(t *testing.T) {
	defaults := marketplace.DefaultListingsParams()
	defaults.Criteria = &marketplace.Criteria{Classes: []string{"Beast"}}

	units := &fakeUnits{}
	h := NewUnitHandler(units, defaults, 20)
	r := chi.NewRouter()
	r.Post("/units/latest/sync", h.SyncLatest)

	rec, _ := do(t, r, http.MethodPost, "/units/latest/sync", `{"criteria":{"classes":["Bird"],"parts":["tail-x"]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, units.gotParams.Criteria)
	assert.Equal(t, &marketplace.Criteria{Classes: []string{"Bird"}, Parts: []string{"tail-x"}}, units.gotParams.Criteria)

	rec, _ = do(t, r, http.MethodPost, "/units/latest/sync", `{"size":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, units.gotParams.Size)
	assert.Equal(t, &marketplace.Criteria{Classes: []string{"Beast"}}, units.gotParams.Criteria)

	rec, _ = do(t, r, http.MethodPost, "/units/latest/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaults, units.gotParams)
	assert.Equal(t, []string{"Beast"}, defaults.Criteria.Classes)
	assert.Empty(t, defaults.Criteria.Parts)
}

func TestUnitHandler_SyncLatestRejectsBadInput(t *testing.T) {
	for _, body := range []string{`{"size":`, `{"size":0}`, `{"from":-1}`} {
		rec, resp := do(t, newUnitRouter(&fakeUnits{}), http.MethodPost, "/units/latest/sync", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, false, resp["success"])
	}
}

func TestUnitHandler_SyncSold(t *testing.T) {
	units := &fakeUnits{}
	h := newUnitRouter(units)

	rec, _ := do(t, h, http.MethodPost, "/units/sold/sync", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, units.gotFrom)
	assert.Equal(t, 20, units.gotSize)

	rec, _ = do(t, h, http.MethodPost, "/units/sold/sync?from=40&size=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 40, units.gotFrom)
	assert.Equal(t, 5, units.gotSize)

	rec, _ = do(t, h, http.MethodPost, "/units/sold/sync?size=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnitHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"not found", fmt.Errorf("fetch unit 1: %w", model.E(model.KindNormalization, "n", marketplace.ErrNotFound)), http.StatusNotFound, "NOT_FOUND"},
		{"transport", model.Errorf(model.KindTransport, "marketplace.GetAxieDetail", "unexpected status 500"), http.StatusBadGateway, "BAD_GATEWAY"},
		{"normalization", model.Errorf(model.KindNormalization, "n", "data.axie.id: missing"), http.StatusBadGateway, "BAD_GATEWAY"},
		{"decode", model.Errorf(model.KindDecode, "gene.Decode", "bad"), http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY"},
		{"persistence", model.Errorf(model.KindPersistence, "sql", "disk"), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"lock", model.Errorf(model.KindLock, "sync", "busy"), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"untyped", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := &fakeUnits{detailFunc: func(string) (*model.DecodedUnit, error) { return nil, tt.err }}
			rec, body := do(t, newUnitRouter(units), http.MethodGet, "/units/1", "")

			assert.Equal(t, tt.want, rec.Code)
			errBody, ok := body["error"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.code, errBody["code"])
		})
	}
}

func TestUnitHandler_GetDetail(t *testing.T) {
	units := &fakeUnits{detailFunc: func(id string) (*model.DecodedUnit, error) {
		return &model.DecodedUnit{ID: id, Quality: 100}, nil
	}}
	rec, body := do(t, newUnitRouter(units), http.MethodGet, "/units/11440", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "11440", data["id"])
	assert.Equal(t, float64(100), data["quality"])
}
