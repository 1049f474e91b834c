package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"axie-market-cache/internal/gene"
	"axie-market-cache/internal/handler"
	"axie-market-cache/internal/lock"
	"axie-market-cache/internal/marketplace"
	"axie-market-cache/internal/middleware"
	"axie-market-cache/internal/repository"
	"axie-market-cache/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pureBeastGenes decodes to a beast with every allele of its own class.
var pureBeastGenes = "0x" + strings.Repeat("0", 64)

// fakeMarketplace answers the three marketplace queries by operation name.
func fakeMarketplace(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if !assert.NoError(t, err) {
			return
		}
		var doc struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if !assert.NoError(t, json.Unmarshal(raw, &doc)) {
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(doc.Query, "GetAxieLatest"):
			_, _ = io.WriteString(w, `{"data":{"axies":{"total":2,"results":[
				{"id":"A","class":"Beast","genes":"`+pureBeastGenes+`","parts":[],"stats":{"hp":1,"speed":1,"skill":1,"morale":1}},
				{"id":"B","class":"Bird","genes":"0x1","parts":[],"stats":{"hp":2,"speed":2,"skill":2,"morale":2}}
			]}}}`)
		case strings.Contains(doc.Query, "GetRecentlyAxiesSold"):
			_, _ = io.WriteString(w, `{"data":{"settledAuctions":{"axies":{"total":1,"results":[
				{"id":"S1","name":"Sold","class":"Bug","transferHistory":{"total":1,"results":[{"timestamp":1700000000,"withPrice":"1","withPriceUsd":"2"}]}}
			]}}}`)
		case strings.Contains(doc.Query, "GetAxieDetail"):
			if doc.Variables["axieId"] == "missing" {
				_, _ = io.WriteString(w, `{"data":{"axie":null}}`)
				return
			}
			_, _ = io.WriteString(w, `{"data":{"axie":{"id":"`+doc.Variables["axieId"].(string)+`","class":"Beast","genes":"`+pureBeastGenes+`",
				"parts":[],"stats":{"hp":1,"speed":1,"skill":1,"morale":1},"ownerProfile":{"name":"Owner"}}}}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	srv := fakeMarketplace(t)
	t.Cleanup(srv.Close)

	store := repository.NewMemoryStore()
	client := marketplace.NewClient(srv.Client(), marketplace.ClientConfig{Endpoint: srv.URL})
	units := service.NewUnitService(client, gene.NewDecoder(), store, lock.NewMemoryLocker(), service.UnitServiceConfig{})
	scheduler := service.NewSyncScheduler(units, service.SchedulerConfig{Listings: marketplace.DefaultListingsParams()})

	return New(Config{
		Handler:        handler.New("axie-market-cache", "test", map[string]handler.Pinger{"store": store}),
		UnitHandler:    handler.NewUnitHandler(units, marketplace.DefaultListingsParams(), 20),
		AdminHandler:   handler.NewAdminHandler(store, units, scheduler, "memory", "memory"),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{APIKeys: []string{"secret"}}),
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    struct {
		Total int `json:"total"`
	} `json:"meta"`
}

func call(t *testing.T, h http.Handler, method, target, key string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestRouter_SyncThenList(t *testing.T) {
	h := newTestRouter(t)

	code, env := call(t, h, http.MethodGet, "/api/v1/units/latest", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Meta.Total)

	code, _ = call(t, h, http.MethodPost, "/api/v1/units/latest/sync", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = call(t, h, http.MethodPost, "/api/v1/units/latest/sync", "secret")
	require.Equal(t, http.StatusOK, code)
	var res service.SyncResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 2, res.Records)

	code, env = call(t, h, http.MethodGet, "/api/v1/units/latest", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, env.Meta.Total)

	code, _ = call(t, h, http.MethodPost, "/api/v1/units/sold/sync?size=1", "secret")
	require.Equal(t, http.StatusOK, code)
	code, env = call(t, h, http.MethodGet, "/api/v1/units/sold", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Meta.Total)
}

func TestRouter_Detail(t *testing.T) {
	h := newTestRouter(t)

	code, env := call(t, h, http.MethodGet, "/api/v1/units/11440", "")
	require.Equal(t, http.StatusOK, code)

	var unit struct {
		ID        string `json:"id"`
		OwnerName string `json:"owner_name"`
		Quality   int    `json:"quality"`
		Genes     struct {
			Class string `json:"class"`
		} `json:"genes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &unit))
	assert.Equal(t, "11440", unit.ID)
	assert.Equal(t, 100, unit.Quality)
	assert.Equal(t, "beast", unit.Genes.Class)

	code, _ = call(t, h, http.MethodGet, "/api/v1/units/missing", "")
	assert.Equal(t, http.StatusNotFound, code)

	// The detail path does not write the decoded-units collection.
	code, env = call(t, h, http.MethodGet, "/api/v1/units", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, env.Meta.Total)
}

func TestRouter_AdminAndHealth(t *testing.T) {
	h := newTestRouter(t)

	code, _ := call(t, h, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, h, http.MethodGet, "/api/v1/ready", "")
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, h, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, h, http.MethodGet, "/api/v1/admin/stats", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = call(t, h, http.MethodPost, "/api/v1/admin/sync", "secret")
	require.Equal(t, http.StatusOK, code)

	code, env := call(t, h, http.MethodGet, "/api/v1/admin/stats", "secret")
	require.Equal(t, http.StatusOK, code)

	var stats struct {
		StoreType string               `json:"store_type"`
		Sync      []service.SyncStatus `json:"sync"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, "memory", stats.StoreType)
	require.Len(t, stats.Sync, 2)
	assert.Equal(t, int64(1), stats.Sync[0].Attempts)
	assert.Equal(t, 2, stats.Sync[0].LastRecords)
	assert.Equal(t, 1, stats.Sync[1].LastRecords)
}
