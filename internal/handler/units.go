package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"axie-market-cache/internal/marketplace"
	"axie-market-cache/internal/model"
	"axie-market-cache/internal/repository"
	"axie-market-cache/internal/service"
	"axie-market-cache/pkg/apierror"
	"axie-market-cache/pkg/response"

	"github.com/go-chi/chi/v5"
)

// maxSyncBody caps the listing params body of a sync request.
const maxSyncBody = 64 << 10

// Units is the unit service as used over HTTP.
type Units interface {
	ListLatestUnits(ctx context.Context) ([]model.Unit, error)
	ListAllUnits(ctx context.Context) ([]model.DecodedUnit, error)
	ListRecentlySold(ctx context.Context) ([]model.SoldRecord, error)
	SyncLatestUnits(ctx context.Context, p marketplace.ListingsParams) (service.SyncResult, error)
	SyncRecentlySold(ctx context.Context, from, size int) (service.SyncResult, error)
	FetchUnitDetail(ctx context.Context, id string) (*model.DecodedUnit, error)
}

// UnitHandler handles unit-related HTTP requests.
type UnitHandler struct {
	units        Units
	defaultSold  int
	defaultQuery marketplace.ListingsParams
}

// NewUnitHandler creates a new unit handler. listings and soldSize are used
// for sync requests that leave them out.
func NewUnitHandler(units Units, listings marketplace.ListingsParams, soldSize int) *UnitHandler {
	if soldSize <= 0 {
		soldSize = 20
	}
	return &UnitHandler{units: units, defaultSold: soldSize, defaultQuery: listings}
}

// ListLatest handles GET /api/v1/units/latest
func (h *UnitHandler) ListLatest(w http.ResponseWriter, r *http.Request) {
	units, err := h.units.ListLatestUnits(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.List(w, repository.LatestUnitsCollection, units, len(units))
}

// ListAll handles GET /api/v1/units
func (h *UnitHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	units, err := h.units.ListAllUnits(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.List(w, repository.DecodedUnitsCollection, units, len(units))
}

// ListSold handles GET /api/v1/units/sold
func (h *UnitHandler) ListSold(w http.ResponseWriter, r *http.Request) {
	records, err := h.units.ListRecentlySold(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.List(w, repository.RecentlySoldCollection, records, len(records))
}

// GetDetail handles GET /api/v1/units/{id}
func (h *UnitHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	unit, err := h.units.FetchUnitDetail(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, unit)
}

// syncLatestRequest is the optional body of a latest-listings sync. Fields
// left out keep their default; criteria, when present, replaces the default
// criteria as a whole.
type syncLatestRequest struct {
	From        *int                     `json:"from"`
	Size        *int                     `json:"size"`
	Sort        *marketplace.SortBy      `json:"sort"`
	AuctionType *marketplace.AuctionType `json:"auctionType"`
	Criteria    *marketplace.Criteria    `json:"criteria"`
}

// apply returns defaults overridden by the fields present in req. defaults
// is never modified.
func (req syncLatestRequest) apply(defaults marketplace.ListingsParams) marketplace.ListingsParams {
	p := defaults
	if req.From != nil {
		p.From = *req.From
	}
	if req.Size != nil {
		p.Size = *req.Size
	}
	if req.Sort != nil {
		p.Sort = *req.Sort
	}
	if req.AuctionType != nil {
		p.AuctionType = *req.AuctionType
	}
	if req.Criteria != nil {
		p.Criteria = req.Criteria
	}
	return p
}

// SyncLatest handles POST /api/v1/units/latest/sync
func (h *UnitHandler) SyncLatest(w http.ResponseWriter, r *http.Request) {
	var req syncLatestRequest
	if r.Body != nil {
		defer r.Body.Close()
		err := json.NewDecoder(io.LimitReader(r.Body, maxSyncBody)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, apierror.BadRequest("invalid JSON: "+err.Error()))
			return
		}
	}

	p := req.apply(h.defaultQuery)
	if p.From < 0 || p.Size <= 0 {
		response.Error(w, apierror.ValidationError("invalid listing params",
			apierror.FieldError{Field: "from", Message: "must be >= 0"},
			apierror.FieldError{Field: "size", Message: "must be > 0"},
		))
		return
	}

	result, err := h.units.SyncLatestUnits(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, result)
}

// SyncSold handles POST /api/v1/units/sold/sync?from=&size=
func (h *UnitHandler) SyncSold(w http.ResponseWriter, r *http.Request) {
	from, ok := queryInt(w, r, "from", 0, 0)
	if !ok {
		return
	}
	size, ok := queryInt(w, r, "size", h.defaultSold, 1)
	if !ok {
		return
	}

	result, err := h.units.SyncRecentlySold(r.Context(), from, size)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, result)
}

// queryInt reads an integer query parameter, writing a validation error
// and returning false when it is malformed or below floor.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def, floor int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < floor {
		response.Error(w, apierror.ValidationError("invalid query parameter",
			apierror.FieldError{Field: name, Message: "must be an integer >= " + strconv.Itoa(floor)}))
		return 0, false
	}
	return v, true
}
