package marketplace

import (
	"errors"
	"fmt"
	"strconv"

	"axie-market-cache/internal/model"

	"github.com/tidwall/gjson"
)

// ErrNotFound is returned when the detail query resolves to no unit.
var ErrNotFound = errors.New("unit not found")

// ListingsPage is a normalized listings response.
type ListingsPage struct {
	Total int
	Units []model.Unit
}

// SoldPage is a normalized recently-sold response. Skipped counts units
// that carried no transfer history and so have no settlement to record.
type SoldPage struct {
	Total   int
	Records []model.SoldRecord
	Skipped int
}

// Detail is a normalized detail response; genes are still encoded.
type Detail struct {
	Unit      model.Unit
	OwnerName string
	SireID    int64
	MatronID  int64
	Banned    bool
	Children  []model.ChildSummary
}

// NormalizeListings extracts the listings page from a GetAxieLatest response.
func NormalizeListings(body []byte) (ListingsPage, error) {
	const op = "marketplace.NormalizeListings"

	axies := gjson.GetBytes(body, "data.axies")
	results := axies.Get("results")
	if !results.IsArray() {
		return ListingsPage{}, model.Errorf(model.KindNormalization, op, "data.axies.results: missing or not a list")
	}

	page := ListingsPage{Total: int(axies.Get("total").Int()), Units: []model.Unit{}}
	for i, r := range list(results) {
		x := &extractor{path: fmt.Sprintf("data.axies.results[%d]", i)}
		u := x.unit(r)
		if x.err != nil {
			return ListingsPage{}, model.E(model.KindNormalization, op, x.err)
		}
		page.Units = append(page.Units, u)
	}
	return page, nil
}

// NormalizeDetail extracts the unit from a GetAxieDetail response.
func NormalizeDetail(body []byte) (Detail, error) {
	const op = "marketplace.NormalizeDetail"

	r := gjson.GetBytes(body, "data.axie")
	if !r.Exists() || r.Type == gjson.Null {
		return Detail{}, model.E(model.KindNormalization, op, ErrNotFound)
	}
	if !r.IsObject() {
		return Detail{}, model.Errorf(model.KindNormalization, op, "data.axie: not an object")
	}

	x := &extractor{path: "data.axie"}
	d := Detail{
		Unit:      x.unit(r),
		OwnerName: r.Get("ownerProfile.name").String(),
		SireID:    x.optInt64(r, "sireId"),
		MatronID:  x.optInt64(r, "matronId"),
		Banned:    r.Get("battleInfo.banned").Bool(),
	}
	for i, c := range list(r.Get("children")) {
		cx := x.child(fmt.Sprintf("children[%d]", i))
		d.Children = append(d.Children, model.ChildSummary{
			ID:    cx.str(c, "id"),
			Name:  c.Get("name").String(),
			Class: c.Get("class").String(),
			Image: c.Get("image").String(),
			Title: c.Get("title").String(),
			Stage: cx.optInt(c, "stage"),
		})
		x.adopt(cx)
	}
	if x.err != nil {
		return Detail{}, model.E(model.KindNormalization, op, x.err)
	}
	return d, nil
}

// NormalizeRecentlySold extracts settled sales from a GetRecentlyAxiesSold
// response. The settlement of each unit is its transfer with the latest
// timestamp; units with an empty transfer history are skipped.
func NormalizeRecentlySold(body []byte) (SoldPage, error) {
	const op = "marketplace.NormalizeRecentlySold"

	axies := gjson.GetBytes(body, "data.settledAuctions.axies")
	results := axies.Get("results")
	if !results.IsArray() {
		return SoldPage{}, model.Errorf(model.KindNormalization, op, "data.settledAuctions.axies.results: missing or not a list")
	}

	page := SoldPage{Total: int(axies.Get("total").Int()), Records: []model.SoldRecord{}}
	for i, r := range list(results) {
		x := &extractor{path: fmt.Sprintf("data.settledAuctions.axies.results[%d]", i)}
		rec := model.SoldRecord{
			ID:         x.str(r, "id"),
			Name:       r.Get("name").String(),
			Class:      x.str(r, "class"),
			Image:      r.Get("image").String(),
			BreedCount: x.optInt(r, "breedCount"),
		}

		var latest gjson.Result
		var latestTS int64
		for j, t := range list(r.Get("transferHistory.results")) {
			tx := x.child(fmt.Sprintf("transferHistory.results[%d]", j))
			ts := tx.num64(t, "timestamp")
			x.adopt(tx)
			if tx.err == nil && (!latest.Exists() || ts > latestTS) {
				latest, latestTS = t, ts
			}
		}
		if x.err != nil {
			return SoldPage{}, model.E(model.KindNormalization, op, x.err)
		}
		if !latest.Exists() {
			page.Skipped++
			continue
		}

		rec.Timestamp = latestTS
		rec.WithPrice = latest.Get("withPrice").String()
		rec.WithPriceUSD = latest.Get("withPriceUsd").String()
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

// extractor reads known fields out of loosely typed JSON and keeps the
// first missing or malformed required field it meets.
type extractor struct {
	path string
	err  error
}

func (x *extractor) child(p string) *extractor {
	return &extractor{path: x.path + "." + p}
}

func (x *extractor) adopt(c *extractor) {
	if x.err == nil {
		x.err = c.err
	}
}

func (x *extractor) fail(key, reason string) {
	if x.err == nil {
		x.err = fmt.Errorf("%s.%s: %s", x.path, key, reason)
	}
}

func present(v gjson.Result) bool {
	return v.Exists() && v.Type != gjson.Null
}

// list returns the elements of v, or nil when v is not an array.
func list(v gjson.Result) []gjson.Result {
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}

func (x *extractor) str(r gjson.Result, key string) string {
	v := r.Get(key)
	if !present(v) {
		x.fail(key, "required field missing")
		return ""
	}
	if v.Type != gjson.String && v.Type != gjson.Number {
		x.fail(key, "expected a string")
		return ""
	}
	s := v.String()
	if s == "" {
		x.fail(key, "required field empty")
	}
	return s
}

func (x *extractor) num64(r gjson.Result, key string) int64 {
	v := r.Get(key)
	if !present(v) {
		x.fail(key, "required field missing")
		return 0
	}
	n, ok := toInt64(v)
	if !ok {
		x.fail(key, "expected a number")
	}
	return n
}

func (x *extractor) num(r gjson.Result, key string) int {
	return int(x.num64(r, key))
}

func (x *extractor) optInt64(r gjson.Result, key string) int64 {
	v := r.Get(key)
	if !present(v) {
		return 0
	}
	n, ok := toInt64(v)
	if !ok {
		x.fail(key, "expected a number")
	}
	return n
}

func (x *extractor) optInt(r gjson.Result, key string) int {
	return int(x.optInt64(r, key))
}

func toInt64(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Int(), true
	case gjson.String:
		n, err := strconv.ParseInt(v.Str, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func (x *extractor) unit(r gjson.Result) model.Unit {
	u := model.Unit{
		ID:         x.str(r, "id"),
		Image:      r.Get("image").String(),
		Class:      x.str(r, "class"),
		Name:       r.Get("name").String(),
		Genes:      x.str(r, "genes"),
		Owner:      r.Get("owner").String(),
		Stage:      x.optInt(r, "stage"),
		Title:      r.Get("title").String(),
		BreedCount: x.optInt(r, "breedCount"),
		Level:      x.optInt(r, "level"),
		Stats:      x.stats(r),
		Auction:    x.auction(r),
	}

	parts := r.Get("parts")
	if present(parts) && !parts.IsArray() {
		x.fail("parts", "expected a list")
	}
	u.Parts = make([]model.Part, 0, len(list(parts)))
	for i, p := range list(parts) {
		px := x.child(fmt.Sprintf("parts[%d]", i))
		u.Parts = append(u.Parts, px.part(p))
		x.adopt(px)
	}
	return u
}

func (x *extractor) stats(r gjson.Result) model.Stats {
	s := r.Get("stats")
	if !present(s) || !s.IsObject() {
		x.fail("stats", "required field missing")
		return model.Stats{}
	}
	sx := x.child("stats")
	stats := model.Stats{
		HP:     sx.num(s, "hp"),
		Speed:  sx.num(s, "speed"),
		Skill:  sx.num(s, "skill"),
		Morale: sx.num(s, "morale"),
	}
	x.adopt(sx)
	return stats
}

func (x *extractor) auction(r gjson.Result) *model.Auction {
	a := r.Get("auction")
	if !present(a) {
		return nil
	}
	if !a.IsObject() {
		x.fail("auction", "expected an object")
		return nil
	}
	ax := x.child("auction")
	auction := &model.Auction{
		StartingPrice:     a.Get("startingPrice").String(),
		EndingPrice:       a.Get("endingPrice").String(),
		StartingTimestamp: a.Get("startingTimestamp").String(),
		EndingTimestamp:   a.Get("endingTimestamp").String(),
		Duration:          a.Get("duration").String(),
		TimeLeft:          a.Get("timeLeft").String(),
		CurrentPrice:      a.Get("currentPrice").String(),
		CurrentPriceUSD:   a.Get("currentPriceUSD").String(),
		SuggestedPrice:    a.Get("suggestedPrice").String(),
		Seller:            a.Get("seller").String(),
		ListingIndex:      ax.optInt(a, "listingIndex"),
		State:             a.Get("state").String(),
	}
	x.adopt(ax)
	return auction
}

func (x *extractor) part(p gjson.Result) model.Part {
	part := model.Part{
		ID:           x.str(p, "id"),
		Name:         p.Get("name").String(),
		Class:        x.str(p, "class"),
		Type:         x.str(p, "type"),
		SpecialGenes: p.Get("specialGenes").String(),
		Stage:        x.optInt(p, "stage"),
	}
	abilities := list(p.Get("abilities"))
	part.Abilities = make([]model.Ability, 0, len(abilities))
	for i, a := range abilities {
		ax := x.child(fmt.Sprintf("abilities[%d]", i))
		part.Abilities = append(part.Abilities, model.Ability{
			ID:            ax.str(a, "id"),
			Name:          a.Get("name").String(),
			Attack:        ax.optInt(a, "attack"),
			Defense:       ax.optInt(a, "defense"),
			Energy:        ax.optInt(a, "energy"),
			Description:   a.Get("description").String(),
			BackgroundURL: a.Get("backgroundUrl").String(),
			EffectIconURL: a.Get("effectIconUrl").String(),
		})
		x.adopt(ax)
	}
	return part
}
