package service

import (
	"context"
	"fmt"
	"log"

	"axie-market-cache/internal/gene"
	"axie-market-cache/internal/lock"
	"axie-market-cache/internal/marketplace"
	"axie-market-cache/internal/model"
	"axie-market-cache/internal/repository"
)

// Transport executes a marketplace query and returns the raw response body.
type Transport interface {
	Execute(ctx context.Context, doc marketplace.Document) ([]byte, error)
}

// UnitServiceConfig holds optional unit service behavior.
type UnitServiceConfig struct {
	// PersistDecoded stores every fetched detail in the decoded-units
	// collection. Off by default: the detail path is read-only.
	PersistDecoded bool
}

// UnitService handles unit listing, sync and detail business logic.
type UnitService struct {
	transport Transport
	decoder   gene.Decoder
	store     repository.Store
	locker    lock.Locker
	cfg       UnitServiceConfig

	latest *Synchronizer[model.Unit]
	sold   *Synchronizer[model.SoldRecord]
}

// NewUnitService creates a new unit service.
func NewUnitService(
	transport Transport,
	decoder gene.Decoder,
	store repository.Store,
	locker lock.Locker,
	cfg UnitServiceConfig,
) *UnitService {
	return &UnitService{
		transport: transport,
		decoder:   decoder,
		store:     store,
		locker:    locker,
		cfg:       cfg,
		latest:    NewSynchronizer(store.LatestUnits(), locker),
		sold:      NewSynchronizer(store.RecentlySold(), locker),
	}
}

// ListLatestUnits returns the cached latest listings.
func (s *UnitService) ListLatestUnits(ctx context.Context) ([]model.Unit, error) {
	return s.store.LatestUnits().FindAll(ctx)
}

// ListAllUnits returns the decoded-units collection as stored.
func (s *UnitService) ListAllUnits(ctx context.Context) ([]model.DecodedUnit, error) {
	return s.store.DecodedUnits().FindAll(ctx)
}

// ListRecentlySold returns the cached recently settled sales.
func (s *UnitService) ListRecentlySold(ctx context.Context) ([]model.SoldRecord, error) {
	return s.store.RecentlySold().FindAll(ctx)
}

// SyncLatestUnits replaces the latest-listings collection with one page of
// the listings query.
func (s *UnitService) SyncLatestUnits(ctx context.Context, p marketplace.ListingsParams) (SyncResult, error) {
	return s.latest.Sync(ctx, func(ctx context.Context) (Batch[model.Unit], error) {
		body, err := s.transport.Execute(ctx, marketplace.ListingsQuery(p))
		if err != nil {
			return Batch[model.Unit]{}, err
		}
		page, err := marketplace.NormalizeListings(body)
		if err != nil {
			return Batch[model.Unit]{}, err
		}
		return Batch[model.Unit]{Records: page.Units, Total: page.Total}, nil
	})
}

// SyncRecentlySold replaces the recently-sold collection with one page of
// settled sales.
func (s *UnitService) SyncRecentlySold(ctx context.Context, from, size int) (SyncResult, error) {
	return s.sold.Sync(ctx, func(ctx context.Context) (Batch[model.SoldRecord], error) {
		body, err := s.transport.Execute(ctx, marketplace.RecentlySoldQuery(from, size))
		if err != nil {
			return Batch[model.SoldRecord]{}, err
		}
		page, err := marketplace.NormalizeRecentlySold(body)
		if err != nil {
			return Batch[model.SoldRecord]{}, err
		}
		if page.Skipped > 0 {
			log.Printf("[UnitService] Skipped %d sold units without transfer history", page.Skipped)
		}
		return Batch[model.SoldRecord]{Records: page.Records, Skipped: page.Skipped, Total: page.Total}, nil
	})
}

// FetchUnitDetail fetches one unit and decodes its genes. Every failure is
// returned to the caller.
func (s *UnitService) FetchUnitDetail(ctx context.Context, id string) (*model.DecodedUnit, error) {
	body, err := s.transport.Execute(ctx, marketplace.DetailQuery(id))
	if err != nil {
		return nil, fmt.Errorf("fetch unit %s: %w", id, err)
	}

	detail, err := marketplace.NormalizeDetail(body)
	if err != nil {
		return nil, fmt.Errorf("fetch unit %s: %w", id, err)
	}

	genes, quality, err := s.decoder.Decode(detail.Unit.Genes)
	if err != nil {
		return nil, fmt.Errorf("fetch unit %s: %w", id, err)
	}

	decoded := &model.DecodedUnit{
		ID:         detail.Unit.ID,
		Name:       detail.Unit.Name,
		Class:      detail.Unit.Class,
		Owner:      detail.Unit.Owner,
		OwnerName:  detail.OwnerName,
		BreedCount: detail.Unit.BreedCount,
		SireID:     detail.SireID,
		MatronID:   detail.MatronID,
		Banned:     detail.Banned,
		Children:   detail.Children,
		Stats:      detail.Unit.Stats,
		Parts:      detail.Unit.Parts,
		Genes:      genes,
		Quality:    quality,
	}

	if s.cfg.PersistDecoded {
		if err := s.storeDecoded(ctx, *decoded); err != nil {
			return nil, fmt.Errorf("fetch unit %s: %w", id, err)
		}
	}
	return decoded, nil
}

// storeDecoded merges u into the decoded-units collection by identity.
func (s *UnitService) storeDecoded(ctx context.Context, u model.DecodedUnit) error {
	collection := s.store.DecodedUnits()

	release, err := s.locker.Acquire(ctx, collection.Name())
	if err != nil {
		return model.E(model.KindLock, "store decoded", err)
	}
	defer release()

	existing, err := collection.FindAll(ctx)
	if err != nil {
		return err
	}

	merged := make([]model.DecodedUnit, 0, len(existing)+1)
	replaced := false
	for _, e := range existing {
		if e.ID == u.ID {
			merged = append(merged, u)
			replaced = true
			continue
		}
		merged = append(merged, e)
	}
	if !replaced {
		merged = append(merged, u)
	}
	return collection.ReplaceAll(ctx, merged)
}

// SyncStatuses returns the status of every synchronized collection.
func (s *UnitService) SyncStatuses() []SyncStatus {
	return []SyncStatus{s.latest.Status(), s.sold.Status()}
}
