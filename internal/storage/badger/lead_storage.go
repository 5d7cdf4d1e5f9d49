package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/models"
)

// LeadStorage implements the LeadStorage interface for Badger, including
// the two range primitives the cursor paginator composes.
//
// Traversal order is the compound key (CreatedAt, ID): both ascending for
// oldest_first, both descending for newest_first. CreatedAt is not unique,
// so every range query sorts by both fields to keep page boundaries stable.
type LeadStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLeadStorage creates a new LeadStorage instance
func NewLeadStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LeadStorage {
	return &LeadStorage{
		db:     db,
		logger: logger,
	}
}

func (s *LeadStorage) SaveLead(ctx context.Context, lead *models.Lead) error {
	if err := lead.Validate(); err != nil {
		return fmt.Errorf("invalid lead: %w", err)
	}

	if err := s.db.Store().Upsert(lead.ID, lead); err != nil {
		return fmt.Errorf("failed to save lead: %w", err)
	}
	return nil
}

func (s *LeadStorage) GetLead(ctx context.Context, leadID string) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.Store().Get(leadID, &lead); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("lead not found: %s", leadID)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &lead, nil
}

func (s *LeadStorage) ListLeads(ctx context.Context, limit, offset int) ([]*models.Lead, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt", "ID").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var leads []models.Lead
	if err := s.db.Store().Find(&leads, query); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return toLeadPtrs(leads), nil
}

func (s *LeadStorage) CountLeads(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Lead{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return int(count), nil
}

// LeadsAfter returns up to limit leads strictly beyond sortKey in the
// traversal direction, in compound (CreatedAt, ID) order. A zero sortKey
// starts the traversal from the beginning.
func (s *LeadStorage) LeadsAfter(ctx context.Context, order models.SortOrder, sortKey time.Time, limit int) ([]*models.Lead, error) {
	var query *badgerhold.Query

	switch order {
	case models.SortOldestFirst:
		if sortKey.IsZero() {
			query = badgerhold.Where("ID").Ne("").SortBy("CreatedAt", "ID")
		} else {
			query = badgerhold.Where("CreatedAt").Gt(sortKey).SortBy("CreatedAt", "ID")
		}
	case models.SortNewestFirst:
		if sortKey.IsZero() {
			query = badgerhold.Where("ID").Ne("").SortBy("CreatedAt", "ID").Reverse()
		} else {
			query = badgerhold.Where("CreatedAt").Lt(sortKey).SortBy("CreatedAt", "ID").Reverse()
		}
	default:
		return nil, fmt.Errorf("invalid sort order: %s", order)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	var leads []models.Lead
	if err := s.db.Store().Find(&leads, query); err != nil {
		return nil, fmt.Errorf("failed to query leads after cursor: %w", err)
	}
	return toLeadPtrs(leads), nil
}

// LeadsAtKey returns up to limit leads sharing sortKey whose ID is strictly
// beyond tiebreakID in the traversal direction, ordered by ID in that
// direction. These are the boundary ties a previous page stopped inside.
func (s *LeadStorage) LeadsAtKey(ctx context.Context, order models.SortOrder, sortKey time.Time, tiebreakID string, limit int) ([]*models.Lead, error) {
	var query *badgerhold.Query

	switch order {
	case models.SortOldestFirst:
		query = badgerhold.Where("CreatedAt").Eq(sortKey).And("ID").Gt(tiebreakID).SortBy("ID")
	case models.SortNewestFirst:
		query = badgerhold.Where("CreatedAt").Eq(sortKey).And("ID").Lt(tiebreakID).SortBy("ID").Reverse()
	default:
		return nil, fmt.Errorf("invalid sort order: %s", order)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	var leads []models.Lead
	if err := s.db.Store().Find(&leads, query); err != nil {
		return nil, fmt.Errorf("failed to query leads at cursor key: %w", err)
	}
	return toLeadPtrs(leads), nil
}

func toLeadPtrs(leads []models.Lead) []*models.Lead {
	result := make([]*models.Lead, len(leads))
	for i := range leads {
		result[i] = &leads[i]
	}
	return result
}
