package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/common"
	"github.com/10thony/prospector/internal/interfaces"
)

// Manager wires the badger-backed storage services behind StorageManager
type Manager struct {
	db      *BadgerDB
	runs    interfaces.RunStorage
	leads   interfaces.LeadStorage
	results interfaces.ResultStorage
	reviews interfaces.ReviewStorage
	logger  arbor.ILogger
}

// NewManager opens the database and initializes all storage services
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize badger storage: %w", err)
	}

	return &Manager{
		db:      db,
		runs:    NewRunStorage(db, logger),
		leads:   NewLeadStorage(db, logger),
		results: NewResultStorage(db, logger),
		reviews: NewReviewStorage(db, logger),
		logger:  logger,
	}, nil
}

func (m *Manager) RunStorage() interfaces.RunStorage {
	return m.runs
}

func (m *Manager) LeadStorage() interfaces.LeadStorage {
	return m.leads
}

func (m *Manager) ResultStorage() interfaces.ResultStorage {
	return m.results
}

func (m *Manager) ReviewStorage() interfaces.ReviewStorage {
	return m.reviews
}

// Close closes the underlying database
func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing storage manager")
	return m.db.Close()
}
