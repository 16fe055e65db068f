package badger

import (
	"errors"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db         *BadgerDB
	target     interfaces.TargetStorage
	dna        interfaces.DnaStorage
	event      interfaces.EventStorage
	requestLog interfaces.RequestLogStorage
	greenLight interfaces.GreenLightStorage
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:         db,
		target:     NewTargetStorage(db, logger),
		dna:        NewDnaStorage(db, logger),
		event:      NewEventStorage(db, logger),
		requestLog: NewRequestLogStorage(db, logger),
		greenLight: NewGreenLightStorage(db, logger),
		logger:     logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// TargetStorage returns the target storage interface
func (m *Manager) TargetStorage() interfaces.TargetStorage {
	return m.target
}

// DnaStorage returns the DNA snapshot storage interface
func (m *Manager) DnaStorage() interfaces.DnaStorage {
	return m.dna
}

// EventStorage returns the learning event storage interface
func (m *Manager) EventStorage() interfaces.EventStorage {
	return m.event
}

// RequestLogStorage returns the request log storage interface
func (m *Manager) RequestLogStorage() interfaces.RequestLogStorage {
	return m.requestLog
}

// GreenLightStorage returns the green-light state storage interface
func (m *Manager) GreenLightStorage() interfaces.GreenLightStorage {
	return m.greenLight
}

// RunValueLogGC triggers one round of Badger value-log garbage collection.
// ErrNoRewrite means there was nothing to reclaim and is not an error.
func (m *Manager) RunValueLogGC() error {
	err := m.db.Store().Badger().RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
		return err
	}
	return nil
}

// Close closes the underlying database connection
func (m *Manager) Close() error {
	return m.db.Close()
}
