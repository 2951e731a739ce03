package sdk

import (
	"os"
	"path/filepath"

	"github.com/cognivault-dev/cognivault-ledger/internal/ledger"
)

// New initializes a ChainStore based on the environment. When
// COGNIVAULT_LEDGER_ADDR points at a reachable daemon the remote client
// is returned; otherwise the ledger engine runs embedded, persisting to
// a SQLite file under dataDir.
func New(dataDir string) (ChainStore, error) {
	if remoteAddr := os.Getenv("COGNIVAULT_LEDGER_ADDR"); remoteAddr != "" {
		client, err := Connect(remoteAddr)
		if err == nil {
			return client, nil
		}
		// Connection failed; fall through to embedded mode.
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	p, err := ledger.NewSQLitePersistence(filepath.Join(dataDir, "ledger.db"))
	if err != nil {
		return nil, err
	}

	data, err := p.LoadAll()
	if err != nil {
		return nil, err
	}

	return ledger.NewMemLedger(data, p, nil), nil
}
