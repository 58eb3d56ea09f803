package cli

import (
	"fmt"

	"github.com/pitstopcrm/gateway/internal/store"
)

// openStore opens the gateway database at the resolved data directory.
func openStore() (*store.Store, error) {
	st, err := store.New(resolveDataDir())
	if err != nil {
		return nil, fmt.Errorf("open gateway store: %w", err)
	}
	return st, nil
}
