package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/ashc/internal/ledger"
	"github.com/roach88/ashc/internal/store"
)

// openExistingStore opens the database for a read command. The file must
// already exist; read commands never create one.
func openExistingStore(opts *RootOptions, flag string) (*store.Store, error) {
	path := opts.dbPath(flag)
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no database: pass --db or set ASHC_DB_PATH")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// restoreLedger replays every stored settlement for the ledger's identity.
func restoreLedger(ctx context.Context, st *store.Store, l *ledger.Ledger) error {
	settlements, err := st.ReadSettlements(ctx, l.Identity())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read settlements", err)
	}
	for _, s := range settlements {
		if _, err := l.RecordSettlement(s); err != nil {
			return WrapExitError(ExitCommandError, "failed to replay settlement", err)
		}
	}
	return nil
}
