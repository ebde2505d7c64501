package common

import (
	"fmt"

	"github.com/mailtools/mailbridge/internal/mailerr"
	"github.com/mailtools/mailbridge/internal/server"
	"github.com/mailtools/mailbridge/internal/store"
)

// AccountFromArgs extracts the account key from request arguments.
// An empty string means the caller wants the default account.
func AccountFromArgs(args map[string]interface{}) string {
	if accountVal, ok := args["account"].(string); ok {
		return accountVal
	}
	return ""
}

// ResolveAccount looks up the credential record for a tool call: the
// explicit "account" argument when present, the store's default
// otherwise. Lookups accept either the address or the display name.
func ResolveAccount(sc *server.ServerContext, args map[string]interface{}) (store.Record, error) {
	const op = "tools.resolve_account"

	key := AccountFromArgs(args)
	if key != "" {
		rec, ok, err := sc.Store().Get(key)
		if err != nil {
			return store.Record{}, fmt.Errorf("read account store: %w", err)
		}
		if !ok {
			return store.Record{}, mailerr.E(mailerr.KindNotFound, op,
				fmt.Errorf("no account matching %q; log in first with mail_login", key))
		}
		return checkActive(rec, op)
	}

	rec, ok, err := sc.Store().GetDefault()
	if err != nil {
		return store.Record{}, fmt.Errorf("read account store: %w", err)
	}
	if !ok {
		return store.Record{}, mailerr.E(mailerr.KindNotFound, op,
			fmt.Errorf("no default account configured; log in first with mail_login"))
	}
	return checkActive(rec, op)
}

// checkActive rejects soft-disabled records before any network work so
// that a disabled account reports needs-re-auth instead of retrying the
// refresh that already failed.
func checkActive(rec store.Record, op string) (store.Record, error) {
	if !rec.Active {
		return store.Record{}, mailerr.E(mailerr.KindAuthExpired, op,
			fmt.Errorf("account %s needs re-authentication; log in again with mail_login", rec.Address))
	}
	return rec, nil
}
