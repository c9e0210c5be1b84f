// Package storedsafe retrieves secrets from a StoredSafe vault for host
// automation frameworks.
//
// A lookup resolves terms of the form "<objectid>/<fieldname>" into the
// decrypted field values, in input order. The reserved field name "download"
// returns the decoded content of the object's attached file instead of a
// named field.
//
// # Configuration
//
// Configuration resolves per field from the environment first, then from
// variables supplied by the host framework, and for the server and token
// from the rc file (~/.storedsafe-client.rc by default):
//
//	export STOREDSAFE_SERVER=safe.example.com
//	export STOREDSAFE_TOKEN=abc123
//
// When STOREDSAFE_TOKEN_UPDATE_SCRIPT points at a login helper, a missing or
// rejected token is recovered by running the helper and re-reading the rc
// file it rewrites. Concurrent invocations serialize their refreshes through
// the lock file /tmp/.storedsafe_token_update_lock.
//
// # Quick start
//
//	values, err := storedsafe.Run(ctx, []string{"628/username", "628/password"}, nil)
//	if err != nil {
//	    return err
//	}
//	// values[0] is the username, values[1] the password
//
// For finer control resolve the configuration yourself and build a Lookup:
//
//	cfg, err := storedsafe.ResolveConfig(frameworkVars)
//	lookup, err := storedsafe.New(cfg,
//	    storedsafe.WithRefreshTimeout(2*time.Minute),
//	)
//	values, err := lookup.Run(ctx, terms)
//
// # Failure model
//
// Token rejections are retried after a refresh, bounded by a budget of five
// refresh attempts shared across the whole invocation. Everything else is
// fatal on first occurrence: unreachable vault, protocol mismatches, missing
// objects or fields, and non-403 HTTP errors. An invocation never returns
// partial results.
package storedsafe
