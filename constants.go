package storedsafe

import "time"

// Environment variable names
const (
	// EnvServer is the environment variable name for the StoredSafe server
	// address (host name, no scheme). Takes precedence over the
	// storedsafe_server framework variable and the rc file.
	EnvServer = "STOREDSAFE_SERVER"

	// EnvToken is the environment variable name for the StoredSafe session
	// token. Takes precedence over the token stored in the rc file.
	EnvToken = "STOREDSAFE_TOKEN"

	// EnvCABundle is the environment variable name for a custom CA bundle
	// file used to verify the vault's TLS certificate.
	EnvCABundle = "STOREDSAFE_CABUNDLE"

	// EnvSkipVerify is the environment variable name that disables TLS peer
	// verification. Only the literal values "1", "true", "True" and "t"
	// enable it.
	EnvSkipVerify = "STOREDSAFE_SKIP_VERIFY"

	// EnvTokenUpdateScript is the environment variable name for the path to
	// the token refresh helper script. When set, a missing or rejected token
	// is recoverable: the script is run and the rc file re-read.
	EnvTokenUpdateScript = "STOREDSAFE_TOKEN_UPDATE_SCRIPT"

	// EnvRCFile is the environment variable name that overrides the rc file
	// location. Default: ~/.storedsafe-client.rc
	EnvRCFile = "STOREDSAFE_RC_FILE"
)

// Framework variable names, consulted when the corresponding environment
// variable is unset. These are the names host automation frameworks pass in
// their variable map.
const (
	VarServer            = "storedsafe_server"
	VarCABundle          = "storedsafe_cabundle"
	VarSkipVerify        = "storedsafe_skip_verify"
	VarTokenUpdateScript = "storedsafe_token_update_script"
	VarRCFile            = "storedsafe_rc_file"
)

// Default values
const (
	// DefaultRCFile is the default rc file path. The leading ~ is expanded
	// to the invoking user's home directory.
	DefaultRCFile = "~/.storedsafe-client.rc"

	// LockFilePath is the fixed lock file serializing token refreshes across
	// concurrent invocations. Existence of the file means locked.
	LockFilePath = "/tmp/.storedsafe_token_update_lock"

	// APIBasePath is the REST base path appended to the server address.
	APIBasePath = "/api/1.0"

	// MaxRetries bounds the total number of refresh-triggered retries across
	// one whole invocation, shared between authentication and all terms.
	MaxRetries = 5

	// UpdateWaitSleep is the fixed interval between lock file polls while
	// another invocation holds the refresh lock.
	UpdateWaitSleep = 2 * time.Second

	// DownloadField is the reserved field name selecting file-content
	// retrieval instead of plain-field retrieval.
	DownloadField = "download"

	// AuthSuccessMarker is the CALLINFO.status value the vault returns on a
	// valid session.
	AuthSuccessMarker = "SUCCESS"

	// TokenHeader carries the session token on auth requests.
	TokenHeader = "x-http-token"
)

// rc file keys and the literal marking a value as explicitly absent.
const (
	rcKeyToken  = "token"
	rcKeyServer = "mysite"
	rcNone      = "none"
)
