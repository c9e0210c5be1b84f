package storedsafe

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cast"
)

// skipVerifyValues is the fixed set of environment values that enable
// STOREDSAFE_SKIP_VERIFY. Anything else, including "yes" or "TRUE", does not.
var skipVerifyValues = map[string]bool{
	"1":    true,
	"true": true,
	"True": true,
	"t":    true,
}

// ResolveConfig builds a Config from the environment, the framework-supplied
// variable map, and the rc file, in that precedence order per field.
//
// The vars map holds variables supplied by the host automation framework
// (e.g. storedsafe_server). Values may be any YAML/JSON scalar; they are
// coerced to strings. Pass nil when no framework variables are available.
//
// Only the server and the token fall back to the rc file; the rc file is read
// at most once, and only when one of the two is otherwise unresolved. The
// returned Config is validated.
func ResolveConfig(vars map[string]any) (Config, error) {
	rcFile, err := resolveRCPath(vars)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server:            resolveVar(EnvServer, VarServer, vars),
		Token:             os.Getenv(EnvToken),
		CABundle:          resolveVar(EnvCABundle, VarCABundle, vars),
		SkipVerify:        resolveSkipVerify(vars),
		TokenUpdateScript: resolveVar(EnvTokenUpdateScript, VarTokenUpdateScript, vars),
		RCFile:            rcFile,
	}

	if cfg.Server == "" || cfg.Token == "" {
		server, token, err := readRCFile(rcFile)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		if cfg.Server == "" {
			cfg.Server = server
		}
		if cfg.Token == "" {
			cfg.Token = token
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveRCPath(vars map[string]any) (string, error) {
	path := resolveVar(EnvRCFile, VarRCFile, vars)
	if path == "" {
		path = DefaultRCFile
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("%w: expand rc file path %q: %w", ErrInvalidConfiguration, path, err)
	}
	return expanded, nil
}

// resolveVar returns the environment variable when set, otherwise the
// framework variable coerced to a string.
func resolveVar(envName, varName string, vars map[string]any) string {
	if v := os.Getenv(envName); v != "" {
		return v
	}
	return cast.ToString(vars[varName])
}

func resolveSkipVerify(vars map[string]any) bool {
	return skipVerifyValues[os.Getenv(EnvSkipVerify)] || cast.ToBool(vars[VarSkipVerify])
}
