package storedsafe

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
)

var (
	rcTokenPattern  = regexp.MustCompile(`^token:([a-zA-Z0-9]+)\s*$`)
	rcServerPattern = regexp.MustCompile(`^mysite:([-a-zA-Z0-9_.]+)\s*$`)
)

// readRCFile reads a StoredSafe rc file and returns the server and token it
// holds. The format is flat text with one key per line, "token:<value>" and
// "mysite:<value>".
//
// A missing file is not an error: both values come back empty. The literal
// value "none" on either key marks the credentials as explicitly logged out,
// in which case neither value is returned at all.
func readRCFile(path string) (server, token string, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("read rc file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if m := rcTokenPattern.FindStringSubmatch(line); m != nil {
			if m[1] == rcNone {
				return "", "", nil
			}
			token = m[1]
		}
		if m := rcServerPattern.FindStringSubmatch(line); m != nil {
			if m[1] == rcNone {
				return "", "", nil
			}
			server = m[1]
		}
	}
	if err := scanner.Err(); err != nil {
		return "", "", fmt.Errorf("read rc file %s: %w", path, err)
	}
	return server, token, nil
}
