package granola

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/starford/granola-sync/internal/apperr"
)

const credentialsFile = "supabase.json"

// tokenKeys are the top-level keys that may hold the token object, newest first.
var tokenKeys = []string{"workos_tokens", "cognito_tokens"}

// CredentialPaths lists the credential files to try, in order: the override
// (when set), then the per-platform default locations.
func CredentialPaths(override string) []string {
	var out []string
	if override != "" {
		out = append(out, expandHome(override))
	}
	home, _ := os.UserHomeDir()
	if home != "" {
		out = append(out, filepath.Join(home, "Library", "Application Support", "Granola", credentialsFile))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		out = append(out, filepath.Join(xdg, "Granola", credentialsFile))
	} else if home != "" && runtime.GOOS != "windows" {
		out = append(out, filepath.Join(home, ".config", "Granola", credentialsFile))
	}
	if appData := os.Getenv("APPDATA"); appData != "" {
		out = append(out, filepath.Join(appData, "Granola", credentialsFile))
	}
	return out
}

// LoadToken returns the access token from the first readable credentials
// file that carries one. Missing files are skipped; when no file yields a
// token the error wraps apperr.ErrNoCredentials.
func LoadToken(paths []string) (string, error) {
	var errs []error
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		tok, err := ParseToken(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		return tok, nil
	}
	if len(errs) > 0 {
		return "", fmt.Errorf("granola: %w: %w", apperr.ErrNoCredentials, errors.Join(errs...))
	}
	return "", fmt.Errorf("granola: %w (tried %s)", apperr.ErrNoCredentials, strings.Join(paths, ", "))
}

// ParseToken extracts the access token from the content of a credentials
// file. Each known key may hold the token object directly or as a
// JSON-encoded string.
func ParseToken(data []byte) (string, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return "", fmt.Errorf("parse credentials: %w", err)
	}
	for _, key := range tokenKeys {
		raw, ok := root[key]
		if !ok {
			continue
		}
		if tok := accessToken(raw); tok != "" {
			return tok, nil
		}
	}
	return "", errors.New("no access token in credentials")
}

func accessToken(raw json.RawMessage) string {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}
	var obj struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	return strings.TrimSpace(obj.AccessToken)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
