package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ideTokenFile mirrors the on-disk shape of Kiro IDE's cached SSO token.
type ideTokenFile struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// NormalizeWindowsPathToWSL rewrites a "C:\Users\..." style path into its
// WSL mount-point equivalent ("/mnt/c/Users/..."); paths that don't look
// like a Windows drive path are returned unchanged.
func NormalizeWindowsPathToWSL(path string) string {
	trimmed := strings.TrimSpace(path)
	if len(trimmed) < 3 || trimmed[1] != ':' {
		return trimmed
	}
	drive := trimmed[0]
	sep := trimmed[2]
	if sep != '\\' && sep != '/' {
		return trimmed
	}
	rest := strings.ReplaceAll(trimmed[3:], "\\", "/")
	rest = strings.TrimPrefix(rest, "/")
	return "/mnt/" + strings.ToLower(string(drive)) + "/" + rest
}

// FindIDETokenFiles scans usersRoot (a Windows Users directory, or its WSL
// mount-point equivalent) for any per-user Kiro IDE token cache.
func FindIDETokenFiles(usersRoot string) ([]string, error) {
	entries, err := os.ReadDir(usersRoot)
	if err != nil {
		return nil, err
	}
	var matches []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(usersRoot, entry.Name(), ".aws", "sso", "cache", "kiro-auth-token.json")
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			matches = append(matches, candidate)
		}
	}
	return matches, nil
}

// DiscoverIDETokenFile locates a single Kiro IDE token cache to use as this
// process's credential source: it tries the native-OS Users root first,
// then (when running under WSL) the Windows Users root through its /mnt
// mount point. Returns "" if none is found.
func DiscoverIDETokenFile() string {
	roots := []string{filepath.Join(string(os.PathSeparator), "Users")}
	if runtime.GOOS == "linux" {
		roots = append(roots, NormalizeWindowsPathToWSL(`C:\Users`))
	}
	for _, root := range roots {
		matches, err := FindIDETokenFiles(root)
		if err == nil && len(matches) > 0 {
			return matches[0]
		}
	}
	return ""
}

// ideFileTokenSource is an oauth2.TokenSource backed by a Kiro IDE token
// cache file, re-read from disk on every call so an external IDE refresh is
// picked up without restarting the gateway.
type ideFileTokenSource struct {
	path string
}

// NewIDEFileTokenSource builds a TokenSource that reads path fresh each time
// Token is called.
func NewIDEFileTokenSource(path string) oauth2.TokenSource {
	return &ideFileTokenSource{path: path}
}

func (s *ideFileTokenSource) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("credentials: reading IDE token file: %w", err)
	}
	var cached ideTokenFile
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("credentials: parsing IDE token file: %w", err)
	}
	if cached.AccessToken == "" {
		return nil, fmt.Errorf("credentials: IDE token file %s has no accessToken", s.path)
	}
	return &oauth2.Token{
		AccessToken:  cached.AccessToken,
		RefreshToken: cached.RefreshToken,
		Expiry:       cached.ExpiresAt,
	}, nil
}
