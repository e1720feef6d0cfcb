// Package figmaurl classifies figma.com URLs.
package figmaurl

import (
	"net/url"
	"strings"

	"figmamcp/internal/domain"
)

const nodeIDParam = "node-id"

var (
	figmaHosts = map[string]struct{}{
		"figma.com":     {},
		"www.figma.com": {},
	}
	fileSegments = map[string]struct{}{
		"file":   {},
		"design": {},
	}
)

// Resolver turns URLs into domain.URLInfo. The zero value is ready to use.
type Resolver struct{}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Parse classifies raw. Hosts other than figma.com fail with CodeInvalidURL;
// figma.com URLs that are not file links resolve to URLKindUnknown.
func (r *Resolver) Parse(raw string) (domain.URLInfo, error) {
	const op = "figmaurl.Parse"

	u, err := url.Parse(raw)
	if err != nil {
		return domain.URLInfo{}, domain.E(domain.CodeInvalidURL, op, "invalid url: "+raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return domain.URLInfo{}, domain.E(domain.CodeInvalidURL, op, "invalid url: "+raw, nil)
	}
	if _, ok := figmaHosts[strings.ToLower(u.Hostname())]; !ok {
		return domain.URLInfo{}, domain.E(domain.CodeInvalidURL, op, "Not a Figma URL: "+raw, domain.ErrNotFigmaURL)
	}

	info := domain.URLInfo{
		URLType:     domain.URLType{Kind: domain.URLKindUnknown},
		OriginalURL: raw,
	}
	fileID, ok := fileIDFromPath(u)
	if !ok {
		return info, nil
	}
	info.URLType = domain.URLType{
		Kind:   domain.URLKindFile,
		FileID: fileID,
		NodeID: rawQueryValue(u.RawQuery, nodeIDParam),
	}
	return info, nil
}

// ExtractFileID returns the file key of a file URL.
func (r *Resolver) ExtractFileID(raw string) (string, error) {
	info, err := r.Parse(raw)
	if err != nil {
		return "", err
	}
	if !info.IsFile() {
		return "", domain.E(domain.CodeInvalidURL, "figmaurl.ExtractFileID", "URL is not a file URL: "+raw, domain.ErrNotFileURL)
	}
	return info.URLType.FileID, nil
}

func fileIDFromPath(u *url.URL) (string, bool) {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", false
	}
	path := u.EscapedPath()
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) < 2 {
		return "", false
	}
	if _, ok := fileSegments[segments[0]]; !ok {
		return "", false
	}
	if !isAlphanumeric(segments[1]) {
		return "", false
	}
	return segments[1], true
}

// rawQueryValue returns the first non-empty value of key without decoding it.
func rawQueryValue(rawQuery, key string) *string {
	for _, pair := range strings.Split(rawQuery, "&") {
		name, value, found := strings.Cut(pair, "=")
		if !found || name != key || value == "" {
			continue
		}
		return &value
	}
	return nil
}

func isAlphanumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
