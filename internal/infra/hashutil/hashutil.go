package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"figmamcp/internal/infra/jsonutil"
)

type resourceDigest struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MIMEType    string `json:"mimeType"`
	Size        int64  `json:"size"`
}

// ResourceETag returns an ETag for a resource list and logs on failure. The
// list order is significant.
func ResourceETag(logger *zap.Logger, resources []*mcp.Resource) string {
	return hashWithLogger(logger, "resource", func() (string, error) {
		digests := make([]resourceDigest, 0, len(resources))
		for _, res := range resources {
			if res == nil {
				continue
			}
			digests = append(digests, resourceDigest{
				URI:         res.URI,
				Name:        res.Name,
				Description: res.Description,
				MIMEType:    res.MIMEType,
				Size:        res.Size,
			})
		}
		return hashJSON(digests)
	})
}

func hashJSON(v any) (string, error) {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func hashWithLogger(logger *zap.Logger, label string, fn func() (string, error)) string {
	etag, err := fn()
	if err != nil {
		if logger != nil {
			logger.Warn(fmt.Sprintf("%s hash failed", label), zap.Error(err))
		}
		return ""
	}
	return etag
}
