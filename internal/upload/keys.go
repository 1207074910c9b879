package upload

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

const keyPrefix = "uploads"

// defaultKeyID returns a short random prefix for object keys. Derived from a
// UUID so two plans for the same logical file never collide on the same key.
func defaultKeyID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// objectKey builds the S3 key for a planned upload: uploads/<id>-<name>.
func objectKey(id, fileName string) string {
	return fmt.Sprintf("%s/%s-%s", keyPrefix, id, sanitizeFileName(fileName))
}

// sanitizeFileName strips any path components from the client-supplied name
// and replaces characters outside [A-Za-z0-9._-] so the key stays portable.
func sanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	s := b.String()
	if s == "" || s == "." || s == ".." {
		return "file"
	}
	return s
}
