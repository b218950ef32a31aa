package directory

import (
	"context"
	"crypto/md5"
	"strings"

	"github.com/google/uuid"
)

// Offline derives the id an offline-mode server assigns: a name-based MD5 uuid of
// "OfflinePlayer:<name>". Every non-empty name resolves.
type Offline struct{}

func (Offline) Resolve(_ context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNotFound
	}
	return OfflineID(name), nil
}

func OfflineID(name string) string {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	id, _ := uuid.FromBytes(sum[:])
	return id.String()
}
