package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// objectKey builds "<dir>/<prefix><unixmilli>-<uuid><ext>". The uuid makes
// keys unique even for uploads landing in the same millisecond.
func objectKey(dir, prefix, ext string, now time.Time) string {
	return fmt.Sprintf("%s/%s%d-%s%s", dir, prefix, now.UnixMilli(), uuid.NewString(), ext)
}
