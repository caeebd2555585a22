// Package ids builds record identifiers of the form <prefix>_<unix millis>_<suffix>.
package ids

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const suffixLen = 12

// New returns a fresh id for prefix stamped with t. The suffix comes from a
// random UUID, so ids minted in the same millisecond still differ.
func New(prefix string, t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]
	return prefix + "_" + strconv.FormatInt(t.UnixMilli(), 10) + "_" + suffix
}
