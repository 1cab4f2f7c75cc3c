package ids

import "github.com/segmentio/ksuid"

// New returns a k-sortable unique id in string form. All externally
// reported story/highlight/comment identifiers come from here.
func New() string {
	return ksuid.New().String()
}
