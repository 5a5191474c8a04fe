package tracing

import (
	"context"
	"time"

	"github.com/ordishs/gocore"
)

type statsKey struct{}

var defaultStat = gocore.NewStat("minichain", true)

// NewStatFromContext starts a child of the stat carried by ctx, or of fallback when ctx has
// none, and returns a context carrying the child. Children of the new stat are not broken out
// unless ignoreChildren is given as false.
func NewStatFromContext(ctx context.Context, key string, fallback *gocore.Stat, ignoreChildren ...bool) (time.Time, *gocore.Stat, context.Context) {
	parent, ok := ctx.Value(statsKey{}).(*gocore.Stat)
	if !ok {
		parent = fallback
	}

	ignore := len(ignoreChildren) == 0 || ignoreChildren[0]
	stat := parent.NewStat(key, ignore)

	return gocore.CurrentTime(), stat, context.WithValue(ctx, statsKey{}, stat)
}
