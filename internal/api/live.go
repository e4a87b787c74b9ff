package api

import (
	"strconv"

	"github.com/sells-group/provenance-cli/internal/model"
)

// liveFrom builds live auction counts from query values. It returns nil when
// none parse.
func liveFrom(bids, views, watchers string) *model.LiveContext {
	lc := &model.LiveContext{
		BidCount:     atoi(bids),
		ViewCount:    atoi(views),
		WatcherCount: atoi(watchers),
	}
	if lc.BidCount == nil && lc.ViewCount == nil && lc.WatcherCount == nil {
		return nil
	}
	return lc
}

func atoi(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
