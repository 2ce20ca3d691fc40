package bitbucket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rios0rios0/gitbridge/internal/infrastructure/repositories/httpclient"
)

// pagedResult is the envelope of every Bitbucket Server listing.
type pagedResult[T any] struct {
	Values        []T  `json:"values"`
	IsLastPage    bool `json:"isLastPage"`
	NextPageStart int  `json:"nextPageStart"`
}

// collect walks start/limit pages until isLastPage, stopping early once max items
// were gathered when max > 0.
func collect[T any](ctx context.Context, client *httpclient.Client, endpoint string, maxItems int) ([]T, error) {
	separator := "?"
	if strings.Contains(endpoint, "?") {
		separator = "&"
	}

	var all []T
	start := 0
	for {
		var page pagedResult[T]
		paged := fmt.Sprintf("%s%sstart=%d&limit=%d", endpoint, separator, start, pageLimit)
		if _, err := client.DoJSON(ctx, http.MethodGet, paged, nil, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Values...)
		if maxItems > 0 && len(all) >= maxItems {
			return all[:maxItems], nil
		}
		next, more := advance(start, page.IsLastPage, page.NextPageStart, len(page.Values))
		if !more {
			return all, nil
		}
		start = next
	}
}

// advance returns the start of the following page, or false when paging has to
// stop: the server flagged the last page, returned nothing, or did not move forward.
func advance(start int, isLastPage bool, nextPageStart, count int) (int, bool) {
	if isLastPage || count == 0 || nextPageStart <= start {
		return 0, false
	}
	return nextPageStart, true
}

func isNotFound(err error) bool {
	var statusErr *httpclient.StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
