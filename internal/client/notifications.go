package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/druksewa/marketplace/internal/core/domain"
)

// Notifications returns entries newer than after and the cursor for the
// next call.
func (c *Client) Notifications(ctx context.Context, after int64) ([]*domain.Notification, int64, error) {
	path := "/notifications"
	if after > 0 {
		path += "?after=" + strconv.FormatInt(after, 10)
	}
	req, _ := jsonRequest(http.MethodGet, path, nil, true)

	var resp struct {
		Notifications []*domain.Notification `json:"notifications"`
		LastSeq       int64                  `json:"last_seq"`
	}
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, after, err
	}
	return resp.Notifications, resp.LastSeq, nil
}
