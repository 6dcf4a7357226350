package jenkins

import (
	"context"
	"io"
)

// DoRequest exports doRequest for white-box tests
func (c *Client) DoRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	return c.doRequest(ctx, method, path, body)
}

// ExtractQueueItem exports extractQueueItem for white-box tests
func (c *Client) ExtractQueueItem(location string) *QueueItem {
	return c.extractQueueItem(location)
}
