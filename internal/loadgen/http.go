package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/alexshd/antifragile/internal/pricing"
)

// PriceOperation posts queries to baseURL+"/price" in round-robin order.
// A small query set repeats often, which is what lets the service cache warm
// up as concurrency grows.
func PriceOperation(client *http.Client, baseURL string, queries []pricing.Query) (Operation, error) {
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries")
	}

	bodies := make([][]byte, len(queries))
	for i, q := range queries {
		b, err := json.Marshal(q)
		if err != nil {
			return nil, fmt.Errorf("encode query %d: %w", i, err)
		}
		bodies[i] = b
	}

	var next atomic.Uint64
	url := baseURL + "/price"

	return func(ctx context.Context) error {
		body := bodies[next.Add(1)%uint64(len(bodies))]

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	}, nil
}

// DefaultQueries is a small catalogue of repeatable price queries.
func DefaultQueries() []pricing.Query {
	return []pricing.Query{
		{ProductID: "widget-001", Quantity: 1},
		{ProductID: "widget-002", Quantity: 10, Options: []string{"gift-wrap"}},
		{ProductID: "gadget-001", Quantity: 25},
		{ProductID: "gadget-002", Quantity: 100, Options: []string{"insurance"}},
		{ProductID: "premium-001", Quantity: 5, Options: []string{"express-shipping", "priority-support"}},
		{ProductID: "premium-002", Quantity: 600, Options: []string{"extended-warranty"}},
	}
}
