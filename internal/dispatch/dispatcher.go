// Package dispatch runs Revox operations over a batch of input items.
//
// Items are processed strictly in order, one request at a time, so output order
// follows input order. Every output record is paired with the index of the item
// that produced it.
package dispatch

import (
	"context"

	"revox-adapter/internal/revox"
	"revox-adapter/pkg/logger"
)

// Transport sends one request to the Revox API.
// Timeouts and cancellation are the transport's concern.
type Transport interface {
	Do(ctx context.Context, r revox.Request) (map[string]any, error)
}

// Options is per-run behavior supplied by the caller.
type Options struct {
	// ContinueOnFail turns a failing item into an {"error": ...} record
	// instead of aborting the run.
	ContinueOnFail bool
}

type Dispatcher struct {
	transport Transport
}

func New(t Transport) *Dispatcher {
	return &Dispatcher{transport: t}
}

// Run executes op for every item. Without ContinueOnFail the first failure
// aborts the run and is returned as *ItemError.
func (d *Dispatcher) Run(ctx context.Context, op Operation, items []Item, opts Options) ([]OutputItem, error) {
	log := logger.From(ctx).With("operation", op.String())
	out := make([]OutputItem, 0, len(items))

	for i, item := range items {
		records, err := d.runItem(ctx, op, item)
		if err != nil {
			if !opts.ContinueOnFail {
				log.Warn("item failed, aborting run", "item_index", i, "err", err)
				return nil, &ItemError{Index: i, Err: err}
			}
			log.Warn("item failed, continuing", "item_index", i, "err", err)
			out = append(out, OutputItem{
				JSON:       map[string]any{"error": err.Error()},
				PairedItem: PairedItem{Item: i},
			})
			continue
		}
		for _, rec := range records {
			out = append(out, OutputItem{JSON: rec, PairedItem: PairedItem{Item: i}})
		}
	}

	log.Debug("run finished", "items_in", len(items), "items_out", len(out))
	return out, nil
}

func (d *Dispatcher) runItem(ctx context.Context, op Operation, item Item) ([]map[string]any, error) {
	cmd, err := resolve(op, item.Params)
	if err != nil {
		return nil, err
	}
	resp, err := d.transport.Do(ctx, cmd.request())
	if err != nil {
		return nil, err
	}
	return cmd.shape(resp)
}
