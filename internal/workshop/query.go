package workshop

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"go-workshop-client/internal/models"
	"go-workshop-client/internal/native"
)

// GetDetails fetches metadata for a batch of items with one native query.
//
// The input is validated against the native per-call cap
// (native.MaxQueryItems): nil input or an oversized batch is rejected with
// ErrInvalidArgument and no native call is made. Invalid ids are filtered
// out and duplicates collapsed to their first occurrence; if nothing valid
// remains, an empty slice is returned without touching the native layer.
//
// Results come back in the order the native layer reports them, which is not
// necessarily input order. Rows the native layer cannot materialize are
// skipped; they do not abort their siblings. When fullDescription is false
// the native layer truncates descriptions to native.MaxShortDescription
// bytes.
func (c *Client) GetDetails(ctx context.Context, ids []models.ItemID, fullDescription bool) ([]models.DetailRecord, error) {
	if ids == nil {
		return nil, fmt.Errorf("%w: no item ids provided", ErrInvalidArgument)
	}
	if len(ids) > native.MaxQueryItems {
		return nil, fmt.Errorf("%w: %d ids exceeds the per-query cap of %d", ErrInvalidArgument, len(ids), native.MaxQueryItems)
	}

	filtered := dedupeValid(ids)
	if len(filtered) == 0 {
		log.Debug("Detail query input empty after filtering, skipping native call")
		return []models.DetailRecord{}, nil
	}

	// Children resolution is always requested: child counts feed
	// GetDependencies and must be present in every record.
	pending, err := c.bridge.Submit(func() (native.CallHandle, error) {
		return c.svc.SubmitDetailQuery(filtered, fullDescription, true)
	})
	if err != nil {
		return nil, fmt.Errorf("submitting detail query: %w", err)
	}

	ev, err := pending.Wait(ctx)
	if err != nil {
		// The bridge releases the query handle when the orphaned
		// completion arrives; nothing to clean up here.
		return nil, fmt.Errorf("awaiting detail query: %w", err)
	}
	defer c.svc.ReleaseQuery(ev.Handle)

	if ev.IOFailure {
		log.WithField("handle", ev.Handle).Warn("Detail query completed with I/O failure")
		return nil, ErrQueryFailed
	}

	count := c.svc.ResultCount(ev.Handle)
	records := make([]models.DetailRecord, 0, count)
	for i := 0; i < count; i++ {
		rec, ok := c.svc.Result(ev.Handle, i)
		if !ok {
			log.WithFields(log.Fields{"handle": ev.Handle, "index": i}).Warn("Skipping query row the native layer could not materialize")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetItemDetails is the single-item convenience over GetDetails. It returns
// the zero DetailRecord when the native layer produced no row for the item.
func (c *Client) GetItemDetails(ctx context.Context, id models.ItemID, fullDescription bool) (models.DetailRecord, error) {
	records, err := c.GetDetails(ctx, []models.ItemID{id}, fullDescription)
	if err != nil {
		return models.DetailRecord{}, err
	}
	if len(records) == 0 {
		return models.DetailRecord{}, nil
	}
	return records[0], nil
}

// GetDependencies enumerates the child items of id. childCount is the
// expected number of children, normally taken from the item's DetailRecord.
//
// A zero childCount, an invalid id, or an unavailable service all
// short-circuit to an empty result with no native call; a native failure to
// populate children likewise yields an empty result rather than an error.
//
// TODO: fetch additional result pages. The native query exposes at most one
// page (native.MaxQueryItems children); larger child sets are truncated.
func (c *Client) GetDependencies(ctx context.Context, id models.ItemID, childCount int) ([]models.ItemID, error) {
	if childCount <= 0 || !id.Valid() || !c.svc.Available() {
		return []models.ItemID{}, nil
	}

	pending, err := c.bridge.Submit(func() (native.CallHandle, error) {
		return c.svc.SubmitChildrenQuery(id)
	})
	if err != nil {
		return nil, fmt.Errorf("submitting children query: %w", err)
	}

	ev, err := pending.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("awaiting children query: %w", err)
	}
	defer c.svc.ReleaseQuery(ev.Handle)

	if ev.IOFailure {
		log.WithFields(log.Fields{"item": id, "handle": ev.Handle}).Warn("Children query completed with I/O failure")
		return []models.ItemID{}, nil
	}

	max := childCount
	if max > native.MaxQueryItems {
		max = native.MaxQueryItems
	}
	children, ok := c.svc.Children(ev.Handle, 0, max)
	if !ok {
		log.WithField("item", id).Warn("Native layer could not populate children, returning empty set")
		return []models.ItemID{}, nil
	}
	return children, nil
}

// dedupeValid drops invalid ids and collapses duplicates, preserving first
// occurrence order.
func dedupeValid(ids []models.ItemID) []models.ItemID {
	seen := make(map[models.ItemID]struct{}, len(ids))
	out := make([]models.ItemID, 0, len(ids))
	for _, id := range ids {
		if !id.Valid() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
