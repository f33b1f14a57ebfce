package workshop_test

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-workshop-client/internal/models"
	"go-workshop-client/internal/native"
	"go-workshop-client/internal/native/sim"
	"go-workshop-client/internal/workshop"
)

// newTestClient wires a client over a fresh simulator seeded with the given
// items. Teardown closes the backend stream first so the client's dispatch
// loop can exit.
func newTestClient(t *testing.T, seed ...sim.Item) (*workshop.Client, *sim.Service) {
	t.Helper()
	svc := sim.New()
	for _, it := range seed {
		svc.AddItem(it)
	}
	client := workshop.New(svc)
	t.Cleanup(func() {
		svc.Close()
		client.Close()
	})
	return client, svc
}

func TestGetDetailsRejectsOversizedBatch(t *testing.T) {
	client, svc := newTestClient(t)

	ids := make([]models.ItemID, native.MaxQueryItems+1)
	for i := range ids {
		ids[i] = models.ItemID(i + 1)
	}

	_, err := client.GetDetails(context.Background(), ids, false)
	require.ErrorIs(t, err, workshop.ErrInvalidArgument)
	assert.Equal(t, 0, svc.QueryCount(), "oversized batch must not reach the native layer")
}

func TestGetDetailsRejectsNilInput(t *testing.T) {
	client, svc := newTestClient(t)

	_, err := client.GetDetails(context.Background(), nil, false)
	require.ErrorIs(t, err, workshop.ErrInvalidArgument)
	assert.Equal(t, 0, svc.QueryCount())
}

func TestGetDetailsFiltersInvalidAndDuplicateIDs(t *testing.T) {
	client, svc := newTestClient(t, sim.Item{ID: 5, Title: "Lone Survivor"})

	// Zero, a duplicate, and a value that is negative when reinterpreted as
	// signed must all be stripped before submission.
	ids := []models.ItemID{0, 5, 5, models.ItemID(math.MaxUint64 - 2)}
	records, err := client.GetDetails(context.Background(), ids, false)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.ItemID(5), records[0].ID)
	assert.Equal(t, "Lone Survivor", records[0].Title)

	handle, batch := svc.LastQuery()
	require.NotEqual(t, native.InvalidCallHandle, handle)
	assert.Equal(t, []models.ItemID{5}, batch, "native layer must see only the valid, deduplicated id")
	assert.Equal(t, 1, svc.ReleaseCount(handle), "handle must be released exactly once")
}

func TestGetDetailsAllInvalidSkipsNativeCall(t *testing.T) {
	client, svc := newTestClient(t)

	records, err := client.GetDetails(context.Background(), []models.ItemID{0, models.ItemID(math.MaxUint64)}, false)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Equal(t, 0, svc.QueryCount(), "nothing valid to query, no native call expected")
}

func TestGetDetailsServiceUnavailable(t *testing.T) {
	client, svc := newTestClient(t, sim.Item{ID: 1})
	svc.SetAvailable(false)

	_, err := client.GetDetails(context.Background(), []models.ItemID{1}, false)
	require.ErrorIs(t, err, workshop.ErrServiceUnavailable,
		"service down must be an error, not an empty result")
	assert.Equal(t, 0, svc.QueryCount())
}

func TestGetDetailsIOFailure(t *testing.T) {
	client, svc := newTestClient(t, sim.Item{ID: 1})
	svc.FailNextQuery()

	_, err := client.GetDetails(context.Background(), []models.ItemID{1}, false)
	require.ErrorIs(t, err, workshop.ErrQueryFailed)

	handle, _ := svc.LastQuery()
	assert.Equal(t, 1, svc.ReleaseCount(handle), "failed query handles are released too")
}

func TestGetDetailsSkipsUnmaterializedRows(t *testing.T) {
	client, svc := newTestClient(t,
		sim.Item{ID: 1, Title: "Good"},
		sim.Item{ID: 2, Title: "Broken", QueryFail: true},
	)

	records, err := client.GetDetails(context.Background(), []models.ItemID{1, 2}, false)
	require.NoError(t, err)
	require.Len(t, records, 1, "the failed row must not abort its sibling")
	assert.Equal(t, models.ItemID(1), records[0].ID)
	assert.Equal(t, 0, svc.LeakedQueries())
}

func TestGetDetailsDescriptionTruncation(t *testing.T) {
	long := strings.Repeat("d", native.MaxShortDescription+45)
	client, _ := newTestClient(t, sim.Item{ID: 3, Description: long})

	short, err := client.GetDetails(context.Background(), []models.ItemID{3}, false)
	require.NoError(t, err)
	require.Len(t, short, 1)
	assert.Len(t, short[0].Description, native.MaxShortDescription)

	full, err := client.GetDetails(context.Background(), []models.ItemID{3}, true)
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.Len(t, full[0].Description, len(long))
}

func TestGetItemDetails(t *testing.T) {
	client, _ := newTestClient(t, sim.Item{ID: 8, Title: "Bridge Pack", Children: []models.ItemID{20, 21}})

	rec, err := client.GetItemDetails(context.Background(), 8, false)
	require.NoError(t, err)
	assert.Equal(t, "Bridge Pack", rec.Title)
	assert.Equal(t, 2, rec.Children)

	// Unknown item: zero record, no error.
	rec, err = client.GetItemDetails(context.Background(), 9, false)
	require.NoError(t, err)
	assert.Equal(t, models.DetailRecord{}, rec)
}

func TestGetDependencies(t *testing.T) {
	client, svc := newTestClient(t, sim.Item{ID: 10, Children: []models.ItemID{1, 2, 3}})

	children, err := client.GetDependencies(context.Background(), 10, 3)
	require.NoError(t, err)
	assert.Equal(t, []models.ItemID{1, 2, 3}, children)
	assert.Equal(t, 0, svc.LeakedQueries())

	// Expected count below the actual set truncates the result.
	children, err = client.GetDependencies(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, []models.ItemID{1, 2}, children)
}

func TestGetDependenciesShortCircuits(t *testing.T) {
	client, svc := newTestClient(t, sim.Item{ID: 10, Children: []models.ItemID{1}})

	// Zero expected children: nothing to resolve.
	children, err := client.GetDependencies(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, children)

	// Invalid id.
	children, err = client.GetDependencies(context.Background(), 0, 5)
	require.NoError(t, err)
	assert.Empty(t, children)

	assert.Equal(t, 0, svc.QueryCount(), "short-circuit paths must not touch the native layer")

	// Unavailable service degrades to an empty set for dependency resolution.
	svc.SetAvailable(false)
	children, err = client.GetDependencies(context.Background(), 10, 1)
	require.NoError(t, err)
	assert.Empty(t, children)
	assert.Equal(t, 0, svc.QueryCount())
}

func TestGetDependenciesNativeFailureYieldsEmptySet(t *testing.T) {
	client, _ := newTestClient(t, sim.Item{ID: 10, Children: []models.ItemID{1, 2}, ChildrenFail: true})

	children, err := client.GetDependencies(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.NotNil(t, children)
	assert.Empty(t, children)
}

func TestConcurrentDetailQueriesNoCrossDelivery(t *testing.T) {
	client, svc := newTestClient(t,
		sim.Item{ID: 1, Title: "First"},
		sim.Item{ID: 2, Title: "Second"},
	)

	// Hold completions so both queries are outstanding at once.
	svc.Hold()

	results := make([][]models.DetailRecord, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []models.ItemID{1, 2} {
		wg.Add(1)
		go func(slot int, id models.ItemID) {
			defer wg.Done()
			results[slot], errs[slot] = client.GetDetails(context.Background(), []models.ItemID{id}, false)
		}(i, id)
	}

	require.Eventually(t, func() bool { return svc.QueryCount() == 2 },
		5*time.Second, 5*time.Millisecond, "both queries should be submitted before completions flow")
	svc.ReleaseHeld()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Len(t, results[0], 1)
	require.Len(t, results[1], 1)
	assert.Equal(t, "First", results[0][0].Title, "caller 0 must receive its own item")
	assert.Equal(t, "Second", results[1][0].Title, "caller 1 must receive its own item")
	assert.Equal(t, 0, svc.LeakedQueries())
}

func TestGetDetailsAbandonedWaitDoesNotLeak(t *testing.T) {
	client, svc := newTestClient(t, sim.Item{ID: 1})
	svc.Hold()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := client.GetDetails(ctx, []models.ItemID{1}, false)
		errCh <- err
	}()

	require.Eventually(t, func() bool { return svc.QueryCount() == 1 },
		5*time.Second, 5*time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// The completion is still queued; once delivered, the abandoned handle
	// must be released by the machinery, not leaked.
	svc.ReleaseHeld()
	require.Eventually(t, func() bool { return svc.LeakedQueries() == 0 },
		5*time.Second, 5*time.Millisecond, "orphaned completion must release its handle")
}
