package discovery_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hothouse/hothouse/internal/discovery"
	"github.com/hothouse/hothouse/internal/greenhouse"
	"github.com/hothouse/hothouse/internal/logger"
	"github.com/hothouse/hothouse/internal/queue"
	"github.com/hothouse/hothouse/internal/store"
)

type fakeAPI struct {
	pages     [][]greenhouse.Application
	listCalls int
	details   map[int64][]byte
}

func (f *fakeAPI) ListApplications(_ context.Context, _ int64, page int) ([]greenhouse.Application, error) {
	f.listCalls++
	if page > len(f.pages) {
		return nil, nil
	}
	return f.pages[page-1], nil
}

func (f *fakeAPI) GetCandidateRaw(_ context.Context, candidateID int64) ([]byte, error) {
	raw, ok := f.details[candidateID]
	if !ok {
		return nil, fmt.Errorf("no detail for candidate %d", candidateID)
	}
	return raw, nil
}

type fakeEnqueuer struct {
	tasks []*queue.Task
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, task *queue.Task) (string, error) {
	f.tasks = append(f.tasks, task)
	return fmt.Sprintf("msg-%d", len(f.tasks)), nil
}

func detailJSON(t *testing.T, id int64, first, last string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id": id, "first_name": first, "last_name": last,
	})
	require.NoError(t, err)
	return raw
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.New(client, logger.NewNop())
}

func activeApp(candidateID int64) greenhouse.Application {
	return greenhouse.Application{ID: candidateID * 10, CandidateID: candidateID, Status: "active"}
}

func TestRunSeedsEligibleCandidates(t *testing.T) {
	st := newTestStore(t)
	rejected := time.Now()
	api := &fakeAPI{
		pages: [][]greenhouse.Application{{
			activeApp(7),
			{ID: 20, CandidateID: 8, Status: "active", Prospect: true},
			{ID: 30, CandidateID: 9, Status: "active", RejectedAt: &rejected},
		}},
		details: map[int64][]byte{7: detailJSON(t, 7, "Ada", "Lovelace")},
	}
	enq := &fakeEnqueuer{}

	d := discovery.New(api, st, enq, time.Minute, nil, logger.NewNop())
	require.NoError(t, d.Run(context.Background(), 42, 0))

	known, err := st.IsKnown(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.True(t, known)

	for _, excluded := range []int64{8, 9} {
		known, err := st.IsKnown(context.Background(), 42, excluded)
		require.NoError(t, err)
		assert.False(t, known, "candidate %d must be filtered out", excluded)
	}

	c, err := st.GetCandidate(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", c.Name)
	assert.Equal(t, store.StatusUnrated, c.Status)
}

func TestRunEnqueuesOneCoalescedRatingTask(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{
		pages: [][]greenhouse.Application{{activeApp(1), activeApp(2), activeApp(3)}},
		details: map[int64][]byte{
			1: detailJSON(t, 1, "A", "One"),
			2: detailJSON(t, 2, "B", "Two"),
			3: detailJSON(t, 3, "C", "Three"),
		},
	}
	enq := &fakeEnqueuer{}

	d := discovery.New(api, st, enq, time.Minute, nil, logger.NewNop())
	require.NoError(t, d.Run(context.Background(), 42, 0))

	require.Len(t, enq.tasks, 1, "rating tasks are coalesced per run, not per candidate")
	assert.Equal(t, queue.KindRateJob, enq.tasks[0].Kind)
	assert.Equal(t, int64(42), enq.tasks[0].JobID)
}

func TestRunIsIdempotentForKnownCandidates(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{
		pages:   [][]greenhouse.Application{{activeApp(7)}},
		details: map[int64][]byte{7: detailJSON(t, 7, "Ada", "Lovelace")},
	}
	enq := &fakeEnqueuer{}
	d := discovery.New(api, st, enq, time.Minute, nil, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, d.Run(ctx, 42, 0))

	// Simulate a completed rating, then re-run discovery.
	require.NoError(t, st.SaveRating(ctx, &store.Candidate{ID: 7, JobID: 42, Name: "Ada Lovelace", Score: 80}))
	before, err := st.GetCandidate(ctx, 42, 7)
	require.NoError(t, err)

	require.NoError(t, d.Run(ctx, 42, 0))

	after, err := st.GetCandidate(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, before, after, "re-running discovery must not touch known candidates")

	ranking, err := st.Ranking(ctx, 42)
	require.NoError(t, err)
	require.Len(t, ranking, 1)
	assert.Equal(t, 80, ranking[0].Score)
}

func TestRunWithTargetRefreshesExistingCandidate(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{
		pages:   [][]greenhouse.Application{{activeApp(6), activeApp(7)}},
		details: map[int64][]byte{7: detailJSON(t, 7, "Ada", "Lovelace")},
	}
	enq := &fakeEnqueuer{}
	d := discovery.New(api, st, enq, time.Minute, nil, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, st.SaveRating(ctx, &store.Candidate{ID: 7, JobID: 42, Name: "Ada Lovelace", Score: 91}))

	require.NoError(t, d.Run(ctx, 42, 7))

	c, err := st.GetCandidate(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, store.StatusUnrated, c.Status, "refresh resets the candidate to an unrated stub")
	assert.Equal(t, store.UnratedScore, c.Score)

	// Candidate 6 was not the target, so it must not have been seeded.
	known, err := st.IsKnown(ctx, 42, 6)
	require.NoError(t, err)
	assert.False(t, known)
}

func TestRunStopsAtFirstEmptyPage(t *testing.T) {
	st := newTestStore(t)
	api := &fakeAPI{
		pages:   [][]greenhouse.Application{{activeApp(7)}, {}},
		details: map[int64][]byte{7: detailJSON(t, 7, "Ada", "Lovelace")},
	}
	enq := &fakeEnqueuer{}
	d := discovery.New(api, st, enq, time.Minute, nil, logger.NewNop())

	require.NoError(t, d.Run(context.Background(), 42, 0))

	assert.Equal(t, 2, api.listCalls, "one non-empty page then one empty page means exactly two listing calls")
}

func TestRunUsesCachedDetail(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.CacheDetail(ctx, 7, detailJSON(t, 7, "Ada", "Lovelace"), time.Minute))

	// No detail in the API: a fetch would fail, so a pass proves the
	// cache was used.
	api := &fakeAPI{pages: [][]greenhouse.Application{{activeApp(7)}}, details: map[int64][]byte{}}
	enq := &fakeEnqueuer{}
	d := discovery.New(api, st, enq, time.Minute, nil, logger.NewNop())

	require.NoError(t, d.Run(ctx, 42, 0))

	known, err := st.IsKnown(ctx, 42, 7)
	require.NoError(t, err)
	assert.True(t, known)
}
