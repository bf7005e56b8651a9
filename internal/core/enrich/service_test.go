package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enricher/internal/core/extract"
	"enricher/internal/core/fetch"
	"enricher/internal/core/job"
	tasks "enricher/internal/platform/tasks"
	"enricher/internal/store/memory"
)

type stubFetcher struct {
	page  *fetch.Page
	err   error
	calls atomic.Int32
}

func (f *stubFetcher) Fetch(_ context.Context, _ string) (*fetch.Page, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	p := *f.page
	return &p, nil
}

type stubEnqueuer struct {
	enqueued []*asynq.Task
	failOn   int // 1-based call number to fail on; 0 = never
}

func (e *stubEnqueuer) Enqueue(t *asynq.Task, _ string, _ int) error {
	if e.failOn > 0 && len(e.enqueued)+1 == e.failOn {
		return errors.New("queue unavailable")
	}
	e.enqueued = append(e.enqueued, t)
	return nil
}

func page(body string) *fetch.Page {
	return &fetch.Page{Body: body, StatusCode: 200, Bytes: len(body), FetchedAt: time.Now().UTC()}
}

func newTestService(st job.Store, f Fetcher, q Enqueuer) *Service {
	return NewService(st, job.NewService(st), q, f, extract.NewService(extract.DefaultRules()), Config{})
}

func TestCreateJob_DispatchesOneTaskPerURL(t *testing.T) {
	st := memory.New()
	q := &stubEnqueuer{}
	svc := newTestService(st, &stubFetcher{page: page("")}, q)

	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	id, err := svc.CreateJob(context.Background(), urls)
	require.NoError(t, err)

	require.Len(t, q.enqueued, 3)
	items, err := st.Items(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, it := range items {
		assert.Equal(t, urls[i], it.URL)
		assert.Equal(t, job.ItemQueued, it.Status)
	}

	var p TaskPayload
	require.NoError(t, json.Unmarshal(q.enqueued[0].Payload(), &p))
	assert.Equal(t, id, p.JobID)
	assert.Equal(t, items[0].ID, p.ItemID)
	assert.Equal(t, "https://a.example", p.URL)
}

func TestCreateJob_RejectsEmpty(t *testing.T) {
	svc := newTestService(memory.New(), &stubFetcher{}, &stubEnqueuer{})
	_, err := svc.CreateJob(context.Background(), nil)
	assert.Error(t, err)
}

func TestDispatch_PartialEnqueueFailureSurfaces(t *testing.T) {
	st := memory.New()
	q := &stubEnqueuer{failOn: 2}
	svc := newTestService(st, &stubFetcher{}, q)

	j, err := st.CreateJob(context.Background(), 3)
	require.NoError(t, err)

	err = svc.Dispatch(context.Background(), j.ID, []string{"https://a.example", "https://b.example", "https://c.example"})
	require.Error(t, err)

	// Items created before the failure remain; cleanup is the caller's.
	items, err := st.Items(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Len(t, q.enqueued, 1)
}

func runTask(svc *Service, p TaskPayload) error {
	payload, _ := json.Marshal(p)
	return svc.HandleEnrichTask(context.Background(), asynq.NewTask(tasks.TaskTypeEnrich, payload))
}

func TestProcessItem_Success(t *testing.T) {
	st := memory.New()
	f := &stubFetcher{page: page(`<html><body><h1 class="company-name">Acme Corp</h1></body></html>`)}
	svc := newTestService(st, f, &stubEnqueuer{})

	j, _ := st.CreateJob(context.Background(), 1)
	items, _ := st.CreateItems(context.Background(), j.ID, []string{"https://acme.example"})

	err := runTask(svc, TaskPayload{JobID: j.ID, ItemID: items[0].ID, URL: items[0].URL})
	require.NoError(t, err)

	got, err := st.Items(context.Background(), j.ID)
	require.NoError(t, err)
	it := got[0]
	assert.Equal(t, job.ItemCompleted, it.Status)
	require.NotNil(t, it.Name)
	assert.Equal(t, "Acme Corp", *it.Name)
	assert.Nil(t, it.LastError)
	assert.NotNil(t, it.StartedAt)
	assert.NotNil(t, it.FinishedAt)
	assert.Equal(t, f.page.Bytes, it.Bytes)

	jb, err := st.Job(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, jb.Processed)
	assert.Equal(t, 0, jb.Failed)
	assert.Equal(t, job.StatusCompleted, jb.Status)
}

func TestProcessItem_FetchFailureFailsItemNotTask(t *testing.T) {
	st := memory.New()
	f := &stubFetcher{err: &net.DNSError{Err: "no such host", Name: "nope.invalid"}}
	svc := newTestService(st, f, &stubEnqueuer{})

	j, _ := st.CreateJob(context.Background(), 1)
	items, _ := st.CreateItems(context.Background(), j.ID, []string{"https://nope.invalid"})

	// nil: a terminal item failure must not trigger a queue retry.
	err := runTask(svc, TaskPayload{JobID: j.ID, ItemID: items[0].ID, URL: items[0].URL})
	require.NoError(t, err)

	got, _ := st.Items(context.Background(), j.ID)
	it := got[0]
	assert.Equal(t, job.ItemFailed, it.Status)
	require.NotNil(t, it.LastError)
	assert.Equal(t, "DNS resolution failed", *it.LastError)

	// The progress recompute ran on the failure path too.
	jb, _ := st.Job(context.Background(), j.ID)
	assert.Equal(t, 1, jb.Processed)
	assert.Equal(t, 1, jb.Failed)
	assert.Equal(t, job.StatusFailed, jb.Status)
}

func TestProcessItem_PersistenceErrorRetriesTask(t *testing.T) {
	st := memory.New()
	svc := newTestService(st, &stubFetcher{page: page("")}, &stubEnqueuer{})

	j, _ := st.CreateJob(context.Background(), 1)

	// Unknown item id: the store error must surface so the queue retries.
	err := runTask(svc, TaskPayload{JobID: j.ID, ItemID: "missing", URL: "https://a.example"})
	require.Error(t, err)
}

func TestProcessItem_IdempotentRerun(t *testing.T) {
	st := memory.New()
	f := &stubFetcher{page: page(`<html><body><h1 class="company-name">Acme Corp</h1></body></html>`)}
	svc := newTestService(st, f, &stubEnqueuer{})

	j, _ := st.CreateJob(context.Background(), 1)
	items, _ := st.CreateItems(context.Background(), j.ID, []string{"https://acme.example"})
	p := TaskPayload{JobID: j.ID, ItemID: items[0].ID, URL: items[0].URL}

	require.NoError(t, runTask(svc, p))
	first, _ := st.Items(context.Background(), j.ID)

	// Redelivery of the same task re-fetches and overwrites equivalently.
	require.NoError(t, runTask(svc, p))
	second, _ := st.Items(context.Background(), j.ID)

	assert.Equal(t, int32(2), f.calls.Load())
	assert.Equal(t, job.ItemCompleted, second[0].Status)
	assert.Equal(t, *first[0].Name, *second[0].Name)

	jb, _ := st.Job(context.Background(), j.ID)
	assert.Equal(t, 1, jb.Processed)
	assert.Equal(t, job.StatusCompleted, jb.Status)
}

func TestProcessItem_ConcurrentSiblingsConverge(t *testing.T) {
	st := memory.New()
	f := &stubFetcher{page: page(`<html><body><h1 class="company-name">Acme Corp</h1></body></html>`)}
	svc := newTestService(st, f, &stubEnqueuer{})

	j, _ := st.CreateJob(context.Background(), 5)
	urls := make([]string, 5)
	for i := range urls {
		urls[i] = "https://acme.example/page"
	}
	items, _ := st.CreateItems(context.Background(), j.ID, urls)

	done := make(chan error, len(items))
	for _, it := range items {
		go func(it job.Item) {
			done <- runTask(svc, TaskPayload{JobID: j.ID, ItemID: it.ID, URL: it.URL})
		}(it)
	}
	for range items {
		require.NoError(t, <-done)
	}

	jb, _ := st.Job(context.Background(), j.ID)
	assert.Equal(t, 5, jb.Processed)
	assert.Equal(t, 0, jb.Failed)
	assert.Equal(t, job.StatusCompleted, jb.Status)
}
