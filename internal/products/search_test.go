package products

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

type request struct {
	params gateway.ProductSearchParams
	at     time.Time
}

type fakeSearch struct {
	mu       sync.Mutex
	requests []request
}

func (f *fakeSearch) SearchProducts(_ context.Context, p gateway.ProductSearchParams) (*gateway.ProductSearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request{params: p, at: time.Now()})
	return &gateway.ProductSearchResponse{Total: 1, Items: []gateway.ProductSummary{{BaseName: p.Query}}}, nil
}

func (f *fakeSearch) all() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

func TestValidateQuery(t *testing.T) {
	assert.ErrorIs(t, ValidateQuery(""), ErrQueryTooShort)
	assert.ErrorIs(t, ValidateQuery("s"), ErrQueryTooShort)
	assert.ErrorIs(t, ValidateQuery(" s "), ErrQueryTooShort)
	assert.ErrorIs(t, ValidateQuery("ø"), ErrQueryTooShort)
	assert.NoError(t, ValidateQuery("sk"))
	assert.NoError(t, ValidateQuery("øl"))
	assert.Equal(t, "search term must be at least 2 characters", ErrQueryTooShort.Error())
}

func TestSearch_ShortQueryIssuesNoRequest(t *testing.T) {
	fs := &fakeSearch{}
	_, err := Search(context.Background(), fs, gateway.ProductSearchParams{Query: "a"})
	assert.ErrorIs(t, err, ErrQueryTooShort)
	assert.Empty(t, fs.all())
}

func TestNormalize(t *testing.T) {
	p := Normalize(gateway.ProductSearchParams{Query: " skrue ", Limit: 500, Offset: -3, SortBy: "bogus", SortOrder: "up"})
	assert.Equal(t, "skrue", p.Query)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)
	assert.Empty(t, p.SortBy)
	assert.Empty(t, p.SortOrder)

	p = Normalize(gateway.ProductSearchParams{Query: "sk", SortBy: gateway.SortByPrice, SortOrder: gateway.SortDesc})
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, gateway.SortByPrice, p.SortBy)
}

func TestSearcher_Debounces(t *testing.T) {
	const window = 60 * time.Millisecond
	fs := &fakeSearch{}
	results := make(chan Result, 4)
	s := NewSearcher(fs, window, func(r Result) { results <- r })
	defer s.Close()

	for _, q := range []string{"sk", "skr", "skru"} {
		require.NoError(t, s.Type(gateway.ProductSearchParams{Query: q}))
		time.Sleep(10 * time.Millisecond)
	}
	last := time.Now()
	require.NoError(t, s.Type(gateway.ProductSearchParams{Query: "skrue"}))

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		assert.Equal(t, "skrue", r.Params.Query)
	case <-time.After(2 * time.Second):
		t.Fatal("no search result delivered")
	}

	reqs := fs.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "skrue", reqs[0].params.Query)
	assert.GreaterOrEqual(t, reqs[0].at.Sub(last), window)
}

func TestSearcher_ShortTermCancelsPending(t *testing.T) {
	fs := &fakeSearch{}
	s := NewSearcher(fs, 30*time.Millisecond, nil)
	defer s.Close()

	require.NoError(t, s.Type(gateway.ProductSearchParams{Query: "sk"}))
	assert.ErrorIs(t, s.Type(gateway.ProductSearchParams{Query: "s"}), ErrQueryTooShort)

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, fs.all())
}

func TestSearcher_CloseDropsPending(t *testing.T) {
	fs := &fakeSearch{}
	s := NewSearcher(fs, 30*time.Millisecond, nil)
	require.NoError(t, s.Type(gateway.ProductSearchParams{Query: "skrue"}))
	s.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, fs.all())
	assert.NoError(t, s.Type(gateway.ProductSearchParams{Query: "skrue"}))
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, fs.all())
}
