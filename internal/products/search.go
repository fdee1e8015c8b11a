package products

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

const (
	MinQueryLength        = 2
	DefaultDebounceWindow = 400 * time.Millisecond
	DefaultLimit          = 20
	MaxLimit              = 100
)

// ErrQueryTooShort is returned for search terms that are never sent.
var ErrQueryTooShort = errors.New("search term must be at least 2 characters")

type Client interface {
	SearchProducts(ctx context.Context, p gateway.ProductSearchParams) (*gateway.ProductSearchResponse, error)
}

// ValidateQuery rejects terms shorter than MinQueryLength characters.
func ValidateQuery(q string) error {
	if utf8.RuneCountInString(strings.TrimSpace(q)) < MinQueryLength {
		return ErrQueryTooShort
	}
	return nil
}

// Normalize trims the query and clamps paging and sorting to what the
// backend accepts.
func Normalize(p gateway.ProductSearchParams) gateway.ProductSearchParams {
	p.Query = strings.TrimSpace(p.Query)
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	switch p.SortBy {
	case "", gateway.SortByName, gateway.SortByPrice, gateway.SortByRetailerCount:
	default:
		p.SortBy = ""
	}
	switch p.SortOrder {
	case "", gateway.SortAsc, gateway.SortDesc:
	default:
		p.SortOrder = ""
	}
	return p
}

// Search validates and runs one search immediately.
func Search(ctx context.Context, client Client, p gateway.ProductSearchParams) (*gateway.ProductSearchResponse, error) {
	if err := ValidateQuery(p.Query); err != nil {
		return nil, err
	}
	return client.SearchProducts(ctx, Normalize(p))
}

// Result is delivered once a debounced search returns.
type Result struct {
	Params   gateway.ProductSearchParams
	Response *gateway.ProductSearchResponse
	Err      error
}

// Searcher debounces keystrokes: a search runs only after the window has
// passed with no newer input, and results of superseded searches are
// dropped.
type Searcher struct {
	client  Client
	window  time.Duration
	deliver func(Result)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	timer    *time.Timer
	seq      uint64
	inflight context.CancelFunc
	closed   bool
}

func NewSearcher(client Client, window time.Duration, deliver func(Result)) *Searcher {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Searcher{
		client:  client,
		window:  window,
		deliver: deliver,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Type records new input. Short terms cancel any pending search and return
// ErrQueryTooShort without a request.
func (s *Searcher) Type(p gateway.ProductSearchParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}

	if err := ValidateQuery(p.Query); err != nil {
		return err
	}

	seq := s.seq
	params := Normalize(p)
	s.timer = time.AfterFunc(s.window, func() { s.fire(seq, params) })
	return nil
}

func (s *Searcher) fire(seq uint64, p gateway.ProductSearchParams) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.inflight = cancel
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()
	defer cancel()

	resp, err := s.client.SearchProducts(ctx, p)

	s.mu.Lock()
	current := !s.closed && seq == s.seq
	if current {
		s.inflight = nil
	}
	s.mu.Unlock()
	if current && s.deliver != nil {
		s.deliver(Result{Params: p, Response: resp, Err: err})
	}
}

// Close drops pending input and waits for a running search to return.
func (s *Searcher) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}
