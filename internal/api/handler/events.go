package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog/log"

	"github.com/svennapp/svennProductsFE/internal/events"
	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/products"
	"github.com/svennapp/svennProductsFE/internal/session"
	"github.com/svennapp/svennProductsFE/internal/tracker"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

const wsWriteTimeout = 10 * time.Second

// Outbound message kinds. Transitions and notifications reuse the hub kinds.
const (
	kindStates       = "states"
	kindSearchResult = "search_result"
	kindError        = "error"
)

type outbound struct {
	Kind         string                `json:"kind"`
	Transition   *tracker.Event        `json:"transition,omitempty"`
	Notification *tracker.Notification `json:"notification,omitempty"`
	States       []tracker.State       `json:"states,omitempty"`
	Search       *searchResult         `json:"search,omitempty"`
	Error        string                `json:"error,omitempty"`
}

type searchResult struct {
	Query    string                         `json:"query"`
	Response *gateway.ProductSearchResponse `json:"response,omitempty"`
	Error    string                         `json:"error,omitempty"`
}

// inbound is a client request. Only "search" is understood.
type inbound struct {
	Kind      string            `json:"kind"`
	Query     string            `json:"query"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
	SortBy    gateway.SortField `json:"sort_by"`
	SortOrder gateway.SortOrder `json:"sort_order"`
}

type Events struct {
	manager *workspace.Manager
	search  products.Client
	window  time.Duration
	origins []string
}

// NewEvents builds the event stream handler. origins are the dashboard
// origins allowed to open a socket in addition to same-origin requests.
func NewEvents(manager *workspace.Manager, search products.Client, window time.Duration, origins []string) *Events {
	if window <= 0 {
		window = products.DefaultDebounceWindow
	}
	return &Events{manager: manager, search: search, window: window, origins: originPatterns(origins)}
}

// originPatterns reduces configured origins such as "http://localhost:3000"
// to the host patterns the WebSocket origin check matches against.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(o, "/")
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// Connect upgrades to WebSocket and streams the operator's run transitions
// and notifications. Search requests sent by the client are debounced and
// answered on the same socket.
func (h *Events) Connect(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}
	id, _ := session.FromContext(r.Context())

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	sub := h.manager.Hub().Subscribe(id.Subject)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())

	results := make(chan products.Result, 4)
	searcher := products.NewSearcher(h.search, h.window, func(res products.Result) {
		select {
		case results <- res:
		case <-ctx.Done():
		}
	})
	defer func() {
		cancel()
		searcher.Close()
	}()

	go h.readLoop(ctx, cancel, conn, searcher, results)

	if err := write(ctx, conn, outbound{Kind: kindStates, States: ws.Tracker.States()}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, open := <-sub.C:
			if !open {
				log.Warn().Str("subject", id.Subject).Msg("event subscriber dropped")
				conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
				return
			}
			if err := write(ctx, conn, fromHub(msg)); err != nil {
				return
			}
		case res := <-results:
			if err := write(ctx, conn, fromSearch(res)); err != nil {
				return
			}
		}
	}
}

func (h *Events) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, searcher *products.Searcher, results chan<- products.Result) {
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil || msg.Kind != "search" {
			_ = write(ctx, conn, outbound{Kind: kindError, Error: "unsupported message"})
			continue
		}

		p := gateway.ProductSearchParams{
			Query:     msg.Query,
			Limit:     msg.Limit,
			Offset:    msg.Offset,
			SortBy:    msg.SortBy,
			SortOrder: msg.SortOrder,
		}
		if err := searcher.Type(p); err != nil {
			select {
			case results <- products.Result{Params: p, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func fromHub(m events.Message) outbound {
	return outbound{
		Kind:         string(m.Kind),
		Transition:   m.Transition,
		Notification: m.Notification,
	}
}

func fromSearch(res products.Result) outbound {
	sr := &searchResult{Query: res.Params.Query, Response: res.Response}
	if res.Err != nil {
		if errors.Is(res.Err, products.ErrQueryTooShort) {
			sr.Error = queryTooShortMessage
		} else {
			sr.Error = gateway.Message(res.Err, "Failed to search products")
		}
	}
	return outbound{Kind: kindSearchResult, Search: sr}
}

func write(ctx context.Context, conn *websocket.Conn, v outbound) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, v)
}
