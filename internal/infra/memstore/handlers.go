package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"voicemirror/internal/domain"
	"voicemirror/internal/infra/dispatch"
)

// Handlers exposes the store as the memory group's tools. The database is
// opened lazily: a failure (say, a stale instance still holding the file
// lock) turns into an error result on the memory tools and the next call
// retries, instead of taking the whole server down at startup.
type Handlers struct {
	mu     sync.Mutex
	path   string
	store  *Store
	logger *zap.Logger
}

func NewHandlers(path string, logger *zap.Logger) *Handlers {
	return &Handlers{
		path:   path,
		logger: logger.Named("memstore"),
	}
}

func (h *Handlers) Register(t *dispatch.Table) {
	t.Register("memory_search", h.Search)
	t.Register("memory_get", h.Get)
	t.Register("memory_remember", h.Remember)
	t.Register("memory_forget", h.Forget)
	t.Register("memory_stats", h.Stats)
	t.Register("memory_flush", h.Flush)
}

func (h *Handlers) ready() (*Store, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.store != nil {
		return h.store, nil
	}
	store, err := Open(h.path)
	if err != nil {
		return nil, err
	}
	h.store = store
	return store, nil
}

// Warm opens the store ahead of the first call. Runs detached from startup;
// failure only logs and the next memory call retries.
func (h *Handlers) Warm() {
	if _, err := h.ready(); err != nil {
		h.logger.Warn("memory store warmup failed, will retry on first call", zap.Error(err))
	}
}

func (h *Handlers) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.store == nil {
		return nil
	}
	err := h.store.Close()
	h.store = nil
	return err
}

// unavailable is the result for memory tools while the store cannot be
// opened.
func (h *Handlers) unavailable(err error) *dispatch.Result {
	h.logger.Warn("memory store unavailable", zap.Error(err))
	return dispatch.Errorf("The memory store is unavailable right now; try again shortly.")
}

func (h *Handlers) Search(ctx context.Context, args json.RawMessage) (*dispatch.Result, error) {
	var in struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "memory.Search", "bad arguments", err)
	}
	store, err := h.ready()
	if err != nil {
		return h.unavailable(err), nil
	}
	hits, err := store.Search(in.Query, in.Limit)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return dispatch.Text("No memories match %q.", in.Query), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d matching memories:\n", len(hits))
	for _, hit := range hits {
		fmt.Fprintf(&b, "[%s] (%s) %s\n", hit.ID, hit.Tier, hit.Content)
	}
	return dispatch.Text("%s", strings.TrimRight(b.String(), "\n")), nil
}

func (h *Handlers) Get(ctx context.Context, args json.RawMessage) (*dispatch.Result, error) {
	var in struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "memory.Get", "bad arguments", err)
	}
	store, err := h.ready()
	if err != nil {
		return h.unavailable(err), nil
	}
	chunk, err := store.Get(in.ID)
	if err != nil {
		if code, ok := domain.CodeFrom(err); ok && code == domain.CodeNotFound {
			return dispatch.Errorf("No memory with id %s.", in.ID), nil
		}
		return nil, err
	}
	return dispatch.Text("[%s] (%s) %s", chunk.ID, chunk.Tier, chunk.Content), nil
}

func (h *Handlers) Remember(ctx context.Context, args json.RawMessage) (*dispatch.Result, error) {
	var in struct {
		Content string   `json:"content"`
		Tier    string   `json:"tier"`
		Tags    []string `json:"tags"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "memory.Remember", "bad arguments", err)
	}
	if in.Content == "" {
		return dispatch.Errorf("memory_remember requires content"), nil
	}
	store, err := h.ready()
	if err != nil {
		return h.unavailable(err), nil
	}
	chunk, err := store.Remember(in.Content, in.Tier, in.Tags)
	if err != nil {
		return nil, err
	}
	return dispatch.Text("Remembered as %s (tier %s).", chunk.ID, chunk.Tier), nil
}

func (h *Handlers) Forget(ctx context.Context, args json.RawMessage) (*dispatch.Result, error) {
	var in struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "memory.Forget", "bad arguments", err)
	}
	store, err := h.ready()
	if err != nil {
		return h.unavailable(err), nil
	}
	if err := store.Forget(in.ID); err != nil {
		if code, ok := domain.CodeFrom(err); ok && code == domain.CodeNotFound {
			return dispatch.Errorf("No memory with id %s.", in.ID), nil
		}
		return nil, err
	}
	return dispatch.Text("Memory %s deleted.", in.ID), nil
}

func (h *Handlers) Stats(ctx context.Context, args json.RawMessage) (*dispatch.Result, error) {
	store, err := h.ready()
	if err != nil {
		return h.unavailable(err), nil
	}
	stats, err := store.Stats()
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return dispatch.Text("Memory store is empty."), nil
	}
	tiers := make([]string, 0, len(stats))
	for tier := range stats {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	var b strings.Builder
	for _, tier := range tiers {
		st := stats[tier]
		fmt.Fprintf(&b, "%s: %d chunks (%d expired)\n", tier, st.Count, st.Expired)
	}
	return dispatch.Text("%s", strings.TrimRight(b.String(), "\n")), nil
}

func (h *Handlers) Flush(ctx context.Context, args json.RawMessage) (*dispatch.Result, error) {
	var in struct {
		All bool `json:"all"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "memory.Flush", "bad arguments", err)
	}
	store, err := h.ready()
	if err != nil {
		return h.unavailable(err), nil
	}
	removed, err := store.Flush(in.All)
	if err != nil {
		return nil, err
	}
	return dispatch.Text("Flushed %d memory chunks.", removed), nil
}
