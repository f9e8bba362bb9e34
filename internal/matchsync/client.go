// Package matchsync keeps a player's local view of a match in step with the
// server by polling, and applies the player's own turns optimistically.
package matchsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"linked-go/internal/game"
	"linked-go/internal/snapshot"
)

// State is the client's network activity
type State string

const (
	StateIdle       State = "idle"
	StatePolling    State = "polling"
	StateSubmitting State = "submitting"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollInterval = time.Minute
	DefaultRequestTimeout  = 10 * time.Second
)

var (
	ErrSubmitting = errors.New("a submission is in flight")
	ErrNotStarted = errors.New("client has no match")
	ErrRackEmpty  = errors.New("no undrafted rack letters to hint")
)

// TurnNotice is sent once each time the turn passes to the local player.
type TurnNotice struct {
	MatchID    string    `json:"match_id"`
	TurnNumber int       `json:"turn_number"`
	At         time.Time `json:"at"`
}

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
	Snapshots   snapshot.Store
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Client is one player's synchronised view of one match.
type Client struct {
	api      MatchAPI
	playerID string
	opts     Options
	logger   *slog.Logger

	// op admits one network operation at a time
	op sync.Mutex

	mu       sync.RWMutex
	view     *game.Match
	draft    *Draft
	state    State
	failures int
	nextSub  int
	subs     map[int]chan TurnNotice

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Open fetches (or starts) the pair's match and returns a client for it.
func Open(ctx context.Context, api MatchAPI, pairID, playerID string, opts Options) (*Client, error) {
	c := NewClient(api, playerID, opts)
	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	m, err := api.GetOrCreateMatch(reqCtx, pairID)
	if err != nil {
		return nil, err
	}
	c.merge(ctx, m)
	return c, nil
}

func NewClient(api MatchAPI, playerID string, opts Options) *Client {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.MaxInterval < opts.Interval {
		opts.MaxInterval = DefaultMaxPollInterval
		if opts.MaxInterval < opts.Interval {
			opts.MaxInterval = opts.Interval
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:      api,
		playerID: playerID,
		opts:     opts,
		logger:   logger.With("player_id", playerID),
		state:    StateIdle,
		subs:     make(map[int]chan TurnNotice),
	}
}

// View returns a copy of the current local view.
func (c *Client) View() *game.Match {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.view == nil {
		return nil
	}
	return c.view.Clone()
}

func (c *Client) PlayerID() string {
	return c.playerID
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// IsMyTurn reports whether the local player holds the turn of an active match.
func (c *Client) IsMyTurn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isMyTurn()
}

func (c *Client) isMyTurn() bool {
	return c.view != nil && c.view.IsActive() && c.view.CurrentTurnUserID == c.playerID
}

// Subscribe returns a channel of turn notices and a func that unsubscribes.
func (c *Client) Subscribe() (<-chan TurnNotice, func()) {
	ch := make(chan TurnNotice, 1)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

// Start runs the poll loop until ctx is done or Stop is called.
func (c *Client) Start(ctx context.Context) {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx, c.done)
}

// Stop ends the poll loop and waits for it to exit.
func (c *Client) Stop() {
	c.runMu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(c.opts.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		c.tick(ctx)
		timer.Reset(c.delay())
	}
}

// delay is the base interval doubled per consecutive failure, capped.
func (c *Client) delay() time.Duration {
	c.mu.RLock()
	failures := c.failures
	c.mu.RUnlock()

	d := c.opts.Interval
	for i := 0; i < failures && d < c.opts.MaxInterval; i++ {
		d *= 2
	}
	if d > c.opts.MaxInterval {
		d = c.opts.MaxInterval
	}
	return d
}

// tick polls unless it is the local player's turn, the match is over or
// another operation holds the client.
func (c *Client) tick(ctx context.Context) {
	c.mu.RLock()
	skip := c.view == nil || !c.view.IsActive() || c.isMyTurn()
	c.mu.RUnlock()
	if skip {
		return
	}
	if !c.op.TryLock() {
		return
	}
	defer c.op.Unlock()

	if err := c.poll(ctx); err != nil {
		c.logger.Debug("poll failed", "error", err)
	}
}

// Refresh polls the server now, waiting for any in-flight operation.
func (c *Client) Refresh(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.poll(ctx)
}

func (c *Client) poll(ctx context.Context) error {
	c.mu.RLock()
	if c.view == nil {
		c.mu.RUnlock()
		return ErrNotStarted
	}
	matchID := c.view.ID
	c.mu.RUnlock()

	c.setState(StatePolling)
	defer c.setState(StateIdle)

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	m, err := c.api.PollMatchState(reqCtx, matchID)
	c.mu.Lock()
	if err != nil {
		c.failures++
	} else {
		c.failures = 0
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.merge(ctx, m)
	return nil
}

// merge installs a server view unless it is older than the local one.
func (c *Client) merge(ctx context.Context, m *game.Match) {
	c.mu.Lock()
	if c.view != nil && m.Version < c.view.Version {
		c.mu.Unlock()
		return
	}
	wasMine := c.isMyTurn()
	changed := c.view == nil || c.view.Version != m.Version
	stale := c.draft == nil || draftStale(c.view, m)
	c.view = m.Clone()
	if stale {
		c.draft = NewDraft(m.Rack, m.Board)
	}
	var notice *TurnNotice
	if !wasMine && c.isMyTurn() {
		notice = &TurnNotice{MatchID: m.ID, TurnNumber: m.TurnNumber, At: c.opts.Clock()}
	}
	view := c.view.Clone()
	c.mu.Unlock()

	if notice != nil {
		c.notify(*notice)
	}
	if changed {
		c.save(ctx, view)
	}
}

// draftStale reports whether a draft built over prev no longer fits next.
// A version bump from the opponent's hint leaves the draft alone.
func draftStale(prev, next *game.Match) bool {
	return prev == nil ||
		prev.CurrentTurnUserID != next.CurrentTurnUserID ||
		!slices.Equal(prev.Rack, next.Rack) ||
		!maps.Equal(prev.Board, next.Board)
}

func (c *Client) notify(n TurnNotice) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

func (c *Client) save(ctx context.Context, view *game.Match) {
	if c.opts.Snapshots == nil {
		return
	}
	if err := c.opts.Snapshots.Save(ctx, c.playerID, view); err != nil {
		c.logger.Debug("snapshot save failed", "match_id", view.ID, "error", err)
	}
}

// Submit sends the draft. On success the result is folded into the local
// view. A turn conflict discards the draft and re-polls; any other failure
// keeps the draft for a retry.
func (c *Client) Submit(ctx context.Context) (*game.TurnSubmissionResult, error) {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.view == nil {
		c.mu.Unlock()
		return nil, ErrNotStarted
	}
	matchID := c.view.ID
	placements := c.draft.Placements()
	c.state = StateSubmitting
	c.mu.Unlock()
	defer c.setState(StateIdle)

	if len(placements) == 0 {
		return nil, game.ErrEmptySubmission
	}

	reqCtx, cancel := c.requestContext(ctx)
	result, err := c.api.SubmitTurn(reqCtx, matchID, placements)
	cancel()
	if err != nil {
		if errors.Is(err, game.ErrTurnConflict) {
			c.mu.Lock()
			c.draft.Clear()
			c.mu.Unlock()
			if perr := c.poll(ctx); perr != nil {
				c.logger.Debug("poll after turn conflict failed", "error", perr)
			}
			return nil, err
		}
		c.logger.Warn("submit failed", "match_id", matchID, "placements", len(placements), "error", err)
		return nil, err
	}

	c.mu.Lock()
	inStep := c.view.Version+1 == result.Version
	c.view.ApplyTurn(result)
	c.draft = NewDraft(c.view.Rack, c.view.Board)
	view := c.view.Clone()
	c.mu.Unlock()

	c.save(ctx, view)
	if !inStep {
		// something else changed the match between our last poll and the
		// submission, so the fold alone cannot be trusted
		if err := c.poll(ctx); err != nil {
			c.logger.Debug("resync poll failed", "error", err)
		}
	}
	return result, nil
}

// RequestHint asks for the cells that fit the rack letters not yet drafted.
// It fails locally, without calling the server, when the hint could not
// point anywhere useful: off turn, with nothing left to place, or with no
// hints left. Cells already holding a draft letter are left out of the result.
func (c *Client) RequestHint(ctx context.Context) (*game.HintResult, error) {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.RLock()
	if c.view == nil {
		c.mu.RUnlock()
		return nil, ErrNotStarted
	}
	if !c.isMyTurn() {
		c.mu.RUnlock()
		return nil, fmt.Errorf("%w: waiting for opponent", game.ErrTurnConflict)
	}
	if c.view.Vision[c.playerID] <= 0 {
		c.mu.RUnlock()
		return nil, game.ErrNoHintsRemaining
	}
	matchID := c.view.ID
	remaining := c.draft.RemainingLetters()
	c.mu.RUnlock()

	if len(remaining) == 0 {
		return nil, ErrRackEmpty
	}

	reqCtx, cancel := c.requestContext(ctx)
	result, err := c.api.UseHint(reqCtx, matchID, remaining)
	cancel()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	inStep := c.view.Version+1 == result.Version
	c.view.ApplyHint(result)
	hint := *result
	hint.ValidCells = make([]int, 0, len(result.ValidCells))
	for _, cell := range result.ValidCells {
		if _, drafted := c.draft.Letter(cell); !drafted {
			hint.ValidCells = append(hint.ValidCells, cell)
		}
	}
	view := c.view.Clone()
	c.mu.Unlock()

	c.save(ctx, view)
	if !inStep {
		if err := c.poll(ctx); err != nil {
			c.logger.Debug("resync poll failed", "error", err)
		}
	}
	return &hint, nil
}

// Place drafts the letter from rackIndex onto cell.
func (c *Client) Place(cell int, letter string, rackIndex int) error {
	return c.editDraft(func(d *Draft) error { return d.Place(cell, letter, rackIndex) })
}

func (c *Client) MoveDraft(from, to int) error {
	return c.editDraft(func(d *Draft) error { return d.MoveDraft(from, to) })
}

func (c *Client) ReturnToRack(cell int) error {
	return c.editDraft(func(d *Draft) error { return d.ReturnToRack(cell) })
}

// Draft returns the current draft placements.
func (c *Client) Draft() []game.Placement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.draft == nil {
		return []game.Placement{}
	}
	return c.draft.Placements()
}

func (c *Client) editDraft(edit func(d *Draft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return ErrNotStarted
	}
	if c.state == StateSubmitting {
		return ErrSubmitting
	}
	if !c.isMyTurn() {
		return fmt.Errorf("%w: waiting for opponent", game.ErrTurnConflict)
	}
	return edit(c.draft)
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opts.Timeout)
}
