package waitlist

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"refeitorio-client/internal/model"
)

// LoadState tracks one collection.
type LoadState int

const (
	Idle LoadState = iota
	Loading
	Loaded
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case LoadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MutationState tracks inscribe and cancel.
type MutationState int

const (
	Ready MutationState = iota
	Submitting
	Settled
	MutationFailed
)

func (s MutationState) String() string {
	switch s {
	case Ready:
		return "ready"
	case Submitting:
		return "submitting"
	case Settled:
		return "settled"
	case MutationFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Coordinator owns the student's in-memory view of the waitlist: their
// inscriptions, the slots open for inscription and their queue positions.
// Every figure is a server fact; mutations are followed by a forced refresh
// of available slots instead of local bookkeeping.
type Coordinator struct {
	repo   Repository
	busy   BusyPolicy
	logger *zap.Logger

	// mutating serializes Inscribe and Cancel end to end.
	mutating sync.Mutex

	mu          sync.RWMutex
	generation  uint64
	mine        []model.Inscription
	available   []model.MealSlot
	positions   []model.QueuePosition
	states      [resourceCount]LoadState
	mutation    MutationState
	lastOutcome MutationState
}

// NewCoordinator creates a Coordinator. A nil policy means SharedBusy.
func NewCoordinator(repo Repository, policy BusyPolicy, logger *zap.Logger) *Coordinator {
	if policy == nil {
		policy = &SharedBusy{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		repo:        repo,
		busy:        policy,
		logger:      logger,
		mine:        []model.Inscription{},
		available:   []model.MealSlot{},
		positions:   []model.QueuePosition{},
		lastOutcome: Ready,
	}
}

// LoadMine replaces the student's inscriptions. Failures are logged and
// leave the collection empty.
func (c *Coordinator) LoadMine(ctx context.Context) {
	if !c.busy.TryBegin(ResourceMine) {
		c.logger.Debug("load skipped, another load is in flight", zap.Stringer("resource", ResourceMine))
		return
	}
	defer c.busy.End(ResourceMine)

	gen := c.begin(ResourceMine)
	mine, err := c.repo.ListMine(ctx)
	if err != nil {
		c.logger.Warn("failed to load inscriptions", zap.Error(err))
		c.commit(gen, ResourceMine, LoadFailed, func() { c.mine = []model.Inscription{} })
		return
	}
	if mine == nil {
		mine = []model.Inscription{}
	}
	c.commit(gen, ResourceMine, Loaded, func() { c.mine = mine })
	c.logger.Debug("inscriptions loaded", zap.Int("count", len(mine)))
}

// LoadAvailable replaces the available slots. Unless force is set the call
// is dropped while another load is in flight. On failure the collection is
// emptied and the error returned.
func (c *Coordinator) LoadAvailable(ctx context.Context, force bool) error {
	if force {
		c.busy.Begin(ResourceAvailable)
	} else if !c.busy.TryBegin(ResourceAvailable) {
		c.logger.Debug("load skipped, another load is in flight", zap.Stringer("resource", ResourceAvailable))
		return nil
	}
	defer c.busy.End(ResourceAvailable)

	return c.fetchAvailable(ctx, c.begin(ResourceAvailable), force)
}

// refreshAvailable is the forced reload that follows a mutation. It does
// nothing when the session was reset since gen.
func (c *Coordinator) refreshAvailable(ctx context.Context, gen uint64) error {
	c.busy.Begin(ResourceAvailable)
	defer c.busy.End(ResourceAvailable)

	if !c.beginAt(gen, ResourceAvailable) {
		return nil
	}
	return c.fetchAvailable(ctx, gen, true)
}

func (c *Coordinator) fetchAvailable(ctx context.Context, gen uint64, force bool) error {
	slots, err := c.repo.ListAvailable(ctx)
	if err != nil {
		c.logger.Warn("failed to load available slots", zap.Error(err))
		c.commit(gen, ResourceAvailable, LoadFailed, func() { c.available = []model.MealSlot{} })
		return err
	}
	if slots == nil {
		slots = []model.MealSlot{}
	}
	c.commit(gen, ResourceAvailable, Loaded, func() { c.available = slots })
	c.logger.Debug("available slots loaded", zap.Int("count", len(slots)), zap.Bool("forced", force))
	return nil
}

// LoadPositions replaces the queue positions. On failure the previous
// positions are kept and the error returned.
func (c *Coordinator) LoadPositions(ctx context.Context) error {
	if !c.busy.TryBegin(ResourcePositions) {
		c.logger.Debug("load skipped, another load is in flight", zap.Stringer("resource", ResourcePositions))
		return nil
	}
	defer c.busy.End(ResourcePositions)

	gen := c.begin(ResourcePositions)
	positions, err := c.repo.Position(ctx)
	if err != nil {
		c.logger.Warn("failed to load queue positions", zap.Error(err))
		c.commit(gen, ResourcePositions, LoadFailed, nil)
		return err
	}
	if positions == nil {
		positions = []model.QueuePosition{}
	}
	c.commit(gen, ResourcePositions, Loaded, func() { c.positions = positions })
	c.logger.Debug("queue positions loaded", zap.Int("count", len(positions)))
	return nil
}

// Inscribe claims a place in the queue of slotID. A slot already flagged
// as inscribed is refused locally with ErrAlreadyInscribed. After a
// successful inscription the available slots are force-refreshed; if that
// refresh fails the inscription is returned together with a *RefreshError.
// A Reset while the request is in flight discards its local effects.
func (c *Coordinator) Inscribe(ctx context.Context, slotID int64) (model.Inscription, error) {
	c.mutating.Lock()
	defer c.mutating.Unlock()

	if c.alreadyInscribed(slotID) {
		return model.Inscription{}, ErrAlreadyInscribed
	}

	c.busy.Begin(ResourceMine)
	defer c.busy.End(ResourceMine)
	gen := c.startMutation()

	ins, err := c.repo.Inscribe(ctx, slotID)
	if err != nil {
		c.finishMutation(gen, MutationFailed)
		return model.Inscription{}, err
	}
	c.logger.Info("inscribed in waitlist", zap.Int64("refeicao_id", slotID), zap.Int64("inscricao_id", ins.ID))

	if !c.apply(gen, func() { c.mine = append(c.mine, ins) }) {
		c.logger.Debug("session reset during inscription, local state not updated", zap.Int64("inscricao_id", ins.ID))
		return ins, nil
	}

	refreshErr := c.refreshAvailable(ctx, gen)
	c.finishMutation(gen, Settled)
	if refreshErr != nil {
		return ins, &RefreshError{Err: refreshErr}
	}
	return ins, nil
}

// Cancel withdraws an inscription and removes it from the local list. The
// available slots are then force-refreshed; a failing refresh is reported
// as a *RefreshError.
func (c *Coordinator) Cancel(ctx context.Context, inscriptionID int64) error {
	c.mutating.Lock()
	defer c.mutating.Unlock()

	c.busy.Begin(ResourceMine)
	defer c.busy.End(ResourceMine)
	gen := c.startMutation()

	if err := c.repo.Cancel(ctx, inscriptionID); err != nil {
		c.finishMutation(gen, MutationFailed)
		return err
	}
	c.logger.Info("inscription canceled", zap.Int64("inscricao_id", inscriptionID))

	removed := c.apply(gen, func() {
		kept := make([]model.Inscription, 0, len(c.mine))
		for _, ins := range c.mine {
			if ins.ID != inscriptionID {
				kept = append(kept, ins)
			}
		}
		c.mine = kept
	})
	if !removed {
		c.logger.Debug("session reset during cancel, local state not updated", zap.Int64("inscricao_id", inscriptionID))
		return nil
	}

	refreshErr := c.refreshAvailable(ctx, gen)
	c.finishMutation(gen, Settled)
	if refreshErr != nil {
		return &RefreshError{Err: refreshErr}
	}
	return nil
}

// Reset drops all state. Loads still in flight will not commit.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.mine = []model.Inscription{}
	c.available = []model.MealSlot{}
	c.positions = []model.QueuePosition{}
	c.states = [resourceCount]LoadState{}
	c.mutation = Ready
	c.lastOutcome = Ready
}

func (c *Coordinator) Mine() []model.Inscription {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Inscription, len(c.mine))
	copy(out, c.mine)
	return out
}

func (c *Coordinator) Available() []model.MealSlot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.MealSlot, len(c.available))
	copy(out, c.available)
	return out
}

func (c *Coordinator) Positions() []model.QueuePosition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.QueuePosition, len(c.positions))
	copy(out, c.positions)
	return out
}

// Slot returns the known available slot with the given id.
func (c *Coordinator) Slot(slotID int64) (model.MealSlot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.available {
		if s.ID == slotID {
			return s, true
		}
	}
	return model.MealSlot{}, false
}

func (c *Coordinator) State(r Resource) LoadState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.states[r]
}

// Mutation is Submitting while inscribe or cancel is running, else Ready.
func (c *Coordinator) Mutation() MutationState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mutation
}

// LastOutcome is Settled or MutationFailed for the latest finished
// mutation, Ready before any.
func (c *Coordinator) LastOutcome() MutationState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastOutcome
}

func (c *Coordinator) Busy(r Resource) bool {
	return c.busy.Busy(r)
}

func (c *Coordinator) alreadyInscribed(slotID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.available {
		if s.ID == slotID && s.AlreadyInscribed {
			return true
		}
	}
	for _, ins := range c.mine {
		if ins.SlotID == slotID && ins.Active() {
			return true
		}
	}
	return false
}

func (c *Coordinator) begin(r Resource) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[r] = Loading
	return c.generation
}

// beginAt marks r loading only if no Reset ran since gen.
func (c *Coordinator) beginAt(gen uint64, r Resource) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.states[r] = Loading
	return true
}

// commit applies fn and the new state unless Reset ran since begin.
func (c *Coordinator) commit(gen uint64, r Resource, state LoadState, fn func()) {
	c.apply(gen, func() {
		c.states[r] = state
		if fn != nil {
			fn()
		}
	})
}

// apply runs fn under the lock and reports whether gen was still current.
func (c *Coordinator) apply(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	fn()
	return true
}

func (c *Coordinator) startMutation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mutation = Submitting
	return c.generation
}

func (c *Coordinator) finishMutation(gen uint64, outcome MutationState) {
	c.apply(gen, func() {
		c.lastOutcome = outcome
		c.mutation = Ready
	})
}
