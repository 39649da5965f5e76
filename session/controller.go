package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"

	"github.com/confshare/confshare-go/budget"
	"github.com/confshare/confshare-go/compose"
	"github.com/confshare/confshare-go/crypt"
	"github.com/confshare/confshare-go/qr"
	"github.com/confshare/confshare-go/registry"
	"github.com/confshare/confshare-go/tool"
	"github.com/confshare/confshare-go/types"
)

// State names the share flow lifecycle phases.
type State string

const (
	StateIdle        State = "idle"
	StateConfiguring State = "configuring"
	StateGenerating  State = "generating"
	StatePresented   State = "presented"
)

const (
	defaultPasswordLength  = 16
	defaultEncryptTimeout  = 10 * time.Second
	defaultMessageCountCap = 10
)

// Invalidator is anything with an explicitly invalidatable cache. The
// controller invalidates it when a share flow opens so a session never sees
// data cached before it started.
type Invalidator interface {
	Invalidate()
}

// KV is the persistence boundary for selection state.
type KV interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}

// Config wires a Controller.
type Config struct {
	Registry *registry.Registry
	Engine   *budget.Engine
	Composer *compose.Composer
	Renderer *qr.Renderer
	Store    KV
	Origin   string
	Path     string
	// EncryptTimeout bounds the encryption step so an oversized payload can
	// not stall generation forever.
	EncryptTimeout time.Duration
	// ModelCache, when set, is invalidated on every Open.
	ModelCache Invalidator
}

// GenerateResult is what a successful generation presents.
type GenerateResult struct {
	ShareID    string `json:"shareId"`
	Link       string `json:"link"`
	LinkLength int    `json:"linkLength"`
	QRCode     []byte `json:"-"`
	QRSkipped  bool   `json:"qrSkipped"`
}

// Controller owns the mutable share session state: selection, password,
// lifecycle phase and the estimate round counter. All mutation goes through
// its methods.
type Controller struct {
	mu sync.Mutex

	cfg    Config
	logger *log.Logger

	state          State
	selection      types.SelectionState
	messageCount   int
	password       string
	passwordLocked bool
	lastError      string

	// round increases on every recompute; a finished round whose number no
	// longer matches is stale and its result is discarded.
	round atomic.Uint64

	budgetMu sync.RWMutex
	// lastPublishedRound makes supersession atomic with publication: a round
	// can only publish if nothing newer already has.
	lastPublishedRound uint64
	currentBudget      types.BudgetResult
	hasBudget          bool
	subscribers        []func(types.BudgetResult)

	genCancel context.CancelFunc
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	if cfg.EncryptTimeout <= 0 {
		cfg.EncryptTimeout = defaultEncryptTimeout
	}
	return &Controller{
		cfg:    cfg,
		logger: tool.DefaultLogger,
		state:  StateIdle,
	}
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError returns the message of the most recent generation failure, if the
// session is back in configuring because of one.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Open moves Idle -> Configuring. Persisted selection is loaded with each
// descriptor's default as fallback. An inbound password (re-sharing a
// received link) is adopted; otherwise, unless a locked password survives
// from the previous session, a fresh random one is generated.
func (c *Controller) Open(inboundPassword string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return fmt.Errorf("share session already open (state %s)", c.state)
	}

	sel, count, found := loadSelection(c.cfg.Store, c.cfg.Registry)
	if !found {
		sel = c.cfg.Registry.Defaults()
		count = defaultMessageCountCap
	}
	c.selection = sel
	c.messageCount = count

	switch {
	case inboundPassword != "":
		c.password = inboundPassword
	case c.passwordLocked && c.password != "":
		// keep the locked password
	default:
		pw, err := crypt.GeneratePassword(defaultPasswordLength)
		if err != nil {
			return err
		}
		c.password = pw
	}

	if c.cfg.ModelCache != nil {
		c.cfg.ModelCache.Invalidate()
	}

	c.lastError = ""
	c.state = StateConfiguring
	c.startRecomputeLocked()
	return nil
}

// Toggle flips one item's inclusion and starts a new estimate round.
// Toggling while Presented drops back to Configuring first.
func (c *Controller) Toggle(id string, include bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePresented {
		c.state = StateConfiguring
	}
	if c.state != StateConfiguring {
		return fmt.Errorf("cannot toggle items in state %s", c.state)
	}
	if _, ok := c.cfg.Registry.Get(id); !ok {
		return fmt.Errorf("unknown share item %q", id)
	}
	c.selection[id] = include
	c.startRecomputeLocked()
	return nil
}

// SetMessageCount changes how many trailing conversation messages are shared
// and starts a new estimate round.
func (c *Controller) SetMessageCount(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePresented {
		c.state = StateConfiguring
	}
	if c.state != StateConfiguring {
		return fmt.Errorf("cannot change message count in state %s", c.state)
	}
	if n < 0 {
		n = 0
	}
	c.messageCount = n
	c.startRecomputeLocked()
	return nil
}

// SetPassword replaces the session password. lock makes it survive Close.
// Changing the password while Presented means the shown link no longer
// matches; the session drops back to Configuring for a regenerate.
func (c *Controller) SetPassword(password string, lock bool) error {
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.password = password
	c.passwordLocked = lock
	if c.state == StatePresented {
		c.state = StateConfiguring
	}
	return nil
}

// Selection returns a copy of the current selection.
func (c *Controller) Selection() types.SelectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Clone()
}

// MessageCount returns the configured conversation message count.
func (c *Controller) MessageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messageCount
}

// OnBudgetChanged registers a callback invoked with the result of every
// completed, non-superseded estimate round.
func (c *Controller) OnBudgetChanged(fn func(types.BudgetResult)) {
	c.budgetMu.Lock()
	defer c.budgetMu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// CurrentBudget returns the latest completed estimate.
func (c *Controller) CurrentBudget() (types.BudgetResult, bool) {
	c.budgetMu.RLock()
	defer c.budgetMu.RUnlock()
	return c.currentBudget, c.hasBudget
}

// startRecomputeLocked launches an estimate round for the current selection.
// Caller holds c.mu. The round snapshot means a toggle racing the fan-out
// can only ever supersede, never corrupt.
func (c *Controller) startRecomputeLocked() {
	round := c.round.Add(1)
	selection := c.selection.Clone()
	req := registry.Request{MessageCount: c.messageCount}
	go func() {
		result := c.cfg.Engine.Estimate(context.Background(), selection, req)
		c.publishBudget(round, result)
	}()
}

// publishBudget installs a round's result unless a newer round already
// published. The decision and the write happen under the same lock, so a slow
// old round can never overwrite a fast new one.
func (c *Controller) publishBudget(round uint64, result types.BudgetResult) {
	c.budgetMu.Lock()
	if round <= c.lastPublishedRound {
		c.budgetMu.Unlock()
		c.logger.Debugf("discarding superseded estimate round %d", round)
		return
	}
	c.lastPublishedRound = round
	c.currentBudget = result
	c.hasBudget = true
	subs := append(([]func(types.BudgetResult))(nil), c.subscribers...)
	c.budgetMu.Unlock()
	for _, fn := range subs {
		fn(result)
	}
}

// Generate runs the full compose -> encrypt -> link -> QR pipeline. Allowed
// from Configuring, and from Presented as a regenerate: the payload is always
// recomposed fresh, since the underlying data may have changed.
//
// Any failure returns the session to Configuring with the error recorded and
// the password preserved, so the user does not re-enter it.
func (c *Controller) Generate(ctx context.Context) (*GenerateResult, error) {
	c.mu.Lock()
	if c.state != StateConfiguring && c.state != StatePresented {
		c.mu.Unlock()
		return nil, fmt.Errorf("cannot generate in state %s", c.state)
	}
	c.state = StateGenerating
	c.lastError = ""
	genCtx, cancel := context.WithCancel(ctx)
	c.genCancel = cancel
	selection := c.selection.Clone()
	req := registry.Request{MessageCount: c.messageCount}
	password := c.password
	c.mu.Unlock()
	defer cancel()

	result, err := c.generate(genCtx, selection, req, password)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.genCancel = nil
	if c.state != StateGenerating {
		// Closed mid-generation; the artifact references a stale payload.
		return nil, context.Canceled
	}
	if err != nil {
		c.state = StateConfiguring
		c.lastError = err.Error()
		return nil, err
	}
	c.state = StatePresented
	return result, nil
}

func (c *Controller) generate(ctx context.Context, selection types.SelectionState, req registry.Request, password string) (*GenerateResult, error) {
	payload, err := c.cfg.Composer.Compose(ctx, selection, req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plaintext, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %v", err)
	}

	ciphertext, err := c.encryptWithTimeout(ctx, plaintext, password)
	if err != nil {
		return nil, err
	}

	link := crypt.BuildShareURL(c.cfg.Origin, c.cfg.Path, ciphertext)
	result := &GenerateResult{
		ShareID:    tool.GenerateShortSessionID(),
		Link:       link,
		LinkLength: len(link),
	}

	png, err := c.cfg.Renderer.Render(link)
	if err != nil {
		var tooLong *qr.ErrLinkTooLong
		if errors.As(err, &tooLong) {
			// Designed degraded path: the link still works, just no code.
			c.logger.Warnf("%v, skipping QR code", tooLong)
			result.QRSkipped = true
			return result, nil
		}
		return nil, err
	}
	result.QRCode = png
	return result, nil
}

// encryptWithTimeout bounds the encryption step and honors cancellation from
// a modal close.
func (c *Controller) encryptWithTimeout(ctx context.Context, plaintext []byte, password string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.EncryptTimeout)
	defer cancel()

	type encrypted struct {
		ciphertext string
		err        error
	}
	done := make(chan encrypted, 1)
	go func() {
		ct, err := crypt.Encrypt(plaintext, password)
		done <- encrypted{ciphertext: ct, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("encryption did not finish: %v", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("encryption failed: %v", res.err)
		}
		return res.ciphertext, nil
	}
}

// Close returns the session to Idle from any state, cancelling an in-flight
// generation. Selection is persisted; the password is discarded unless the
// user locked it.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		return
	}
	if c.genCancel != nil {
		c.genCancel()
		c.genCancel = nil
	}
	if c.selection != nil {
		if err := saveSelection(c.cfg.Store, c.selection, c.messageCount); err != nil {
			c.logger.Warnf("failed to persist selection state: %v", err)
		}
	}
	if !c.passwordLocked {
		c.password = ""
	}
	c.selection = nil
	c.lastError = ""
	c.budgetMu.Lock()
	c.hasBudget = false
	c.currentBudget = types.BudgetResult{}
	c.budgetMu.Unlock()
	c.state = StateIdle
}
