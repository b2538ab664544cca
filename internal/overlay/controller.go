package overlay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/tapsight/internal/models"
	"github.com/lehigh-university-libraries/tapsight/internal/recognition"
)

// Identifier resolves the object at a tap point
type Identifier interface {
	Identify(ctx context.Context, image models.EncodedImage, tap models.TapPoint) (*models.RecognitionResult, error)
}

// VisualGenerator produces an illustration for a visual prompt
type VisualGenerator interface {
	Generate(ctx context.Context, prompt string) models.VisualAsset
}

// Observer receives a snapshot after every session change
type Observer func(Session)

// Option configures a Controller
type Option func(*Controller)

// WithObserver registers an observer
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// Controller sequences recognition and image generation for the current tap.
// At most one session is live; async results are applied only while their
// generation is current and the session is open.
type Controller struct {
	identifier Identifier
	visuals    VisualGenerator
	observers  []Observer

	mu         sync.Mutex
	generation uint64
	current    *Session
	cancel     context.CancelFunc

	wg sync.WaitGroup
}

// New returns a controller with no session
func New(identifier Identifier, visuals VisualGenerator, opts ...Option) *Controller {
	c := &Controller{identifier: identifier, visuals: visuals}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts a session for a tap, superseding any live session in the same step
func (c *Controller) Open(image models.EncodedImage, tap models.TapPoint) Session {
	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	superseded, hadLive := c.closeLocked()
	c.generation++
	s := &Session{
		ID:         uuid.NewString(),
		Generation: c.generation,
		Revision:   1,
		Tap:        tap.Clamp(),
		Status:     StatusRecognizing,
		OpenedAt:   time.Now(),
	}
	c.current = s
	c.cancel = cancel
	snapshot := *s
	c.mu.Unlock()

	if hadLive {
		slog.Debug("Session superseded", "session_id", superseded.ID, "generation", superseded.Generation)
		c.notify(superseded)
	}
	slog.Info("Session opened", "session_id", snapshot.ID, "generation", snapshot.Generation, "x", snapshot.Tap.X, "y", snapshot.Tap.Y)
	c.notify(snapshot)

	c.wg.Add(1)
	go c.run(ctx, snapshot.Generation, image, snapshot.Tap)

	return snapshot
}

// Close dismisses the live session. It reports false when there was nothing to close.
func (c *Controller) Close() bool {
	c.mu.Lock()
	closed, ok := c.closeLocked()
	c.mu.Unlock()

	if ok {
		slog.Info("Session closed", "session_id", closed.ID)
		c.notify(closed)
	}
	return ok
}

// CloseSession dismisses the live session only if it has the given id
func (c *Controller) CloseSession(id string) bool {
	c.mu.Lock()
	if c.current == nil || c.current.ID != id {
		c.mu.Unlock()
		return false
	}
	closed, ok := c.closeLocked()
	c.mu.Unlock()

	if ok {
		slog.Info("Session closed", "session_id", closed.ID)
		c.notify(closed)
	}
	return ok
}

// Current returns the live session, if any. Closed sessions are never returned.
func (c *Controller) Current() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.Status == StatusClosed {
		return Session{Status: StatusIdle}, false
	}
	return *c.current, true
}

// Wait blocks until every in-flight request has returned
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) closeLocked() (Session, bool) {
	if c.current == nil || c.current.Status == StatusClosed {
		return Session{}, false
	}
	c.current.Status = StatusClosed
	c.current.Revision++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return *c.current, true
}

// update applies fn to the live session if gen is still current
func (c *Controller) update(gen uint64, fn func(*Session)) bool {
	c.mu.Lock()
	if c.current == nil || c.current.Generation != gen || c.current.Status == StatusClosed {
		c.mu.Unlock()
		return false
	}
	fn(c.current)
	c.current.Revision++
	snapshot := *c.current
	c.mu.Unlock()

	c.notify(snapshot)
	return true
}

func (c *Controller) notify(s Session) {
	for _, o := range c.observers {
		o(s)
	}
}

func (c *Controller) run(ctx context.Context, gen uint64, image models.EncodedImage, tap models.TapPoint) {
	defer c.wg.Done()

	result, err := c.identifier.Identify(ctx, image, tap)

	var prompt string
	applied := c.update(gen, func(s *Session) {
		if err != nil {
			s.Status = StatusFailed
			s.Failure = failureReason(err)
			s.Error = err.Error()
			return
		}
		s.Status = StatusReady
		s.Result = result
		if result.ReferenceImage == "" {
			s.ImageState = ImagePending
			prompt = result.VisualPrompt
			if prompt == "" {
				prompt = result.Name
			}
		}
	})
	if !applied {
		slog.Debug("Discarding superseded recognition response", "generation", gen)
		return
	}

	if err != nil {
		if errors.Is(err, recognition.ErrQuotaExceeded) {
			slog.Warn("Recognition quota exceeded", "generation", gen, "err", err)
		} else {
			slog.Error("Recognition failed", "generation", gen, "err", err)
		}
		return
	}
	slog.Info("Object recognized", "generation", gen, "name", result.Name, "category", result.Category, "confidence", result.Confidence)

	if prompt == "" {
		return
	}

	asset := c.visuals.Generate(ctx, prompt)
	if !c.update(gen, func(s *Session) {
		s.Visual = asset
		s.ImageState = imageStateFor(asset)
	}) {
		slog.Debug("Discarding superseded visual response", "generation", gen)
	}
}

func failureReason(err error) FailureReason {
	switch {
	case errors.Is(err, recognition.ErrConfig):
		return FailureConfig
	case errors.Is(err, recognition.ErrQuotaExceeded):
		return FailureQuotaExceeded
	default:
		return FailureRecognition
	}
}
