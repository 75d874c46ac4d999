package models

import (
	"context"
	"slices"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/gorilla/websocket"

	"github.com/moyoez/mosaic/preview"
	"github.com/moyoez/mosaic/tool"
	"github.com/moyoez/mosaic/types"
	"github.com/moyoez/mosaic/validate"
)

// Session is one browser's page state: its file field, the pipeline that
// previews it and the sockets listening for results.
type Session struct {
	ID       string
	Field    *preview.Field
	Pipeline *preview.Pipeline
	Hub      *Hub

	selectMu   sync.Mutex
	selections uint64

	mu            sync.RWMutex
	state         types.PreviewState
	failures      []*validate.ValidationError
	stateDirty    bool
	failuresDirty bool

	pending   chan struct{} // something is dirty
	done      chan struct{}
	closeOnce sync.Once
}

// keepalive pings are sent at most this far apart
const pingPeriod = 30 * time.Second

var (
	sessionMu    sync.Mutex
	sessions     = newSessionCache(tool.DefaultTTL)
	lifetime     = tool.DefaultTTL
	changes      = make(chan preview.Change, 64)
	pipelineOpts preview.Options
	policy       = validate.DefaultPolicy()

	// sessionTTL is swapped by tests that need sessions to expire quickly.
	sessionTTL = tool.SessionTTLDuration
)

func newSessionCache(ttl time.Duration) *ttlworker.Cache[string, *Session] {
	return ttlworker.NewCacheOn[string, *Session](ttl, [4]func(string, *Session){
		nil, nil,
		func(id string, s *Session) {
			tool.DefaultLogger.Debugf("[Session] Expired %s", id)
			go s.close()
		},
		nil,
	})
}

// Setup applies the config and closes every existing session.
func Setup(cfg *types.AppConfig) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	sessions.Destroy()
	lifetime = sessionTTL(cfg)
	sessions = newSessionCache(lifetime)
	pipelineOpts = preview.Options{
		MaxPhotosFunc: maxPhotos,
		Concurrency:   cfg.PreviewConcurrency,
		Timeout:       tool.PreviewTimeoutDuration(cfg),
	}
	policy = validate.PolicyFromConfig(cfg)
}

// maxPhotos keeps the preview cap in step with the count rule.
func maxPhotos() int {
	return GetPolicy().MaxPhotos
}

// GetPolicy returns the active validation policy.
func GetPolicy() validate.Policy {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	return policy
}

// SetPolicy replaces the validation policy for every session.
func SetPolicy(p validate.Policy) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	policy = p
}

func GetOrCreateSession(id string) *Session {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	if s := sessions.Get(id); s != nil {
		return s
	}
	s := &Session{
		ID:      id,
		Hub:     NewHub(),
		state:   types.PreviewState{Images: types.PreviewList{}},
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.Field = preview.NewField(id, changes)
	s.Pipeline = preview.New(nil, s.publish, pipelineOpts)
	go s.deliver()
	sessions.Set(id, s)
	tool.DefaultLogger.Debugf("[Session] Created %s", id)
	return s
}

func LookupSession(id string) (*Session, bool) {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	s := sessions.Get(id)
	return s, s != nil
}

// RemoveSession drops the session and waits for it to close.
func RemoveSession(id string) {
	sessionMu.Lock()
	s := sessions.Get(id)
	sessions.Delete(id)
	sessionMu.Unlock()
	if s != nil {
		s.close()
	}
}

// touch refreshes the session's expiry. It reports false once the session
// has been dropped or replaced.
func (s *Session) touch() bool {
	sessionMu.Lock()
	defer sessionMu.Unlock()
	return sessions.Get(s.ID) == s
}

// KeepAlive holds the session open while conn is connected, pinging the
// client so dead sockets are noticed. It returns when ctx ends, the ping
// fails or the session is gone.
func (s *Session) KeepAlive(ctx context.Context, conn *websocket.Conn) {
	sessionMu.Lock()
	interval := min(lifetime/3, pingPeriod)
	sessionMu.Unlock()
	if interval <= 0 {
		interval = pingPeriod
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if !s.touch() {
				return
			}
			if err := s.Hub.Ping(conn); err != nil {
				tool.DefaultLogger.Debugf("[Session] %s ping failed: %v", s.ID, err)
				return
			}
		}
	}
}

// close stops the pipeline and disconnects every socket so open pages
// reconnect to a fresh session.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.Pipeline.Stop()
		s.Hub.CloseAll()
	})
}

// StartDispatcher runs the single consumer of every session's selection
// changes until ctx ends. The returned channel is closed once it has stopped.
func StartDispatcher(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		preview.Watch(ctx, changes, dispatch)
	}()
	return done
}

func dispatch(ctx context.Context, change preview.Change) {
	s, ok := LookupSession(change.Key)
	if !ok {
		tool.DefaultLogger.Debugf("[Session] Dropping change for expired session %s", change.Key)
		return
	}
	gen := s.Pipeline.Submit(ctx, change.Selection)
	tool.DefaultLogger.Debugf("[Session] %s generation %d started for %d files", s.ID, gen, len(change.Selection))
}

// Select replaces the session's selection and returns the generation its
// previews will be published under. Changes are dispatched in order and each
// one starts exactly one batch, so the count of selections is the generation.
// The failures are recorded and broadcast only once the change is queued.
func (s *Session) Select(ctx context.Context, sel types.FileSelection, failures []*validate.ValidationError) (uint64, error) {
	s.selectMu.Lock()
	defer s.selectMu.Unlock()
	if err := s.Field.Set(ctx, sel); err != nil {
		return 0, err
	}
	s.selections++
	s.SetFailures(failures)
	return s.selections, nil
}

// SetFailures records the validation result of the latest selection.
func (s *Session) SetFailures(failures []*validate.ValidationError) {
	s.mu.Lock()
	s.failures = slices.Clone(failures)
	s.failuresDirty = true
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Failures() []*validate.ValidationError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.failures)
}

// State returns the last published previews.
func (s *Session) State() types.PreviewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// publish runs under the pipeline lock. It only stores the state; deliver
// does the socket writes.
func (s *Session) publish(gen uint64, list types.PreviewList) {
	s.mu.Lock()
	s.state = types.PreviewState{Generation: gen, Images: list}
	s.stateDirty = true
	s.mu.Unlock()
	s.notify()
}

func (s *Session) notify() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// deliver broadcasts whatever changed since its last round. Updates made
// during a slow broadcast collapse into the newest one.
func (s *Session) deliver() {
	for {
		select {
		case <-s.done:
			return
		case <-s.pending:
		}

		s.mu.Lock()
		state, failures := s.state, s.failures
		sendState, sendFailures := s.stateDirty, s.failuresDirty
		s.stateDirty, s.failuresDirty = false, false
		s.mu.Unlock()

		if sendFailures {
			s.Hub.Broadcast(ValidationNotification(failures))
		}
		if sendState {
			s.Hub.Broadcast(PreviewNotification(state))
		}
	}
}

// ValidationNotification carries the rule messages of the latest selection.
func ValidationNotification(failures []*validate.ValidationError) *types.Notification {
	return &types.Notification{
		Type: types.NotifyTypeValidation,
		Data: map[string]any{"errors": validate.Messages(failures)},
	}
}

// PreviewNotification wraps a preview state for the notify socket.
func PreviewNotification(state types.PreviewState) *types.Notification {
	images := state.Images
	if images == nil {
		images = types.PreviewList{}
	}
	return &types.Notification{
		Type: types.NotifyTypePreview,
		Data: map[string]any{
			"generation": state.Generation,
			"images":     images,
		},
	}
}
