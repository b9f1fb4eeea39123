package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lumina-estetica/citabot/pkg/logging"
)

var sessionTracer = otel.Tracer("citabot.internal.conversation.sessions")

// ErrSessionNotFound indicates no session exists for the phone.
var ErrSessionNotFound = errors.New("conversation: session not found")

// ErrVersionConflict indicates the stored session changed since it was
// loaded; the caller must reload and replay the turn.
var ErrVersionConflict = errors.New("conversation: session version conflict")

const sessionTTL = 24 * time.Hour

// SessionStore persists booking sessions keyed by phone. Save performs a
// compare-and-swap on BookingSession.Version and bumps it on success.
type SessionStore interface {
	Load(ctx context.Context, phone string) (*BookingSession, error)
	Save(ctx context.Context, session *BookingSession) error
	Delete(ctx context.Context, phone string) error
}

// saveScript stores the session only when the persisted version still equals
// the version the caller loaded. A missing key counts as version 0.
var saveScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local stored = cjson.decode(cur)
	if tonumber(stored['version']) ~= tonumber(ARGV[1]) then
		return 0
	end
end
redis.call('SET', KEYS[1], ARGV[2], 'EX', tonumber(ARGV[3]))
return 1
`)

// RedisSessionStore is the primary session store.
type RedisSessionStore struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, logger *logging.Logger) *RedisSessionStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisSessionStore{client: client, logger: logger}
}

func sessionKey(phone string) string {
	return "session:" + phone
}

// Load fetches the session for a phone.
func (s *RedisSessionStore) Load(ctx context.Context, phone string) (*BookingSession, error) {
	ctx, span := sessionTracer.Start(ctx, "sessions.load")
	defer span.End()
	span.SetAttributes(attribute.String("citabot.phone", phone))

	data, err := s.client.Get(ctx, sessionKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}

	var session BookingSession
	if err := json.Unmarshal(data, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: unmarshal session: %w", err)
	}
	return &session, nil
}

// Save writes the session with a compare-and-swap on its version. On success
// the in-memory session's version is incremented to match the store.
func (s *RedisSessionStore) Save(ctx context.Context, session *BookingSession) error {
	ctx, span := sessionTracer.Start(ctx, "sessions.save")
	defer span.End()
	span.SetAttributes(attribute.String("citabot.phone", session.Phone))

	expected := session.Version
	next := *session
	next.Version = expected + 1

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("conversation: marshal session: %w", err)
	}

	ok, err := saveScript.Run(ctx, s.client, []string{sessionKey(session.Phone)},
		strconv.FormatInt(expected, 10), string(data), int(sessionTTL.Seconds())).Int()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: save session: %w", err)
	}
	if ok != 1 {
		return ErrVersionConflict
	}
	session.Version = next.Version
	return nil
}

// ForcePut overwrites the stored session unconditionally. Used only by
// reconciliation after a Redis outage.
func (s *RedisSessionStore) ForcePut(ctx context.Context, session *BookingSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("conversation: marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(session.Phone), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("conversation: force put session: %w", err)
	}
	return nil
}

// Delete removes the session for a phone.
func (s *RedisSessionStore) Delete(ctx context.Context, phone string) error {
	if err := s.client.Del(ctx, sessionKey(phone)).Err(); err != nil {
		return fmt.Errorf("conversation: delete session: %w", err)
	}
	return nil
}

// MemorySessionStore keeps sessions in process memory. It backs local
// development and serves as the degraded tier when Redis is unreachable.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*BookingSession
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*BookingSession)}
}

// Load fetches a copy of the session for a phone.
func (m *MemorySessionStore) Load(_ context.Context, phone string) (*BookingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.sessions[phone]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session := *stored
	return &session, nil
}

// Save applies the same compare-and-swap contract as the Redis store.
func (m *MemorySessionStore) Save(_ context.Context, session *BookingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stored, ok := m.sessions[session.Phone]; ok && stored.Version != session.Version {
		return ErrVersionConflict
	}
	next := *session
	next.Version = session.Version + 1
	m.sessions[session.Phone] = &next
	session.Version = next.Version
	return nil
}

// Delete removes the session for a phone.
func (m *MemorySessionStore) Delete(_ context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, phone)
	return nil
}

// Phones lists the phones with a stored session.
func (m *MemorySessionStore) Phones() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	phones := make([]string, 0, len(m.sessions))
	for p := range m.sessions {
		phones = append(phones, p)
	}
	return phones
}

// forcePutter is implemented by primaries that support unconditional writes.
type forcePutter interface {
	ForcePut(ctx context.Context, session *BookingSession) error
}

// TwoTierSessionStore serves from the primary store and falls back to memory
// when the primary errors, so a Redis blip degrades to per-instance state
// instead of dropping conversations. Reconcile pushes fallback writes back
// once the primary recovers.
type TwoTierSessionStore struct {
	primary  SessionStore
	fallback *MemorySessionStore
	logger   *logging.Logger

	mu    sync.Mutex
	dirty map[string]struct{}
}

// NewTwoTierSessionStore wraps a primary store with an in-memory fallback.
func NewTwoTierSessionStore(primary SessionStore, logger *logging.Logger) *TwoTierSessionStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &TwoTierSessionStore{
		primary:  primary,
		fallback: NewMemorySessionStore(),
		logger:   logger,
		dirty:    make(map[string]struct{}),
	}
}

// Load reads from the primary, falling back to memory on primary failure.
func (t *TwoTierSessionStore) Load(ctx context.Context, phone string) (*BookingSession, error) {
	session, err := t.primary.Load(ctx, phone)
	if err == nil || errors.Is(err, ErrSessionNotFound) {
		if err == nil {
			return session, nil
		}
		// The primary is healthy but empty; a dirty fallback entry is newer.
		if t.isDirty(phone) {
			return t.fallback.Load(ctx, phone)
		}
		return nil, err
	}

	t.logger.Warn("primary session store unavailable, using fallback", "error", err, "phone", phone)
	return t.fallback.Load(ctx, phone)
}

// Save writes to the primary; on infrastructure failure the session is kept
// in the fallback and marked for reconciliation. Version conflicts are the
// caller's to handle and never trigger the fallback.
func (t *TwoTierSessionStore) Save(ctx context.Context, session *BookingSession) error {
	err := t.primary.Save(ctx, session)
	if err == nil {
		t.clearDirty(session.Phone)
		return nil
	}
	if errors.Is(err, ErrVersionConflict) {
		return err
	}

	t.logger.Warn("primary session store unavailable, saving to fallback", "error", err, "phone", session.Phone)
	if err := t.fallback.Save(ctx, session); err != nil {
		return err
	}
	t.markDirty(session.Phone)
	return nil
}

// Delete removes the session from both tiers.
func (t *TwoTierSessionStore) Delete(ctx context.Context, phone string) error {
	if err := t.fallback.Delete(ctx, phone); err != nil {
		return err
	}
	t.clearDirty(phone)
	return t.primary.Delete(ctx, phone)
}

// Reconcile pushes dirty fallback sessions back to the primary. Safe to run
// on a timer; failures leave entries dirty for the next pass.
func (t *TwoTierSessionStore) Reconcile(ctx context.Context) {
	t.mu.Lock()
	phones := make([]string, 0, len(t.dirty))
	for p := range t.dirty {
		phones = append(phones, p)
	}
	t.mu.Unlock()

	for _, phone := range phones {
		session, err := t.fallback.Load(ctx, phone)
		if err != nil {
			t.clearDirty(phone)
			continue
		}
		var putErr error
		if fp, ok := t.primary.(forcePutter); ok {
			putErr = fp.ForcePut(ctx, session)
		} else {
			putErr = t.primary.Save(ctx, session)
		}
		if putErr != nil {
			t.logger.Warn("session reconcile failed", "error", putErr, "phone", phone)
			continue
		}
		t.clearDirty(phone)
		t.logger.Info("session reconciled to primary store", "phone", phone)
	}
}

func (t *TwoTierSessionStore) isDirty(phone string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.dirty[phone]
	return ok
}

func (t *TwoTierSessionStore) markDirty(phone string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dirty[phone] = struct{}{}
}

func (t *TwoTierSessionStore) clearDirty(phone string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.dirty, phone)
}
