package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lumina-estetica/citabot/internal/clinic"
	"github.com/lumina-estetica/citabot/internal/observability/metrics"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

// ClinicConfigSource supplies the clinic rules for a turn.
type ClinicConfigSource interface {
	Get(ctx context.Context) (*clinic.Config, error)
}

// Engine implements Service: it loads the session, runs the state machine,
// and writes the session back with optimistic concurrency. A version
// conflict reloads and replays the turn once, so two racing messages for
// the same phone serialize instead of clobbering each other.
type Engine struct {
	sessions    SessionStore
	machine     *Machine
	clinicCfg   ClinicConfigSource
	transcripts *TranscriptStore
	metrics     *metrics.ConversationMetrics
	logger      *logging.Logger
	now         func() time.Time

	// locks serializes turns per phone within this process; cross-instance
	// ordering comes from the queue's per-phone grouping plus the session
	// version check.
	locks sync.Map
}

// NewEngine wires the conversation engine. transcripts and m may be nil.
func NewEngine(sessions SessionStore, machine *Machine, clinicCfg ClinicConfigSource, transcripts *TranscriptStore, m *metrics.ConversationMetrics, logger *logging.Logger) *Engine {
	if sessions == nil {
		panic("conversation: session store required")
	}
	if machine == nil {
		panic("conversation: state machine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		sessions:    sessions,
		machine:     machine,
		clinicCfg:   clinicCfg,
		transcripts: transcripts,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// ProcessMessage handles one inbound turn for a phone.
func (e *Engine) ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error) {
	phone := strings.TrimSpace(req.Phone)
	text := strings.TrimSpace(req.Text)
	if phone == "" {
		return nil, errors.New("conversation: phone is required")
	}
	if text == "" {
		return nil, errors.New("conversation: text is required")
	}
	channel := req.Channel
	if channel == "" {
		channel = "webchat"
	}
	logger := e.logger.WithPhone(phone)

	mu := e.lockFor(phone)
	mu.Lock()
	defer mu.Unlock()

	cfg := e.loadClinicConfig(ctx, logger)

	var (
		session  *BookingSession
		reply    string
		prevStep Step
	)
	for attempt := 0; ; attempt++ {
		var err error
		session, err = e.loadOrCreate(ctx, phone)
		if err != nil {
			return nil, err
		}

		prevStep = session.Step
		reply, err = e.machine.HandleTurn(ctx, cfg, session, text)
		if errors.Is(err, errStartOver) {
			// Terminal session; open a fresh one carrying the version
			// counter forward so the save still compare-and-swaps.
			fresh := NewBookingSession(phone, e.now())
			fresh.Version = session.Version
			session = fresh
			prevStep = session.Step
			reply, err = e.machine.HandleTurn(ctx, cfg, session, text)
		}
		if err != nil {
			return nil, fmt.Errorf("conversation: handle turn: %w", err)
		}

		err = e.sessions.Save(ctx, session)
		if err == nil {
			break
		}
		if errors.Is(err, ErrVersionConflict) && attempt == 0 {
			e.metrics.ObserveVersionConflict()
			logger.Warn("session version conflict, replaying turn")
			continue
		}
		return nil, fmt.Errorf("conversation: save session: %w", err)
	}

	e.transcripts.record(ctx, session.ID, phone, channel, text, reply)
	// Terminal side effects fire on the transition only; a duplicate "si"
	// replaying the confirmation of an already committed session must not
	// count a second booking or re-close the transcript.
	if session.Step != prevStep {
		switch session.Step {
		case StepCommitted:
			e.metrics.ObserveBookingCommitted()
			if err := e.transcripts.CloseConversation(ctx, session.ID, string(StepCommitted)); err != nil {
				logger.Warn("failed to close transcript", "error", err)
			}
		case StepCancelled:
			e.metrics.ObserveCancellation()
			if err := e.transcripts.CloseConversation(ctx, session.ID, string(StepCancelled)); err != nil {
				logger.Warn("failed to close transcript", "error", err)
			}
		}
	}
	e.metrics.ObserveTurn(string(session.Step), channel)

	return &Response{SessionID: session.ID, Reply: reply, Step: session.Step}, nil
}

func (e *Engine) loadOrCreate(ctx context.Context, phone string) (*BookingSession, error) {
	session, err := e.sessions.Load(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return NewBookingSession(phone, e.now()), nil
		}
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}
	return session, nil
}

func (e *Engine) loadClinicConfig(ctx context.Context, logger *logging.Logger) *clinic.Config {
	if e.clinicCfg == nil {
		return clinic.DefaultConfig()
	}
	cfg, err := e.clinicCfg.Get(ctx)
	if err != nil || cfg == nil {
		logger.Warn("failed to load clinic config, using defaults", "error", err)
		return clinic.DefaultConfig()
	}
	return cfg
}

func (e *Engine) lockFor(phone string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(phone, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
