// Package session is the lock-screen state machine. It owns the active and
// password-prompt states, the attempt counter and the typed input, and
// routes input events between the animation and the password protocol.
//
// A Session is driven from a single goroutine through Tick; only ForceQuit
// may be called concurrently.
package session

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/iburimskiy/motion-screensaver/internal/config"
)

type State int

const (
	StateIdleWatch State = iota
	StateActive
	StatePasswordPrompt
	StateExit
)

func (s State) String() string {
	switch s {
	case StateIdleWatch:
		return "idle_watch"
	case StateActive:
		return "active"
	case StatePasswordPrompt:
		return "password_prompt"
	case StateExit:
		return "exit"
	}
	return "unknown"
}

// Reason explains how a session reached StateExit.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonUserInterrupted
	ReasonContinue
	ReasonQuit
	ReasonForceQuit
	ReasonLockout
)

func (r Reason) String() string {
	switch r {
	case ReasonUserInterrupted:
		return "user_interrupted"
	case ReasonContinue:
		return "continue"
	case ReasonQuit:
		return "quit"
	case ReasonForceQuit:
		return "force_quit"
	case ReasonLockout:
		return "lockout"
	}
	return "none"
}

// Result is what the owner of a session sees once it exits.
type Result struct {
	Interrupted bool
	Reason      Reason
}

// Choice is the user's answer after a correct password.
type Choice int

const (
	ChoiceContinue Choice = iota
	ChoiceQuit
)

// Engine is the animation advanced while the session is active.
type Engine interface {
	Advance(dt int)
}

// Prompter asks the continue/quit question without blocking the caller.
// Exactly one Choice is delivered on the returned channel.
type Prompter interface {
	Confirm() <-chan Choice
}

// Escalator runs the lockout policy.
type Escalator interface {
	Escalate(ctx context.Context) error
}

// Alerter is told about every failed attempt.
type Alerter interface {
	Failure(attempt int)
}

// Deps are the collaborators of a session. Only Prompter is required when a
// password is configured; the rest may be nil.
type Deps struct {
	Engine    Engine
	Prompter  Prompter
	Escalator Escalator
	Alerter   Alerter
	Now       func() time.Time
	// OnQuit is called when the user chooses to quit after unlocking.
	OnQuit func()
}

type Session struct {
	cfg  config.Config
	deps Deps

	state        State
	attempts     int
	input        []rune
	lastActivity time.Time
	result       Result

	awaiting <-chan Choice
	quit     atomic.Bool
}

func New(cfg config.Config, deps Deps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Session{cfg: cfg, deps: deps, state: StateIdleWatch}
}

// Activate moves an idle session into StateActive.
func (s *Session) Activate() {
	if s.state != StateIdleWatch {
		return
	}
	s.state = StateActive
	s.lastActivity = s.deps.Now()
	slog.Debug("session: activated")
}

// ForceQuit requests an immediate exit. It is safe to call from any
// goroutine and takes effect on the next Tick.
func (s *Session) ForceQuit() {
	s.quit.Store(true)
}

// Tick processes one frame of input and advances the animation. It reports
// whether the session has exited.
func (s *Session) Tick(ctx context.Context, events []Event) bool {
	if s.state == StateExit {
		return true
	}
	if s.quit.Load() {
		s.exit(Result{Reason: ReasonForceQuit})
		return true
	}

	switch s.state {
	case StateActive:
		s.tickActive(events)
	case StatePasswordPrompt:
		s.tickPrompt(ctx, events)
	}

	if s.state == StateActive && s.deps.Engine != nil {
		s.deps.Engine.Advance(1)
	}
	return s.state == StateExit
}

func (s *Session) tickActive(events []Event) {
	for _, ev := range events {
		s.lastActivity = s.deps.Now()
		if s.cfg.PasswordRequired() {
			s.state = StatePasswordPrompt
			s.attempts = 0
			s.input = s.input[:0]
			slog.Debug("session: password prompt", "trigger", ev.Kind)
		} else {
			s.exit(Result{Interrupted: true, Reason: ReasonUserInterrupted})
		}
		// the rest of the batch belongs to the transition
		return
	}
}

func (s *Session) tickPrompt(ctx context.Context, events []Event) {
	if s.awaiting != nil {
		s.pollChoice()
		return
	}

	for _, ev := range events {
		s.lastActivity = s.deps.Now()
		switch ev.Kind {
		case KeyEnter:
			s.submit(ctx)
			if s.state != StatePasswordPrompt || s.awaiting != nil {
				return
			}
		case KeyBackspace:
			if n := len(s.input); n > 0 {
				s.input = s.input[:n-1]
			}
		case KeyEscape:
			s.input = s.input[:0]
		case KeyRune:
			s.input = append(s.input, ev.Rune)
		}
	}
}

func (s *Session) submit(ctx context.Context) {
	typed := string(s.input)
	s.input = s.input[:0]

	if Matches(typed, s.cfg.PasswordHash) {
		slog.Info("session: password accepted")
		if s.deps.Prompter == nil {
			s.exit(Result{Reason: ReasonContinue})
			return
		}
		s.awaiting = s.deps.Prompter.Confirm()
		s.pollChoice()
		return
	}

	s.attempts++
	slog.Warn("session: password rejected", "attempt", s.attempts, "max", config.MaxPasswordAttempts)
	if s.deps.Alerter != nil {
		s.deps.Alerter.Failure(s.attempts)
	}
	if s.attempts < config.MaxPasswordAttempts {
		return
	}

	if s.deps.Escalator != nil {
		if err := s.deps.Escalator.Escalate(ctx); err != nil {
			slog.Error("session: escalation failed", "error", err)
		}
	}
	s.exit(Result{Reason: ReasonLockout})
}

func (s *Session) pollChoice() {
	select {
	case choice := <-s.awaiting:
		s.awaiting = nil
		s.attempts = 0
		if choice == ChoiceQuit {
			if s.deps.OnQuit != nil {
				s.deps.OnQuit()
			}
			s.exit(Result{Interrupted: true, Reason: ReasonQuit})
			return
		}
		s.exit(Result{Reason: ReasonContinue})
	default:
	}
}

func (s *Session) exit(r Result) {
	s.state = StateExit
	s.result = r
	s.input = s.input[:0]
	slog.Info("session: exit", "reason", r.Reason, "interrupted", r.Interrupted)
}

func (s *Session) State() State { return s.state }

// Attempts is the number of failed submissions in the current prompt.
func (s *Session) Attempts() int { return s.attempts }

// InputLen is the number of typed characters. The text itself is never exposed.
func (s *Session) InputLen() int { return len(s.input) }

// AwaitingChoice reports whether the continue/quit question is open.
func (s *Session) AwaitingChoice() bool { return s.awaiting != nil }

func (s *Session) LastActivity() time.Time { return s.lastActivity }

// Result is meaningful once the session is in StateExit.
func (s *Session) Result() Result { return s.result }

// Hash returns the lowercase hex SHA-256 digest of password.
func Hash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Matches compares password against a stored hex digest in constant time.
func Matches(password, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(Hash(password)), []byte(strings.ToLower(hash))) == 1
}
