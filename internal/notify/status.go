package notify

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/dori/taskdeck/internal/cache"
)

// Level of a status message
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// Message is one transient status line
type Message struct {
	Text  string
	Level Level
	At    time.Time
}

// Status collects transient user-facing messages for the status line.
// Repeats of the same text within the quiet period are dropped so a
// flapping subscription does not flood the screen.
type Status struct {
	quiet  time.Duration
	recent *cache.Map[string, struct{}]
	logger *log.Logger
	now    func() time.Time

	mu     sync.Mutex
	sink   func(Message)
	latest Message
}

// NewStatus creates a status sink. logger receives every message.
func NewStatus(quiet time.Duration, logger *log.Logger) *Status {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Status{
		quiet:  quiet,
		logger: logger,
		now:    time.Now,
	}
	s.recent = cache.New[string, struct{}](cache.Options{
		ConcurrencySafe: true,
		Now:             func() time.Time { return s.now() },
	})
	return s
}

// SetSink routes messages to fn, typically a tea.Program's Send
func (s *Status) SetSink(fn func(Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = fn
}

// Info posts an informational message
func (s *Status) Info(msg string) {
	s.post(msg, LevelInfo)
}

// Error posts an error message
func (s *Status) Error(msg string) {
	s.post(msg, LevelError)
}

// Latest returns the most recent message
func (s *Status) Latest() Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Status) post(text string, level Level) {
	if s.quiet > 0 {
		if _, seen := s.recent.Get(text); seen {
			return
		}
		s.recent.PurgeExpired()
		s.recent.Set(text, struct{}{}, s.quiet)
	}

	if level == LevelError {
		s.logger.Printf("error: %s", text)
	} else {
		s.logger.Printf("info: %s", text)
	}

	m := Message{Text: text, Level: level, At: s.now()}
	s.mu.Lock()
	s.latest = m
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		sink(m)
	}
}
