// MODUL: sessions
// ZWECK: Verwaltung der Interpreter-Sessions des Servers
// INPUT: Modellpfad, Interpreter-Optionen, Session-ID
// OUTPUT: session mit eigenem Mutex
// NEBENEFFEKTE: Erzeugt und schliesst native Interpreter
// ABHAENGIGKEITEN: google/uuid, go-ordered-map, interpreter
// HINWEISE: Ein Interpreter ist nicht thread-sicher, jede Session serialisiert
//           ihre Aufrufe ueber session.mu

package server

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tflite-micro/tflm-go/interpreter"
)

// session ist ein Interpreter mit Metadaten. mu schuetzt alle Felder ausser
// id, model und created.
type session struct {
	mu sync.Mutex

	id      string
	model   string
	created time.Time

	interp      *interpreter.Interpreter
	allocated   bool
	invocations int
}

// sessions haelt alle offenen Sessions in Erstellungsreihenfolge.
type sessions struct {
	mu    sync.Mutex
	limit int
	byID  *orderedmap.OrderedMap[string, *session]

	// reserved zaehlt Sessions im Aufbau
	reserved int
}

func newSessions(limit int) *sessions {
	return &sessions{
		limit: limit,
		byID:  orderedmap.New[string, *session](),
	}
}

// reserve belegt einen Platz. release muss aufgerufen werden, add uebernimmt ihn.
func (s *sessions) reserve() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit > 0 && s.byID.Len()+s.reserved >= s.limit {
		return fmt.Errorf("%w: limit of %d reached", ErrTooManyInterpreters, s.limit)
	}
	s.reserved++
	return nil
}

func (s *sessions) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved--
}

// add registriert einen reservierten Interpreter unter einer neuen ID
func (s *sessions) add(model string, interp *interpreter.Interpreter) *session {
	sess := &session{
		id:      uuid.NewString(),
		model:   model,
		created: time.Now(),
		interp:  interp,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved--
	s.byID.Set(sess.id, sess)

	slog.Debug("session created", "id", sess.id, "model", model)
	return sess
}

func (s *sessions) get(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	sess, ok := s.byID.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *sessions) list() []*session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*session, 0, s.byID.Len())
	for pair := s.byID.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// remove entfernt die Session und schliesst ihren Interpreter
func (s *sessions) remove(id string) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.byID.Delete(id)
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()

	slog.Debug("session closed", "id", id)
	return sess.interp.Close()
}

// closeAll schliesst alle Sessions, z.B. beim Herunterfahren
func (s *sessions) closeAll() {
	for _, sess := range s.list() {
		if err := s.remove(sess.id); err != nil {
			slog.Warn("closing interpreter failed", "id", sess.id, "error", err)
		}
	}
}

func (s *sessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID.Len()
}

// info liest die Metadaten unter dem Session-Lock. Der Aufrufer haelt sess.mu.
func (sess *session) info() (SessionResponse, error) {
	inputs, err := sess.interp.InputIndices()
	if err != nil {
		return SessionResponse{}, err
	}
	outputs, err := sess.interp.OutputIndices()
	if err != nil {
		return SessionResponse{}, err
	}

	return SessionResponse{
		ID:          sess.id,
		Model:       sess.model,
		Backend:     sess.interp.Backend(),
		ArenaSize:   sess.interp.ArenaSize(),
		Inputs:      inputs,
		Outputs:     outputs,
		NumTensors:  sess.interp.NumTensors(),
		Allocated:   sess.allocated,
		Invocations: sess.invocations,
		CreatedAt:   sess.created,
	}, nil
}
