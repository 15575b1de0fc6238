package net

import (
	"bytes"
	"strings"
	"sync"

	getty "github.com/AlexStocks/getty/transport"
	log "github.com/AlexStocks/log4go"
	"github.com/google/uuid"
	jerrors "github.com/juju/errors"

	"github.com/xraengine/xra-server/server/conf"
	"github.com/xraengine/xra-server/server/dispatcher"
)

var errTooManySessions = jerrors.New("too many sessions")

// linePkgHandler frames the wire protocol: one newline-terminated
// command in, one response blob out.
type linePkgHandler struct{}

var lineProtocolHandler = &linePkgHandler{}

func (h *linePkgHandler) Read(ss getty.Session, data []byte) (interface{}, int, error) {
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		// incomplete command, wait for more bytes
		return nil, 0, nil
	}
	line := strings.TrimRight(string(data[:idx]), "\r")
	return line, idx + 1, nil
}

func (h *linePkgHandler) Write(ss getty.Session, pkg interface{}) ([]byte, error) {
	response, ok := pkg.(string)
	if !ok {
		return nil, jerrors.Errorf("illegal response package %v", pkg)
	}
	return []byte(response), nil
}

// sessionState is the per-connection bookkeeping.
type sessionState struct {
	id string
}

// RAMessageHandler dispatches each received command line through the
// shared query dispatcher and writes the result text back.
type RAMessageHandler struct {
	rwlock     sync.RWMutex
	cfg        *conf.Cfg
	dispatcher *dispatcher.QueryDispatcher
	sessionMap map[getty.Session]*sessionState
}

// NewRAMessageHandler builds the event listener shared by all
// sessions.
func NewRAMessageHandler(cfg *conf.Cfg, d *dispatcher.QueryDispatcher) *RAMessageHandler {
	return &RAMessageHandler{
		cfg:        cfg,
		dispatcher: d,
		sessionMap: make(map[getty.Session]*sessionState),
	}
}

func (m *RAMessageHandler) OnOpen(session getty.Session) error {
	m.rwlock.Lock()
	defer m.rwlock.Unlock()
	if len(m.sessionMap) >= m.cfg.SessionNumber {
		return errTooManySessions
	}
	state := &sessionState{id: uuid.NewString()}
	m.sessionMap[session] = state
	log.Info("session %s opened as %s", session.Stat(), state.id)
	return nil
}

func (m *RAMessageHandler) OnClose(session getty.Session) {
	m.rwlock.Lock()
	defer m.rwlock.Unlock()
	delete(m.sessionMap, session)
	log.Info("session %s closed", session.Stat())
}

func (m *RAMessageHandler) OnError(session getty.Session, err error) {
	m.rwlock.Lock()
	defer m.rwlock.Unlock()
	delete(m.sessionMap, session)
	log.Warn("session %s failed: %v", session.Stat(), err)
}

func (m *RAMessageHandler) OnCron(session getty.Session) {
}

func (m *RAMessageHandler) OnMessage(session getty.Session, pkg interface{}) {
	line, ok := pkg.(string)
	if !ok {
		log.Error("invalid package type %T", pkg)
		return
	}

	var out bytes.Buffer
	if err := m.dispatcher.Execute(line, &out); err != nil {
		out.WriteString("ERROR: " + err.Error() + "\n")
	} else {
		out.WriteString("OK\n")
	}
	if err := session.WriteBytes(out.Bytes()); err != nil {
		log.Warn("writing response to %s: %v", session.Stat(), err)
	}
}
