package statusservice

import (
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// WsConn is interface for websocket handling in status service
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// WSConnKeeper tracks subscriber connections by session id.
// A client sends the session id it wants to follow as a text message.
type WSConnKeeper struct {
	sessionConnMap map[string]map[WsConn]struct{}
	connSessionMap map[WsConn]string
	mapLock        *sync.Mutex
	timeOut        time.Duration
}

// NewWSConnKeeper creates manager
func NewWSConnKeeper() *WSConnKeeper {
	res := &WSConnKeeper{}
	res.sessionConnMap = make(map[string]map[WsConn]struct{})
	res.connSessionMap = make(map[WsConn]string)
	res.mapLock = &sync.Mutex{}
	res.timeOut = time.Minute * 30 // drop idle subscribers after the limit
	return res
}

// HandleConnection loops while connection is active, registering
// the last session id the client asked for
func (kp *WSConnKeeper) HandleConnection(conn WsConn) error {
	defer kp.deleteConnection(conn)
	defer conn.Close()
	readCh := make(chan string)
	go func() {
		defer close(readCh)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				goapp.Log.Debug().Err(err).Msg("ws read ended")
				return
			}
			msg := strings.TrimSpace(string(message))
			if msg != "" {
				readCh <- msg
			}
		}
	}()

	ta := time.After(kp.timeOut)
loop:
	for {
		select {
		case <-ta:
			goapp.Log.Debug().Msg("conn timeouted")
			break loop
		case msg, ok := <-readCh:
			if !ok {
				break loop
			}
			goapp.Log.Info().Str("session", goapp.Sanitize(msg)).Msg("ws subscribe")
			kp.saveConnection(conn, msg)
			ta = time.After(kp.timeOut)
		}
	}
	return nil
}

func (kp *WSConnKeeper) deleteConnection(conn WsConn) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	kp.deleteConnectionNoSync(conn)
}

func (kp *WSConnKeeper) deleteConnectionNoSync(conn WsConn) {
	id, found := kp.connSessionMap[conn]
	if found {
		conns, found := kp.sessionConnMap[id]
		if found {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(kp.sessionConnMap, id)
			}
		}
	}
	delete(kp.connSessionMap, conn)
	goapp.Log.Debug().Int("active", len(kp.connSessionMap)).Msg("ws connection dropped")
}

func (kp *WSConnKeeper) saveConnection(conn WsConn, sessionID string) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	kp.deleteConnectionNoSync(conn)
	kp.connSessionMap[conn] = sessionID
	conns, found := kp.sessionConnMap[sessionID]
	if !found {
		conns = map[WsConn]struct{}{}
		kp.sessionConnMap[sessionID] = conns
	}
	conns[conn] = struct{}{}
	goapp.Log.Debug().Int("active", len(kp.connSessionMap)).Msg("ws connection saved")
}

// GetConnections returns saved connections of a session
func (kp *WSConnKeeper) GetConnections(sessionID string) ([]WsConn, bool) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	cm, found := kp.sessionConnMap[sessionID]
	if found {
		res := []WsConn{}
		for c := range cm {
			res = append(res, c)
		}
		return res, true
	}
	return nil, false
}
