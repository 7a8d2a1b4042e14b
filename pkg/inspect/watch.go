package inspect

import (
	"net/http"
	"time"

	"github.com/vango-dev/reaxar/pkg/bridge"
	"github.com/vango-dev/reaxar/pkg/rea"
)

// Update is one websocket message sent to store watchers.
type Update struct {
	Key   string `json:"key"`
	Seq   uint64 `json:"seq"`
	Value any    `json:"value"`
}

// watchStore streams store values to a websocket client. Values are
// coalesced: a slow client receives the latest value, not every value.
func (s *Server) watchStore(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	key := entry.Key()
	sess := bridge.NewSession(s.rt,
		bridge.WithName("ws:"+key),
		bridge.WithContext(r.Context()),
	)
	defer sess.Dispose()

	changed := make(chan struct{}, 1)
	binding := bridge.AttachStream[any](sess, rea.StreamFunc[any](entry.Watch), func(any) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	// Reader: the client never sends anything meaningful; a read error
	// means the connection is gone.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var seq uint64
	for {
		select {
		case <-closed:
			return
		case <-sess.Context().Done():
			return
		case <-changed:
			seq++
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteJSON(Update{Key: key, Seq: seq, Value: binding.Value()}); err != nil {
				s.logger.Debug("websocket write failed", "key", key, "error", err)
				return
			}
		}
	}
}
