package dialogue

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsError is sent instead of a TurnResponse when a turn is rejected.
type wsError struct {
	Error string `json:"error"`
}

// handleWebSocket runs a dialogue over one connection. Each inbound message
// is a TurnRequest; the connection keeps the scene, state and offered
// options, so clients never send state.
func handleWebSocket(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			svc.logger.Warn("websocket upgrade", zap.Error(err))
			return
		}
		defer conn.Close()

		var sess Session
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					svc.logger.Warn("websocket read", zap.Error(err))
				}
				return
			}

			var req TurnRequest
			if err := json.Unmarshal(msg, &req); err != nil {
				sendWS(svc, conn, wsError{Error: "invalid message format"})
				continue
			}
			// The connection owns the state.
			req.State = nil
			req.SessionID = ""

			resp, err := svc.Continue(r.Context(), &sess, req)
			if err != nil {
				sendWS(svc, conn, wsError{Error: err.Error()})
				if errors.Is(err, ErrTurnLimit) {
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "turn limit reached"))
					return
				}
				continue
			}
			sendWS(svc, conn, resp)
		}
	}
}

func sendWS(svc *Service, conn *websocket.Conn, v interface{}) {
	if err := conn.WriteJSON(v); err != nil {
		svc.logger.Warn("websocket write", zap.Error(err))
	}
}
