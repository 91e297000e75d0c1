package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"nhooyr.io/websocket"

	"github.com/undeconstructed/ludoist/comms"
)

// WsJSONMessage is the envelope on the websocket transport. Frames are
// already delimited there, so the head travels as JSON instead of a
// length-prefixed line.
type WsJSONMessage struct {
	Head string          `json:"head"`
	Data json.RawMessage `json:"data"`
}

// runWebGateway serves the REST lobby and the websocket flavour of the
// game protocol on one listener.
func runWebGateway(ctx context.Context, server *server, addr string) error {
	log := log.With().Str("gw", "web").Logger()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	log.Info().Msgf("web listening on http://%v", ln.Addr())

	rh := restHandler{
		server: server,
		log:    log,
	}

	ch := commsHandler{
		server: server,
		log:    log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	a := r.Group("/api")
	a.GET("/games", rh.getGames)
	a.POST("/games", rh.makeGame)
	a.GET("/games/:id", rh.getGame)
	r.GET("/ws", ch.serveWS)

	s := &http.Server{
		Handler:     r,
		ReadTimeout: time.Second * 10,
	}
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	err = s.Serve(ln)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

type restHandler struct {
	server *server
	log    zerolog.Logger
}

func (rh *restHandler) getGames(c *gin.Context) {
	list := rh.server.ListMatches()
	c.JSON(http.StatusOK, list)
}

func (rh *restHandler) makeGame(c *gin.Context) {
	var req CreateMatchInput
	if err := c.BindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "bad body: %v", err)
		return
	}

	info, err := rh.server.CreateMatch(req)
	if err != nil {
		rh.log.Error().Err(err).Msg("create match error")
		c.String(http.StatusInternalServerError, "error: %v", err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (rh *restHandler) getGame(c *gin.Context) {
	info := rh.server.QueryMatch(c.Param("id"))
	if info == nil {
		c.String(http.StatusNotFound, "no such match")
		return
	}
	c.JSON(http.StatusOK, info)
}

type commsHandler struct {
	server *server
	log    zerolog.Logger
}

func (ch commsHandler) serveWS(c *gin.Context) {
	log := ch.log.With().Str("client", c.Request.RemoteAddr).Logger()

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		Subprotocols: []string{"comms"},
	})
	if err != nil {
		log.Info().Err(err).Msg("ws accept error")
		return
	}

	if conn.Subprotocol() != "comms" {
		conn.Close(websocket.StatusPolicyViolation, "client must speak the comms subprotocol")
		return
	}

	w := &wsWire{
		ctx:  c.Request.Context(),
		conn: conn,
	}
	serveConn(ch.server, w, log)
}

// wsWire carries the comms envelope over websocket text messages.
type wsWire struct {
	ctx  context.Context
	conn *websocket.Conn
}

func (w *wsWire) read() (comms.Message, error) {
	_, data, err := w.conn.Read(w.ctx)
	if err != nil {
		return comms.Message{}, err
	}

	var jmsg WsJSONMessage
	if err := json.Unmarshal(data, &jmsg); err != nil {
		return comms.Message{}, comms.ErrBadFrame
	}

	return comms.Message{Head: comms.Head(jmsg.Head), Data: jmsg.Data}, nil
}

func (w *wsWire) send(msg comms.Message) error {
	jmsg := WsJSONMessage{
		Head: string(msg.Head),
		Data: msg.Data,
	}
	data, err := json.Marshal(jmsg)
	if err != nil {
		return err
	}
	return w.conn.Write(w.ctx, websocket.MessageText, data)
}

func (w *wsWire) close() {
	w.conn.Close(websocket.StatusNormalClosure, "")
}
