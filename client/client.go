package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	rl "github.com/chzyer/readline"

	"github.com/undeconstructed/ludoist/comms"
	"github.com/undeconstructed/ludoist/ludo"
)

const (
	RED    = "\033[31m"
	GREEN  = "\033[32m"
	YELLOW = "\033[33m"
	BLUE   = "\033[34m"
	RESET  = "\033[0m"
)

func col(s ludo.Colour) string {
	switch s {
	case ludo.Red:
		return RED
	case ludo.Green:
		return GREEN
	case ludo.Yellow:
		return YELLOW
	case ludo.Blue:
		return BLUE
	default:
		return RESET
	}
}

// Client is a line-oriented debug client for the framed protocol. It is a
// developer tool, not the game UI.
type Client interface {
	Run() error
}

func NewClient(name, server string) Client {
	return &client{
		name:   name,
		server: server,
	}
}

type client struct {
	name   string
	server string

	mu  sync.Mutex
	enc *comms.Encoder

	colour ludo.Colour
	token  string
}

func (c *client) Run() error {
	conn, err := net.Dial("tcp", c.server)
	if err != nil {
		return err
	}
	defer conn.Close()

	dec := comms.NewDecoder(conn)
	c.enc = comms.NewEncoder(conn)

	// the server speaks first
	hello, err := dec.Decode()
	if err != nil {
		return err
	}
	var h comms.Hello
	if err := comms.Decode(hello, &h); err != nil {
		return err
	}

	go c.keepAlive(time.Duration(h.PingInterval) * time.Second)

	l, err := rl.NewEx(&rl.Config{
		Prompt: "ludo> ",
		AutoComplete: rl.NewPrefixCompleter(
			rl.PcItem("list"),
			rl.PcItem("create"),
			rl.PcItem("join"),
			rl.PcItem("rejoin"),
			rl.PcItem("start"),
			rl.PcItem("roll"),
			rl.PcItem("move"),
			rl.PcItem("quit"),
		),
	})
	if err != nil {
		return err
	}
	defer l.Close()

	go func() {
		defer l.Close()
		for {
			msg, err := dec.Decode()
			if err != nil {
				if err != io.EOF {
					fmt.Fprintf(l.Stderr(), "read error: %v\n", err)
				}
				return
			}
			c.show(l.Stderr(), msg)
		}
	}()

	for {
		line, err := l.Readline()
		if err != nil {
			// Ctrl-D, Ctrl-C, or connection gone
			return nil
		}
		if err := c.command(l.Stderr(), strings.Fields(line)); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Fprintf(l.Stderr(), "error: %v\n", err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

// send serializes writes, the REPL and the keepalive loop share the conn.
func (c *client) send(head string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enc.Encode(head, data)
}

func (c *client) command(out io.Writer, args []string) error {
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "quit":
		return errQuit
	case "list":
		return c.send("list", nil)
	case "create":
		name := strings.Join(args[1:], " ")
		return c.send("create", map[string]interface{}{"name": name, "autoStart": true})
	case "join":
		if len(args) < 2 {
			return fmt.Errorf("usage: join <game> [colour]")
		}
		req := comms.JoinRequest{Game: args[1], Name: c.name}
		if len(args) > 2 {
			req.Colour = args[2]
		}
		return c.send("join", req)
	case "rejoin":
		if len(args) < 2 {
			return fmt.Errorf("usage: rejoin <game> [token]")
		}
		token := c.token
		if len(args) > 2 {
			token = args[2]
		}
		return c.send("join", comms.JoinRequest{Game: args[1], Name: c.name, Token: token})
	case "start":
		return c.send("start", nil)
	case "roll":
		return c.send("roll", nil)
	case "move":
		if len(args) < 2 {
			return fmt.Errorf("usage: move <piece>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad piece: %s", args[1])
		}
		return c.send("move", comms.MoveRequest{Piece: n})
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// pingPeriod is the heartbeat interval: a little ahead of the server's
// deadline, but never zero or negative whatever the server advertises.
func pingPeriod(interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	p := interval - 5*time.Second
	if p < time.Second {
		p = time.Second
	}
	return p
}

func (c *client) keepAlive(interval time.Duration) {
	t := time.NewTicker(pingPeriod(interval))
	defer t.Stop()
	for range t.C {
		if err := c.send("ping", comms.Ping{Time: time.Now().UnixNano() / int64(time.Millisecond)}); err != nil {
			return
		}
	}
}

func (c *client) show(out io.Writer, msg comms.Message) {
	switch msg.Type() {
	case "pong":
		// quiet
	case "games":
		var list []map[string]interface{}
		_ = comms.Decode(msg, &list)
		for _, g := range list {
			fmt.Fprintf(out, "game %v: %v (%v/%v, %v)\n", g["id"], g["name"], g["players"], g["seats"], g["phase"])
		}
	case "created":
		var info map[string]interface{}
		_ = comms.Decode(msg, &info)
		fmt.Fprintf(out, "created game %v\n", info["id"])
	case "joined":
		var res comms.JoinResponse
		_ = comms.Decode(msg, &res)
		if res.Err != nil {
			fmt.Fprintf(out, "join refused: %v\n", res.Err)
			return
		}
		c.colour = ludo.Colour(res.Colour)
		c.token = res.Token
		fmt.Fprintf(out, "joined %s as %s%s%s, token %s\n", res.Game, col(c.colour), res.Colour, RESET, res.Token)
		var snap ludo.Snapshot
		if err := json.Unmarshal(res.Snapshot, &snap); err == nil {
			c.showSnapshot(out, snap)
		}
	case "dice":
		var d ludo.DiceResult
		_ = comms.Decode(msg, &d)
		fmt.Fprintf(out, "%s%s%s rolls %d\n", col(d.Colour), d.Colour, RESET, d.Value)
	case "update":
		var delta ludo.Delta
		_ = comms.Decode(msg, &delta)
		c.showDelta(out, delta)
	case "reject":
		var ce comms.CommsError
		_ = comms.Decode(msg, &ce)
		fmt.Fprintf(out, "rejected: %v\n", ce.Error())
	case "ended":
		var end ludo.MatchEnded
		_ = comms.Decode(msg, &end)
		fmt.Fprintf(out, "match over, winners in order: %v\n", end.Winners)
	case "kicked":
		var reason string
		_ = comms.Decode(msg, &reason)
		fmt.Fprintf(out, "kicked: %s\n", reason)
	default:
		fmt.Fprintf(out, "%s %s\n", msg.Head, string(msg.Data))
	}
}

func (c *client) showSnapshot(out io.Writer, snap ludo.Snapshot) {
	fmt.Fprintf(out, "phase %s, turn %s\n", snap.Phase, snap.Turn)
	for _, p := range snap.Players {
		fmt.Fprintf(out, "  %s%s%s (%s): %v\n", col(p.Colour), p.Colour, RESET, p.Name, p.Pieces)
	}
}

func (c *client) showDelta(out io.Writer, delta ludo.Delta) {
	for _, n := range delta.News {
		if n.Who != "" {
			fmt.Fprintf(out, "* %s %s\n", n.Who, n.What)
		} else {
			fmt.Fprintf(out, "* %s\n", n.What)
		}
	}
	for _, p := range delta.Moved {
		fmt.Fprintf(out, "  %s%s%s piece %d -> %v\n", col(p.Colour), p.Colour, RESET, p.Index, p.Pos)
	}
	for _, p := range delta.Captured {
		fmt.Fprintf(out, "  %s%s%s piece %d captured, back to yard\n", col(p.Colour), p.Colour, RESET, p.Index)
	}
	if delta.Turn != "" {
		marker := ""
		if delta.Turn == c.colour {
			marker = " (you)"
		}
		fmt.Fprintf(out, "turn: %s%s%s%s\n", col(delta.Turn), delta.Turn, RESET, marker)
	}
}
