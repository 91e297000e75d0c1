package comms

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxFrameSize is the largest payload a peer may send. Anything bigger is a
// protocol violation and the connection should be dropped.
const MaxFrameSize = 64 * 1024

var (
	// ErrFrameTooBig means a peer declared a frame over MaxFrameSize.
	ErrFrameTooBig = errors.New("frame too big")
	// ErrBadFrame means a frame could not be parsed at all.
	ErrBadFrame = errors.New("bad frame")
)

// Head is the routing part of a message, fields separated by colons.
type Head string

// Fields splits the head.
func (h Head) Fields() []string {
	return strings.Split(string(h), ":")
}

// Message is one unit on the wire: a head and a JSON body.
type Message struct {
	Head Head
	Data json.RawMessage
}

// Type is the first field of the head.
func (m Message) Type() string {
	return m.Head.Fields()[0]
}

// Encode makes a message from a head and any JSON-able body.
func Encode(head string, data interface{}) (Message, error) {
	jdata, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Head: Head(head), Data: jdata}, nil
}

// Decode unmarshals a message body into out.
func Decode(m Message, out interface{}) error {
	return json.Unmarshal(m.Data, out)
}

// Encoder writes length-prefixed frames to a stream. The frame payload is
// the head, a newline, then the JSON body.
type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode marshals and sends in one step.
func (e *Encoder) Encode(head string, data interface{}) error {
	msg, err := Encode(head, data)
	if err != nil {
		return err
	}
	return e.Send(msg)
}

// Send writes a preformatted message as one frame.
func (e *Encoder) Send(msg Message) error {
	payload := make([]byte, 0, len(msg.Head)+1+len(msg.Data))
	payload = append(payload, msg.Head...)
	payload = append(payload, '\n')
	payload = append(payload, msg.Data...)

	if len(payload) > MaxFrameSize {
		return ErrFrameTooBig
	}

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(payload)))
	if _, err := e.w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := e.w.Write(payload)
	return err
}

// Decoder reads length-prefixed frames from a stream, reassembling partial
// reads until a whole frame is in.
type Decoder struct {
	r io.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Decode blocks until one whole message arrives.
func (d *Decoder) Decode() (Message, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(d.r, prefix[:]); err != nil {
		return Message{}, err
	}

	n := binary.BigEndian.Uint32(prefix[:])
	if n == 0 {
		return Message{}, ErrBadFrame
	}
	if n > MaxFrameSize {
		return Message{}, ErrFrameTooBig
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		if err == io.EOF {
			// a prefix without its payload is a truncated frame
			err = io.ErrUnexpectedEOF
		}
		return Message{}, err
	}

	i := bytes.IndexByte(payload, '\n')
	if i < 1 {
		return Message{}, ErrBadFrame
	}

	return Message{Head: Head(payload[:i]), Data: payload[i+1:]}, nil
}

// CommsError carries a game error code over the wire.
type CommsError struct {
	Code string `json:"code"`
	Msg  string `json:"message"`
}

func (e *CommsError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// coded is anything with a stable error code, e.g. ludo.GameError.
type coded interface {
	ErrorCode() string
}

// WrapError makes any error sendable. Coded errors keep their code.
func WrapError(err error) *CommsError {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*CommsError); ok {
		return ce
	}
	if c, ok := err.(coded); ok {
		return &CommsError{Code: c.ErrorCode(), Msg: err.Error()}
	}
	return &CommsError{Code: "ERROR", Msg: err.Error()}
}
