package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/park285/cheese-duel/internal/domain"
)

// ProtocolVersion is announced in the hello frame.
const ProtocolVersion = 1

// Kind names the single top-level message carried by a frame.
type Kind string

const (
	KindMove     Kind = "move"
	KindSnapshot Kind = "fen"
	KindHello    Kind = "hello"
	KindBye      Kind = "bye"
)

// Reasons carried by a bye frame.
const (
	ByeResign = "resign"
	ByeQuit   = "quit"
)

// Hello opens a session. The host sends it once, right after accept.
type Hello struct {
	Version int    `json:"version"`
	Session string `json:"session"`
	Side    string `json:"side"`
	Verify  bool   `json:"verify,omitempty"`
}

// Message is the decoded form of one frame. Only the field matching Kind is set.
type Message struct {
	Kind     Kind
	Move     domain.Move
	Snapshot string
	Hello    Hello
	Bye      string
}

// envelope is the JSON shape on the wire; pointer fields tell absent from empty.
type envelope struct {
	From  *string `json:"from,omitempty"`
	To    *string `json:"to,omitempty"`
	Promo *string `json:"promo,omitempty"`
	FEN   *string `json:"fen,omitempty"`
	Hello *Hello  `json:"hello,omitempty"`
	Bye   *string `json:"bye,omitempty"`
}

func MoveMessage(m domain.Move) Message { return Message{Kind: KindMove, Move: m} }
func SnapshotMessage(fen string) Message { return Message{Kind: KindSnapshot, Snapshot: fen} }
func HelloMessage(h Hello) Message { return Message{Kind: KindHello, Hello: h} }
func ByeMessage(reason string) Message { return Message{Kind: KindBye, Bye: reason} }

// Encode serializes msg into one complete frame.
func Encode(msg Message) ([]byte, error) {
	var env envelope
	switch msg.Kind {
	case KindMove:
		if msg.Move.From.IsZero() || msg.Move.To.IsZero() || msg.Move.From == msg.Move.To {
			return nil, fmt.Errorf("encode move %s: %w", msg.Move, domain.ErrInvalidSquare)
		}
		from, to := msg.Move.From.String(), msg.Move.To.String()
		env.From, env.To = &from, &to
		if msg.Move.Promotion != 0 {
			p := string(msg.Move.Promotion)
			env.Promo = &p
		}
	case KindSnapshot:
		if strings.TrimSpace(msg.Snapshot) == "" {
			return nil, errors.New("encode snapshot: empty fen")
		}
		fen := msg.Snapshot
		env.FEN = &fen
	case KindHello:
		h := msg.Hello
		env.Hello = &h
	case KindBye:
		reason := msg.Bye
		env.Bye = &reason
	default:
		return nil, fmt.Errorf("encode: unknown message kind %q", msg.Kind)
	}
	payload, err := json.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind, err)
	}
	return Frame(payload), nil
}

// EncodeMove never fails for a Move built through domain.NewMove.
func EncodeMove(m domain.Move) []byte {
	frame, err := Encode(MoveMessage(m))
	if err != nil {
		panic(err)
	}
	return frame
}

func EncodeSnapshot(fen string) ([]byte, error) { return Encode(SnapshotMessage(fen)) }

// Decode parses one frame. Every failure wraps ErrMalformedMessage.
func Decode(frame []byte) (Message, error) {
	body, err := payloadOf(frame)
	if err != nil {
		return Message{}, err
	}
	if !utf8.Valid(body) {
		return Message{}, fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedMessage)
	}

	var env envelope
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Message{}, fmt.Errorf("%w: trailing data after message", ErrMalformedMessage)
	}

	kinds := make([]Kind, 0, 1)
	if env.From != nil || env.To != nil || env.Promo != nil {
		kinds = append(kinds, KindMove)
	}
	if env.FEN != nil {
		kinds = append(kinds, KindSnapshot)
	}
	if env.Hello != nil {
		kinds = append(kinds, KindHello)
	}
	if env.Bye != nil {
		kinds = append(kinds, KindBye)
	}
	if len(kinds) != 1 {
		return Message{}, fmt.Errorf("%w: expected exactly one message type, got %d", ErrMalformedMessage, len(kinds))
	}

	switch kinds[0] {
	case KindMove:
		return decodeMove(&env)
	case KindSnapshot:
		if strings.TrimSpace(*env.FEN) == "" {
			return Message{}, fmt.Errorf("%w: empty fen", ErrMalformedMessage)
		}
		return SnapshotMessage(*env.FEN), nil
	case KindHello:
		h := *env.Hello
		if h.Version <= 0 || strings.TrimSpace(h.Session) == "" {
			return Message{}, fmt.Errorf("%w: incomplete hello", ErrMalformedMessage)
		}
		if _, err := domain.ParseSide(h.Side); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return HelloMessage(h), nil
	default:
		return ByeMessage(*env.Bye), nil
	}
}

func decodeMove(env *envelope) (Message, error) {
	if env.From == nil || env.To == nil {
		return Message{}, fmt.Errorf("%w: move needs both from and to", ErrMalformedMessage)
	}
	if len(*env.From) != 2 || len(*env.To) != 2 {
		return Message{}, fmt.Errorf("%w: square tokens must be 2 characters", ErrMalformedMessage)
	}
	mv, err := domain.ParseMove(*env.From, *env.To)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if env.Promo != nil {
		if len(*env.Promo) != 1 {
			return Message{}, fmt.Errorf("%w: promo must be one letter", ErrMalformedMessage)
		}
		if mv, err = mv.WithPromotion((*env.Promo)[0]); err != nil {
			return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
	}
	return MoveMessage(mv), nil
}

// DecodeMove decodes a frame that must carry a move.
func DecodeMove(frame []byte) (domain.Move, error) {
	msg, err := Decode(frame)
	if err != nil {
		return domain.Move{}, err
	}
	if msg.Kind != KindMove {
		return domain.Move{}, fmt.Errorf("%w: expected move, got %s", ErrMalformedMessage, msg.Kind)
	}
	return msg.Move, nil
}
