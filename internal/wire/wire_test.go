package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"testing/iotest"

	"github.com/park285/cheese-duel/internal/domain"
)

func allMoves(t *testing.T) []domain.Move {
	t.Helper()
	var out []domain.Move
	files := "abcdefgh"
	ranks := "12345678"
	for i := 0; i < 64; i++ {
		from := domain.MustSquare(string([]byte{files[i%8], ranks[i/8]}))
		to := domain.MustSquare(string([]byte{files[(i*5+3)%8], ranks[(i*3+1)%8]}))
		if from == to {
			continue
		}
		mv, err := domain.NewMove(from, to)
		if err != nil {
			t.Fatalf("NewMove: %v", err)
		}
		out = append(out, mv)
	}
	return out
}

func TestMoveRoundTrip(t *testing.T) {
	for _, mv := range allMoves(t) {
		got, err := DecodeMove(EncodeMove(mv))
		if err != nil {
			t.Fatalf("DecodeMove(%s): %v", mv, err)
		}
		if got != mv {
			t.Fatalf("round trip: got %+v want %+v", got, mv)
		}
	}
}

func TestPromotionRoundTrip(t *testing.T) {
	mv, _ := domain.ParseMove("e7", "e8")
	mv, _ = mv.WithPromotion('n')
	got, err := DecodeMove(EncodeMove(mv))
	if err != nil {
		t.Fatalf("DecodeMove: %v", err)
	}
	if got != mv {
		t.Fatalf("got %+v want %+v", got, mv)
	}
}

func TestPieceHintNotTransmitted(t *testing.T) {
	mv, _ := domain.ParseMove("b1", "c3")
	frame := EncodeMove(mv.WithPiece('N'))
	if bytes.Contains(frame, []byte("N")) {
		t.Fatalf("piece hint leaked onto the wire: %s", frame[HeaderSize:])
	}
	if string(frame[HeaderSize:]) != `{"from":"b1","to":"c3"}` {
		t.Fatalf("unexpected payload %s", frame[HeaderSize:])
	}
}

func TestSnapshotAndHelloRoundTrip(t *testing.T) {
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1"
	frame, err := EncodeSnapshot(fen)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	msg, err := Decode(frame)
	if err != nil || msg.Kind != KindSnapshot || msg.Snapshot != fen {
		t.Fatalf("snapshot decode: %+v %v", msg, err)
	}

	h := Hello{Version: ProtocolVersion, Session: "abc", Side: "black", Verify: true}
	frame, err = Encode(HelloMessage(h))
	if err != nil {
		t.Fatalf("Encode hello: %v", err)
	}
	msg, err = Decode(frame)
	if err != nil || msg.Kind != KindHello || msg.Hello != h {
		t.Fatalf("hello decode: %+v %v", msg, err)
	}

	frame, _ = Encode(ByeMessage("resign"))
	msg, err = Decode(frame)
	if err != nil || msg.Kind != KindBye || msg.Bye != "resign" {
		t.Fatalf("bye decode: %+v %v", msg, err)
	}
}

func TestFramingSurvivesOneByteChunks(t *testing.T) {
	a, _ := domain.ParseMove("e2", "e4")
	b, _ := domain.ParseMove("g8", "f6")
	stream := append(EncodeMove(a), EncodeMove(b)...)

	r := iotest.OneByteReader(bytes.NewReader(stream))
	for i, want := range []domain.Move{a, b} {
		frame, err := ReadFrame(r, DefaultMaxFrameSize)
		if err != nil {
			t.Fatalf("ReadFrame #%d: %v", i, err)
		}
		got, err := DecodeMove(frame)
		if err != nil {
			t.Fatalf("DecodeMove #%d: %v", i, err)
		}
		if got != want {
			t.Fatalf("frame #%d: got %s want %s", i, got, want)
		}
	}
	if _, err := ReadFrame(r, DefaultMaxFrameSize); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after last frame, got %v", err)
	}
}

func TestReadFrameTruncated(t *testing.T) {
	mv, _ := domain.ParseMove("e2", "e4")
	frame := EncodeMove(mv)
	_, err := ReadFrame(bytes.NewReader(frame[:len(frame)-3]), DefaultMaxFrameSize)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
	_, err = ReadFrame(bytes.NewReader(frame[:2]), DefaultMaxFrameSize)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF on short header, got %v", err)
	}
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var hdr [HeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:], 1<<20)
	_, err := ReadFrame(bytes.NewReader(hdr[:]), 1024)
	if !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage, got %v", err)
	}
	binary.BigEndian.PutUint32(hdr[:], 0)
	_, err = ReadFrame(bytes.NewReader(hdr[:]), 1024)
	if !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage for empty frame, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string][]byte{
		"truncated header": {0, 0},
		"length mismatch":  append([]byte{0, 0, 0, 9}, []byte(`{"from":"e2"}`)...),
		"not json":         Frame([]byte("e2 e4")),
		"not utf8":         Frame([]byte{'{', 0xff, 0xfe, '}'}),
		"bad square":       Frame([]byte(`{"from":"z9","to":"e4"}`)),
		"long token":       Frame([]byte(`{"from":"e2 ","to":"e4"}`)),
		"missing to":       Frame([]byte(`{"from":"e2"}`)),
		"same square":      Frame([]byte(`{"from":"e2","to":"e2"}`)),
		"bad promo":        Frame([]byte(`{"from":"e7","to":"e8","promo":"k"}`)),
		"two kinds":        Frame([]byte(`{"from":"e2","to":"e4","fen":"8/8/8/8/8/8/8/8 w - - 0 1"}`)),
		"no kind":          Frame([]byte(`{}`)),
		"unknown field":    Frame([]byte(`{"from":"e2","to":"e4","piece":"P"}`)),
		"trailing data":    Frame([]byte(`{"from":"e2","to":"e4"}{"from":"d2","to":"d4"}`)),
		"empty fen":        Frame([]byte(`{"fen":"  "}`)),
		"bad hello":        Frame([]byte(`{"hello":{"version":0,"session":"x","side":"white"}}`)),
		"hello bad side":   Frame([]byte(`{"hello":{"version":1,"session":"x","side":"red"}}`)),
	}
	for name, frame := range cases {
		if _, err := Decode(frame); !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("%s: expected ErrMalformedMessage, got %v", name, err)
		}
	}
	snap, _ := EncodeSnapshot("8/8/8/8/8/8/8/K6k w - - 0 1")
	if _, err := DecodeMove(snap); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("DecodeMove on snapshot frame: expected ErrMalformedMessage, got %v", err)
	}
}

type shortWriter struct {
	buf bytes.Buffer
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > 3 {
		p = p[:3]
	}
	return w.buf.Write(p)
}

func TestWriteFrameLoopsOverShortWrites(t *testing.T) {
	mv, _ := domain.ParseMove("e2", "e4")
	frame := EncodeMove(mv)
	var w shortWriter
	if err := WriteFrame(&w, frame); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if !bytes.Equal(w.buf.Bytes(), frame) {
		t.Fatalf("frame was not fully written")
	}
}
