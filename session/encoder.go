package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/MrEthical07/goCaptcha/challenge"
)

// CurrentSchemaVersion is the schema byte written by [Encode]. Version 1 blobs, which
// predate image cell labels, still decode.
const CurrentSchemaVersion = 2

const schemaVersionNoLabels = 1

const (
	flagLocked byte = 1 << iota
)

const (
	maxAnswerText    = math.MaxUint16
	maxAnswerIndices = math.MaxUint8
	maxAnswerLabels  = math.MaxUint8
	maxLabelLen      = math.MaxUint8
)

// ErrCorrupt is returned when a stored blob cannot be decoded.
var ErrCorrupt = errors.New("session blob corrupt")

// Encode serialises s. The token is the storage key and is not part of the blob, and
// attempts live in their own counter.
func Encode(s *Session) ([]byte, error) {
	if len(s.Answer.Text) > maxAnswerText {
		return nil, errors.New("answer text too long")
	}
	if len(s.Answer.Indices) > maxAnswerIndices {
		return nil, errors.New("answer has too many indices")
	}
	if len(s.Answer.Labels) > maxAnswerLabels {
		return nil, errors.New("answer has too many labels")
	}
	for _, l := range s.Answer.Labels {
		if len(l) > maxLabelLen {
			return nil, errors.New("answer label too long")
		}
	}

	var buf bytes.Buffer
	buf.Grow(96 + len(s.Answer.Text) + 4*len(s.Answer.Indices))

	buf.WriteByte(CurrentSchemaVersion)
	writeTime(&buf, s.CreatedAt)
	buf.Write(s.IPFingerprint[:])

	buf.WriteByte(byte(s.CaptchaType))
	writeTime(&buf, s.ChallengeGeneratedAt)

	var flags byte
	if s.Locked {
		flags |= flagLocked
	}
	buf.WriteByte(flags)
	writeTime(&buf, s.LockUntil)

	_ = binary.Write(&buf, binary.BigEndian, uint16(len(s.Answer.Text)))
	buf.WriteString(s.Answer.Text)
	_ = binary.Write(&buf, binary.BigEndian, int64(s.Answer.Value))
	buf.WriteByte(byte(len(s.Answer.Indices)))
	for _, idx := range s.Answer.Indices {
		_ = binary.Write(&buf, binary.BigEndian, int32(idx))
	}
	buf.WriteByte(byte(len(s.Answer.Labels)))
	for _, l := range s.Answer.Labels {
		buf.WriteByte(byte(len(l)))
		buf.WriteString(l)
	}

	return buf.Bytes(), nil
}

// Decode parses a blob written by [Encode]. The returned session has no Token or
// Attempts; [Store.Get] fills those in.
func Decode(data []byte) (*Session, error) {
	s, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s, nil
}

func decode(data []byte) (*Session, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion && version != schemaVersionNoLabels {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	s := &Session{}
	if s.CreatedAt, err = readTime(r); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, s.IPFingerprint[:]); err != nil {
		return nil, err
	}

	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	s.CaptchaType = challenge.Kind(kind)
	if s.CaptchaType != challenge.KindNone && !s.CaptchaType.Valid() {
		return nil, fmt.Errorf("invalid captcha type %d", kind)
	}
	if s.ChallengeGeneratedAt, err = readTime(r); err != nil {
		return nil, err
	}

	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Locked = flags&flagLocked != 0
	if s.LockUntil, err = readTime(r); err != nil {
		return nil, err
	}

	var textLen uint16
	if err := binary.Read(r, binary.BigEndian, &textLen); err != nil {
		return nil, err
	}
	text := make([]byte, textLen)
	if _, err := io.ReadFull(r, text); err != nil {
		return nil, err
	}
	s.Answer.Text = string(text)

	var value int64
	if err := binary.Read(r, binary.BigEndian, &value); err != nil {
		return nil, err
	}
	s.Answer.Value = int(value)

	n, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.Answer.Indices = make([]int, n)
		for i := range s.Answer.Indices {
			var idx int32
			if err := binary.Read(r, binary.BigEndian, &idx); err != nil {
				return nil, err
			}
			s.Answer.Indices[i] = int(idx)
		}
	}

	if version >= CurrentSchemaVersion {
		if s.Answer.Labels, err = readLabels(r); err != nil {
			return nil, err
		}
	}

	if r.Len() != 0 {
		return nil, errors.New("trailing bytes")
	}
	return s, nil
}

func readLabels(r *bytes.Reader) ([]string, error) {
	n, err := r.ReadByte()
	if err != nil || n == 0 {
		return nil, err
	}
	labels := make([]string, n)
	for i := range labels {
		l, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		b := make([]byte, l)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		labels[i] = string(b)
	}
	return labels, nil
}

// Times are stored as unix nanoseconds, 0 meaning unset.
func writeTime(buf *bytes.Buffer, t time.Time) {
	var v int64
	if !t.IsZero() {
		v = t.UnixNano()
	}
	_ = binary.Write(buf, binary.BigEndian, v)
}

func readTime(r io.Reader) (time.Time, error) {
	var v int64
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return time.Time{}, err
	}
	if v == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, v), nil
}
