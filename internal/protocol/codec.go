package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownKind = errors.New("unknown message kind")
	ErrMalformed   = errors.New("malformed message")
)

// Encode renders m as a single frame: the kind, then a space and the payload
// when there is one.
func Encode(m Message) string {
	p := m.payload()
	if p == "" {
		return string(m.Kind())
	}
	return string(m.Kind()) + " " + p
}

// ValidName reports whether s can be used as a nickname or channel name.
func ValidName(s string) bool {
	if s == "" || len(s) > 32 {
		return false
	}
	return !strings.ContainsAny(s, ": \t\r\n")
}

func (PieceRequest) payload() string    { return "" }
func (m Piece) payload() string         { return strconv.Itoa(m.Shape) }
func (m Lives) payload() string         { return strconv.Itoa(m.N) }
func (Die) payload() string             { return "" }
func (m Score) payload() string         { return strconv.Itoa(m.N) }
func (m Error) payload() string         { return m.Text }
func (List) payload() string            { return "" }
func (m Channels) payload() string      { return strings.Join(m.Names, "\n") }
func (m Create) payload() string        { return m.Name }
func (m Join) payload() string          { return m.Name }
func (Part) payload() string            { return "" }
func (Parted) payload() string          { return "" }
func (UsersRequest) payload() string    { return "" }
func (m Users) payload() string         { return strings.Join(m.Names, "\n") }
func (Host) payload() string            { return "" }
func (Start) payload() string           { return "" }
func (HiScoresRequest) payload() string { return "" }
func (m SubmitScore) payload() string   { return m.Entry.String() }
func (m NewScore) payload() string      { return m.Entry.String() }

func (m Board) payload() string { return prefixed(m.From, m.Data) }
func (m Msg) payload() string   { return prefixed(m.From, m.Text) }
func (m Nick) payload() string  { return prefixed(m.Old, m.Name) }

func (m Scores) payload() string {
	lines := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

func (m HiScores) payload() string {
	lines := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

func (e HiScore) String() string { return e.Name + ":" + strconv.Itoa(e.Score) }

func (e PlayerScore) String() string {
	lives := strconv.Itoa(e.Lives)
	if e.Dead {
		lives = "DEAD"
	}
	return e.Name + ":" + strconv.Itoa(e.Score) + ":" + lives
}

func prefixed(prefix, s string) string {
	if prefix == "" {
		return s
	}
	return prefix + ":" + s
}

// Decode parses one frame produced by dir. Frames that do not match the
// grammar return an error wrapping ErrUnknownKind or ErrMalformed.
func Decode(frame string, dir Direction) (Message, error) {
	frame = strings.TrimRight(frame, "\r\n")
	head, rest := frame, ""
	if i := strings.IndexAny(frame, " \n"); i >= 0 {
		head, rest = frame[:i], frame[i+1:]
	}
	kind := Kind(head)

	switch kind {
	case KindPiece:
		if dir == FromClient {
			return PieceRequest{}, none(kind, rest)
		}
		n, err := nonNegative(kind, rest)
		return Piece{Shape: n}, err
	case KindLives:
		n, err := nonNegative(kind, rest)
		return Lives{N: n}, err
	case KindDie:
		return Die{}, none(kind, rest)
	case KindScore:
		n, err := nonNegative(kind, rest)
		return Score{N: n}, err
	case KindScores:
		entries, err := playerScores(rest)
		return Scores{Entries: entries}, err
	case KindBoard:
		if dir == FromClient {
			if rest == "" {
				return nil, malformed(kind, "empty board")
			}
			return Board{Data: rest}, nil
		}
		from, data, ok := strings.Cut(rest, ":")
		if !ok || from == "" {
			return nil, malformed(kind, "missing sender")
		}
		return Board{From: from, Data: data}, nil
	case KindError:
		return Error{Text: rest}, nil
	case KindList:
		return List{}, none(kind, rest)
	case KindChannels:
		return Channels{Names: names(rest)}, nil
	case KindCreate:
		name, err := channelName(kind, rest)
		return Create{Name: name}, err
	case KindJoin:
		name, err := channelName(kind, rest)
		return Join{Name: name}, err
	case KindPart:
		return Part{}, none(kind, rest)
	case KindParted:
		return Parted{}, none(kind, rest)
	case KindMsg:
		if dir == FromClient {
			if strings.TrimSpace(rest) == "" {
				return nil, malformed(kind, "empty message")
			}
			return Msg{Text: rest}, nil
		}
		from, text, ok := strings.Cut(rest, ":")
		if !ok || from == "" {
			return nil, malformed(kind, "missing sender")
		}
		return Msg{From: from, Text: text}, nil
	case KindNick:
		if dir == FromServer {
			if old, name, ok := strings.Cut(rest, ":"); ok {
				if old == "" || name == "" {
					return nil, malformed(kind, rest)
				}
				return Nick{Old: old, Name: name}, nil
			}
		}
		name := strings.TrimSpace(rest)
		if !ValidName(name) {
			return nil, malformed(kind, "invalid nickname")
		}
		return Nick{Name: name}, nil
	case KindUsers:
		if dir == FromClient {
			return UsersRequest{}, none(kind, rest)
		}
		return Users{Names: names(rest)}, nil
	case KindHost:
		return Host{}, none(kind, rest)
	case KindStart:
		return Start{}, none(kind, rest)
	case KindHiScores:
		if dir == FromClient {
			return HiScoresRequest{}, none(kind, rest)
		}
		entries, err := hiScores(rest)
		return HiScores{Entries: entries}, err
	case KindHiScore:
		e, err := ParseHiScore(rest)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return SubmitScore{Entry: e}, nil
	case KindNewScore:
		e, err := ParseHiScore(rest)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		return NewScore{Entry: e}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, head)
}

// ParseHiScore parses a name:score pair.
func ParseHiScore(s string) (HiScore, error) {
	name, score, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || name == "" {
		return HiScore{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	n, err := strconv.Atoi(score)
	if err != nil || n < 0 {
		return HiScore{}, fmt.Errorf("%w: score %q", ErrMalformed, score)
	}
	return HiScore{Name: name, Score: n}, nil
}

func malformed(kind Kind, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformed, kind, detail)
}

func none(kind Kind, rest string) error {
	if strings.TrimSpace(rest) != "" {
		return malformed(kind, "unexpected payload")
	}
	return nil
}

func nonNegative(kind Kind, rest string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || n < 0 {
		return 0, malformed(kind, fmt.Sprintf("bad integer %q", rest))
	}
	return n, nil
}

func channelName(kind Kind, rest string) (string, error) {
	name := strings.TrimSpace(rest)
	if name == "" || strings.ContainsAny(name, "\r\n") {
		return "", malformed(kind, "missing channel name")
	}
	return name, nil
}

func names(rest string) []string {
	var out []string
	for _, line := range strings.Split(rest, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func hiScores(rest string) ([]HiScore, error) {
	var out []HiScore
	for _, line := range names(rest) {
		e, err := ParseHiScore(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KindHiScores, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func playerScores(rest string) ([]PlayerScore, error) {
	var out []PlayerScore
	for _, line := range names(rest) {
		parts := strings.Split(line, ":")
		if len(parts) != 3 || parts[0] == "" {
			return nil, malformed(KindScores, line)
		}
		score, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, malformed(KindScores, line)
		}
		e := PlayerScore{Name: parts[0], Score: score}
		if parts[2] == "DEAD" {
			e.Dead = true
		} else if e.Lives, err = strconv.Atoi(parts[2]); err != nil {
			return nil, malformed(KindScores, line)
		}
		out = append(out, e)
	}
	return out, nil
}
