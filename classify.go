package main

import "strings"

const (
	// infoMarker identifies lines written by the server's main thread.
	infoMarker = "[Server thread/INFO]: "
	// privacyMarker prefixes chat sent without a signed profile.
	privacyMarker = "[Not Secure] "
)

// delimiterPairs maps each opening delimiter of an attributed name to its closer.
var delimiterPairs = map[byte]byte{
	'<': '>',
	'[': ']',
}

// delimiterChars is every character of delimiterPairs, openers and closers.
var delimiterChars = func() string {
	var b strings.Builder
	for open, closer := range delimiterPairs {
		b.WriteByte(open)
		b.WriteByte(closer)
	}
	return b.String()
}()

type scanState int

const (
	stateBeforeMarker scanState = iota
	stateInPayload
	stateInName
	stateInMessage
)

// lineScanner walks one raw line through the classification states.
type lineScanner struct {
	line     string
	state    scanState
	markerAt int
	payload  string
	closer   byte
	nameEnd  int // index in payload of the closer that precedes the first space
}

// Classify parses a raw server log line.
//
// Return values:
//   - (*StatusEvent, nil) or (*ChatEvent, nil): recognized line
//   - (nil, nil): line is not a status or chat line
//   - (nil, *LineError): line is structurally broken; callers skip it
func Classify(line string) (Event, error) {
	sc := &lineScanner{line: line}
	for {
		switch sc.state {
		case stateBeforeMarker:
			idx := strings.Index(sc.line, infoMarker)
			if idx < 0 {
				return nil, nil
			}
			sc.markerAt = idx
			sc.payload = strings.TrimPrefix(sc.line[idx+len(infoMarker):], privacyMarker)
			sc.state = stateInPayload

		case stateInPayload:
			if sc.payload == "" {
				return nil, nil
			}
			closer, ok := delimiterPairs[sc.payload[0]]
			if !ok {
				return sc.statusEvent()
			}
			sc.closer = closer
			sc.state = stateInName

		case stateInName:
			space := strings.IndexByte(sc.payload, ' ')
			if space < 0 {
				if strings.IndexByte(sc.payload[1:], sc.closer) < 0 {
					return nil, nil
				}
				return nil, &LineError{Line: sc.line, Reason: "attributed payload has no space"}
			}
			// A closer anywhere but right before the first space means a system
			// message such as "[Ann: Reloading!]".
			if sc.payload[space-1] != sc.closer {
				return nil, nil
			}
			sc.nameEnd = space - 1
			sc.state = stateInMessage

		case stateInMessage:
			name := sc.payload[1:sc.nameEnd]
			if name == "" {
				return nil, &LineError{Line: sc.line, Reason: "empty player name"}
			}
			return &ChatEvent{
				Player:    name,
				Message:   sc.payload[sc.nameEnd+2:],
				Timestamp: sc.timestamp(),
			}, nil
		}
	}
}

// statusEvent handles a payload with no leading delimiter.
func (sc *lineScanner) statusEvent() (Event, error) {
	if strings.ContainsAny(sc.payload, delimiterChars) {
		return nil, nil
	}
	name, rest, ok := strings.Cut(sc.payload, " ")
	if !ok {
		return nil, nil
	}
	status, ok := statusPhrases[rest]
	if !ok {
		return nil, nil
	}
	if name == "" {
		return nil, &LineError{Line: sc.line, Reason: "status line without player name"}
	}
	return &StatusEvent{Player: name, Status: status}, nil
}

// timestamp returns the bracketed prefix before the info marker, e.g. "10:00:05".
func (sc *lineScanner) timestamp() string {
	prefix := sc.line[:sc.markerAt]
	if !strings.HasPrefix(prefix, "[") {
		return ""
	}
	end := strings.IndexByte(prefix, ']')
	if end < 0 {
		return ""
	}
	return prefix[1:end]
}
