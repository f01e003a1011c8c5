package qrtoken

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedToken is returned when a scanned payload cannot be decoded.
var ErrMalformedToken = errors.New("malformed qr token")

// DefaultMaxAge is how long a token stays scannable after issuance.
const DefaultMaxAge = 5 * time.Minute

const prefix = "STUDENT"

// Claim is the decoded content of a student's QR token.
type Claim struct {
	StudentID string
	IssuedAt  time.Time
}

// Encode builds the wire token for a student: "STUDENT:id:id:unixSeconds",
// base64-encoded as a whole. The student id appears twice for compatibility
// with deployed scanners; decoders only read the first copy.
func Encode(studentID string, issuedAt time.Time) string {
	raw := strings.Join([]string{prefix, studentID, studentID, strconv.FormatInt(issuedAt.Unix(), 10)}, ":")
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// Decode reverses Encode. It requires valid base64, exactly four
// colon-separated fields, the STUDENT type tag, and an integer timestamp.
func Decode(token string) (Claim, error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return Claim{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	parts := strings.Split(string(raw), ":")
	if len(parts) != 4 {
		return Claim{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrMalformedToken, len(parts))
	}
	if parts[0] != prefix {
		return Claim{}, fmt.Errorf("%w: bad type tag %q", ErrMalformedToken, parts[0])
	}
	if parts[1] == "" {
		return Claim{}, fmt.Errorf("%w: empty student id", ErrMalformedToken)
	}
	ts, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Claim{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedToken, parts[3])
	}
	return Claim{StudentID: parts[1], IssuedAt: time.Unix(ts, 0).UTC()}, nil
}

// FreshAt reports whether the claim is still within maxAge at the given
// instant. The boundary is inclusive: a token exactly maxAge old is fresh.
func (c Claim) FreshAt(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	// Matches the deployed clients: now - issuedAt <= maxAge. Tokens stamped
	// slightly in the future (device clock skew) pass.
	age := now.Unix() - c.IssuedAt.Unix()
	return time.Duration(age)*time.Second <= maxAge
}
