// Package cursor encodes and decodes the opaque pagination tokens handed out
// by the search endpoints.
//
// A cursor identifies the last item of a page by its sort key: the creation
// time and the id, plus the relevance rank when the page was sorted by text
// relevance. Resuming from absolute sort-key values, instead of an offset,
// keeps pages stable when items are inserted between two requests.
//
// The wire form is the unpadded base64url encoding of a small versioned JSON
// object:
//
//	{"v":1,"t":"2024-09-27T12:00:00.123456789Z","i":"0192...","r":-1.25}
//
// The legacy "<RFC3339 timestamp>_<id>" form is still accepted by Decode.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
)

// Version is the current cursor format version.
const Version = 1

// maxEncodedLen bounds the size of cursors accepted by Decode.
const maxEncodedLen = 512

// ErrInvalidCursor indicates that the supplied cursor could not be decoded.
var ErrInvalidCursor = errors.New("cursor: invalid cursor")

// Cursor is the decoded sort key of the last item of a page.
type Cursor struct {
	Version   int
	CreatedAt time.Time
	ID        string
	Rank      float64
	Ranked    bool
}

type wireCursor struct {
	V int      `json:"v"`
	T string   `json:"t"`
	I string   `json:"i"`
	R *float64 `json:"r,omitempty"`
}

// New returns a cursor for a page sorted by (createdAt desc, id desc).
func New(createdAt time.Time, id string) Cursor {
	return Cursor{Version: Version, CreatedAt: createdAt.UTC(), ID: id}
}

// NewRanked returns a cursor for a page sorted by relevance first.
func NewRanked(createdAt time.Time, id string, rank float64) Cursor {
	c := New(createdAt, id)
	if !math.IsNaN(rank) && !math.IsInf(rank, 0) {
		c.Rank = rank
		c.Ranked = true
	}
	return c
}

// Encode returns the opaque string form of c.
func Encode(c Cursor) string {
	w := wireCursor{
		V: Version,
		T: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		I: c.ID,
	}
	if c.Ranked {
		r := c.Rank
		w.R = &r
	}
	// Marshal cannot fail: all fields are strings, ints or finite floats.
	data, _ := json.Marshal(w)
	return base64.RawURLEncoding.EncodeToString(data)
}

// String implements fmt.Stringer with the encoded form.
func (c Cursor) String() string {
	return Encode(c)
}

// Decode parses a cursor produced by Encode, or the legacy
// "<timestamp>_<id>" form. Any malformed input yields ErrInvalidCursor.
func Decode(s string) (Cursor, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxEncodedLen {
		return Cursor{}, ErrInvalidCursor
	}

	if c, err := decodeV1(s); err == nil {
		return c, nil
	}

	if c, ok := decodeLegacy(s); ok {
		return c, nil
	}

	return Cursor{}, ErrInvalidCursor
}

func decodeV1(s string) (Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	var w wireCursor
	if err := json.Unmarshal(data, &w); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if w.V != Version || w.I == "" {
		return Cursor{}, ErrInvalidCursor
	}

	t, err := time.Parse(time.RFC3339Nano, w.T)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	c := Cursor{Version: w.V, CreatedAt: t.UTC(), ID: w.I}
	if w.R != nil {
		if math.IsNaN(*w.R) || math.IsInf(*w.R, 0) {
			return Cursor{}, ErrInvalidCursor
		}
		c.Rank = *w.R
		c.Ranked = true
	}
	return c, nil
}

// decodeLegacy splits on the last "_" so that the timestamp half never has
// to be guessed.
func decodeLegacy(s string) (Cursor, bool) {
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return Cursor{}, false
	}

	t, err := time.Parse(time.RFC3339Nano, s[:i])
	if err != nil {
		return Cursor{}, false
	}

	return Cursor{Version: 0, CreatedAt: t.UTC(), ID: s[i+1:]}, true
}
