package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one past draw as returned by the provider.
// Fields other than the issue and draw number are kept for the analysis engine but never interpreted here.
type Record struct {
	Issue      string     `json:"issue"`
	DrawNumber DrawNumber `json:"drawNumber"`
	Color      string     `json:"color,omitempty"`
	Premium    string     `json:"premium,omitempty"`
	Sum        string     `json:"sum,omitempty"`
}

// Page is the ordered list of records returned by one page request.
type Page []Record

// DrawNumber is the drawn value. The provider sends it either as a JSON string
// or a number, and it is written back in the form it arrived in.
// The zero value is a missing draw and encodes as null.
type DrawNumber struct {
	text   string
	quoted bool
}

// NewDrawNumber returns a draw number that encodes as a JSON number.
func NewDrawNumber(n int) DrawNumber {
	return DrawNumber{text: strconv.Itoa(n)}
}

// DrawNumberFromString returns a draw number that encodes as a JSON string.
func DrawNumberFromString(s string) DrawNumber {
	return DrawNumber{text: s, quoted: true}
}

// String returns the draw as text, "" when missing.
func (d DrawNumber) String() string {
	return d.text
}

// IsString reports whether the draw was sent as a JSON string.
func (d DrawNumber) IsString() bool {
	return d.quoted
}

// UnmarshalJSON accepts "7", 7 and null.
func (d *DrawNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = DrawNumber{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = DrawNumberFromString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("draw number: %w", err)
	}
	*d = DrawNumber{text: n.String()}
	return nil
}

// MarshalJSON writes the draw in the form it was received.
func (d DrawNumber) MarshalJSON() ([]byte, error) {
	switch {
	case d.quoted:
		return json.Marshal(d.text)
	case d.text == "":
		return []byte("null"), nil
	default:
		return []byte(d.text), nil
	}
}

// Int returns the numeric value of the draw.
func (d DrawNumber) Int() (int, error) {
	return strconv.Atoi(d.text)
}

// Size is the Big/Small classification of a draw.
type Size string

// Color is the Red/Green/Violet classification of a draw.
type Color string

const (
	SizeBig   Size = "Big"
	SizeSmall Size = "Small"

	ColorRed    Color = "Red"
	ColorGreen  Color = "Green"
	ColorViolet Color = "Violet"
)

// SizeOf classifies a draw number in 0..9. Five and above is Big.
func SizeOf(n int) Size {
	if n >= 5 {
		return SizeBig
	}
	return SizeSmall
}

// ColorsOf returns the colors paid out for a draw number. The primary color
// comes first; 0 and 5 also pay Violet.
func ColorsOf(n int) []Color {
	primary := ColorRed
	if n%2 == 1 {
		primary = ColorGreen
	}
	if n == 0 || n == 5 {
		return []Color{primary, ColorViolet}
	}
	return []Color{primary}
}

// Classify returns the primary color and size of a record.
func (r Record) Classify() (Color, Size, error) {
	n, err := r.DrawNumber.Int()
	if err != nil {
		return "", "", fmt.Errorf("issue %s: %w", r.Issue, err)
	}
	if n < 0 || n > 9 {
		return "", "", fmt.Errorf("issue %s: draw number %d out of range", r.Issue, n)
	}
	return ColorsOf(n)[0], SizeOf(n), nil
}
