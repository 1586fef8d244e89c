// Package nutrition encodes the fixed set of nutrition facts stored inline on a food item.
//
// Facts are persisted as a JSON object with the keys Calories, Protein, Fat and Carbs.
// Values are free text such as "250 kcal". Decoding is lenient: stored text that is not a
// JSON object decodes to empty Facts instead of failing, so rows written by older versions
// of the application, or by an admin typing invalid text, still render.
package nutrition

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned by Parse when the text is not a JSON object.
	ErrMalformed = errors.New("nutrition: malformed encoding")
	// ErrCaloriesUnparsable is returned by CalorieCount when Calories has no leading integer.
	ErrCaloriesUnparsable = errors.New("nutrition: calories not parseable")
)

// Keys lists the recognised nutrition keys in display order.
var Keys = []string{"Calories", "Protein", "Fat", "Carbs"}

// Facts is the nutrition record of a food item. Any field may be empty.
type Facts struct {
	Calories string `json:"Calories"`
	Protein  string `json:"Protein"`
	Fat      string `json:"Fat"`
	Carbs    string `json:"Carbs"`
}

// Encode returns the canonical text form of f.
func Encode(f Facts) string {
	// Marshalling a struct of strings cannot fail.
	b, _ := json.Marshal(f)
	return string(b)
}

// Parse decodes text strictly. Unknown keys are ignored; numeric values are kept
// as their literal text. Anything that is not a JSON object yields ErrMalformed.
func Parse(text string) (Facts, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Facts{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw == nil {
		return Facts{}, ErrMalformed
	}
	if _, err := dec.Token(); err != io.EOF {
		return Facts{}, fmt.Errorf("%w: trailing data", ErrMalformed)
	}

	var f Facts
	for key, dst := range map[string]*string{
		"Calories": &f.Calories,
		"Protein":  &f.Protein,
		"Fat":      &f.Fat,
		"Carbs":    &f.Carbs,
	} {
		if v, ok := raw[key]; ok {
			*dst = scalarText(v)
		}
	}
	return f, nil
}

// Decode is the lenient form of Parse: malformed text decodes to empty Facts.
func Decode(text string) Facts {
	f, err := Parse(text)
	if errors.Is(err, ErrMalformed) {
		return Facts{}
	}
	return f
}

// Indent pretty-prints text for editing. Text that does not parse is returned unchanged.
func Indent(text string) string {
	if _, err := Parse(text); err != nil {
		return text
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
		return text
	}
	return buf.String()
}

// IsEmpty reports whether no field is set.
func (f Facts) IsEmpty() bool {
	return f == Facts{}
}

// Get returns the value stored under one of Keys.
func (f Facts) Get(key string) string {
	switch key {
	case "Calories":
		return f.Calories
	case "Protein":
		return f.Protein
	case "Fat":
		return f.Fat
	case "Carbs":
		return f.Carbs
	}
	return ""
}

// CalorieCount parses the leading whitespace-separated token of Calories as an integer,
// so "250 kcal" counts as 250. Values like "250kcal" or "12.5 kcal" are not counted.
func (f Facts) CalorieCount() (int, error) {
	fields := strings.Fields(f.Calories)
	if len(fields) == 0 {
		return 0, ErrCaloriesUnparsable
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrCaloriesUnparsable, fields[0])
	}
	return n, nil
}

// scalarText renders a JSON string or number as plain text. Other JSON values are dropped.
func scalarText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}
	return ""
}
