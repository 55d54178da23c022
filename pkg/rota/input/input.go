package input

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// ErrMalformedInput is wrapped by every error caused by the shape of
// an input document rather than by its contents being unsolvable.
var ErrMalformedInput = errors.New("malformed input")

type Attendee struct {
	Name string `json:"name"`
}

type Timeslot struct {
	Name string `json:"name"`
	// Capacity is nil when the document does not bound the timeslot.
	Capacity *int `json:"capacity,omitempty"`
}

// Bounded returns the capacity of the timeslot and whether it has one.
func (t Timeslot) Bounded() (int, bool) {
	if t.Capacity == nil {
		return 0, false
	}
	return *t.Capacity, true
}

// Document is a parsed input file. The order of both lists is the
// order of the file and is the index order used everywhere else.
type Document struct {
	Attendees []Attendee `json:"attendees"`
	Timeslots []Timeslot `json:"timeslots"`
}

// FromFile parses the document stored at path.
func FromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading input file (%s): %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a JSON document of the form
//
//	{"attendees": [{"name": "..."}], "timeslots": [{"name": "...", "capacity": 1}]}
//
// into a Document. Unknown keys are ignored.
func Parse(r io.Reader) (*Document, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber() // keep integers exact so 1.5 is rejected as a capacity

	var inputJson map[string]any
	if err := decoder.Decode(&inputJson); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after the document", ErrMalformedInput)
	}

	for _, key := range []string{"attendees", "timeslots"} {
		value, ok := inputJson[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q", ErrMalformedInput, key)
		}
		if _, ok := value.([]any); !ok {
			return nil, fmt.Errorf("%w: %q must be a list", ErrMalformedInput, key)
		}
	}

	var doc Document
	mapDecoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.DecodeHookFuncType(rejectNumericNames),
		TagName:    "json",
		Result:     &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := mapDecoder.Decode(inputJson); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	if err := doc.validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// json.Number has kind string, so mapstructure would otherwise accept
// {"name": 5} as the name "5".
func rejectNumericNames(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from == reflect.TypeOf(json.Number("")) && to.Kind() == reflect.String {
		return nil, fmt.Errorf("expected a string, got number %v", data)
	}
	return data, nil
}

func (d *Document) validate() error {
	for i, attendee := range d.Attendees {
		if attendee.Name == "" {
			return fmt.Errorf("%w: attendee #%d has no name", ErrMalformedInput, i)
		}
	}
	for i, timeslot := range d.Timeslots {
		if timeslot.Name == "" {
			return fmt.Errorf("%w: timeslot #%d has no name", ErrMalformedInput, i)
		}
		if capacity, ok := timeslot.Bounded(); ok && capacity < 0 {
			return fmt.Errorf("%w: timeslot %q has negative capacity %d", ErrMalformedInput, timeslot.Name, capacity)
		}
	}

	if dups := lo.FindDuplicatesBy(d.Attendees, func(a Attendee) string { return a.Name }); len(dups) > 0 {
		return fmt.Errorf("%w: duplicate attendee %q", ErrMalformedInput, dups[0].Name)
	}
	if dups := lo.FindDuplicatesBy(d.Timeslots, func(t Timeslot) string { return t.Name }); len(dups) > 0 {
		return fmt.Errorf("%w: duplicate timeslot %q", ErrMalformedInput, dups[0].Name)
	}
	return nil
}
