package dentdir

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Limits for best-effort extraction from free text.
const (
	maxParseBytes      = 4 << 20
	maxExtractAttempts = 8
)

// ParseCandidates decodes backend output into candidate clinics.
// It accepts a bare JSON array, an object wrapping the array under
// "clinics" or "results", or free text with an embedded array (optionally
// inside a markdown code fence). Unparseable input yields no candidates.
// Array elements that are not objects are skipped.
func ParseCandidates(text string) []*Clinic {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) > maxParseBytes {
		text = text[:maxParseBytes]
	}

	if clinics, ok := decodeCandidates([]byte(text)); ok {
		return clinics
	}

	for _, raw := range extractArrays(text) {
		if clinics, ok := decodeCandidates([]byte(raw)); ok && len(clinics) > 0 {
			return clinics
		}
	}
	return nil
}

// decodeCandidates decodes data as an array of candidates or as an object
// wrapping one.
func decodeCandidates(data []byte) ([]*Clinic, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		var wrapper struct {
			Clinics []json.RawMessage `json:"clinics"`
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, false
		}
		elems = wrapper.Clinics
		if elems == nil {
			elems = wrapper.Results
		}
		if elems == nil {
			return nil, false
		}
	}

	clinics := make([]*Clinic, 0, len(elems))
	for _, elem := range elems {
		var c candidate
		if err := json.Unmarshal(elem, &c); err != nil {
			continue
		}
		clinics = append(clinics, c.clinic())
	}
	return clinics, true
}

// extractArrays returns substrings of text that may hold a JSON array:
// first the span from the first '[' to the last ']', then each balanced
// top-level bracket span, up to maxExtractAttempts in total.
func extractArrays(text string) []string {
	first := strings.IndexByte(text, '[')
	last := strings.LastIndexByte(text, ']')
	if first < 0 || last <= first {
		return nil
	}

	spans := []string{text[first : last+1]}
	for start := first; start >= 0 && start < len(text) && len(spans) < maxExtractAttempts; {
		end := matchBracket(text, start)
		if end < 0 {
			break
		}
		if span := text[start : end+1]; span != spans[0] {
			spans = append(spans, span)
		}
		next := strings.IndexByte(text[end+1:], '[')
		if next < 0 {
			break
		}
		start = end + 1 + next
	}
	return spans
}

// matchBracket returns the index of the ']' closing the '[' at start,
// skipping brackets inside JSON strings, or -1.
func matchBracket(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// candidate is the loosely typed shape the backend is asked to produce.
type candidate struct {
	Name             flexString   `json:"name"`
	Title            flexString   `json:"title"`
	Phone            flexString   `json:"phone"`
	City             flexString   `json:"city"`
	District         flexString   `json:"district"`
	Address          flexString   `json:"address"`
	Website          flexString   `json:"website"`
	Rating           flexNumber   `json:"rating"`
	UserRatingsTotal flexNumber   `json:"userRatingsTotal"`
	MapsURI          flexString   `json:"mapsUri"`
	MapsURL          flexString   `json:"mapsUrl"`
	Sources          []flexString `json:"sources"`
	SourceLinks      []SourceLink `json:"sourceLinks"`
}

func (c candidate) clinic() *Clinic {
	clinic := &Clinic{
		Name:             strings.TrimSpace(string(c.Name)),
		Phone:            strings.TrimSpace(string(c.Phone)),
		City:             strings.TrimSpace(string(c.City)),
		District:         strings.TrimSpace(string(c.District)),
		Address:          strings.TrimSpace(string(c.Address)),
		Website:          strings.TrimSpace(string(c.Website)),
		Rating:           float64(c.Rating),
		UserRatingsTotal: c.UserRatingsTotal.count(),
		MapsURI:          strings.TrimSpace(string(c.MapsURI)),
		SourceLinks:      c.SourceLinks,
	}
	if clinic.Name == "" {
		clinic.Name = strings.TrimSpace(string(c.Title))
	}
	if clinic.MapsURI == "" {
		clinic.MapsURI = strings.TrimSpace(string(c.MapsURL))
	}
	for _, s := range c.Sources {
		if s != "" {
			clinic.Sources = append(clinic.Sources, string(s))
		}
	}
	for _, link := range c.SourceLinks {
		if link.Name != "" {
			clinic.Sources = append(clinic.Sources, link.Name)
		}
	}
	return clinic
}

// flexString decodes a JSON string, number, boolean or array of those.
// Arrays are joined with ", ".
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
	case data[0] == '[':
		var parts []flexString
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		joined := make([]string, 0, len(parts))
		for _, p := range parts {
			if p != "" {
				joined = append(joined, string(p))
			}
		}
		*s = flexString(strings.Join(joined, ", "))
	case data[0] == '{':
		*s = ""
	default:
		*s = flexString(data)
	}
	return nil
}

// maxRatingsTotal bounds review counts; larger values are treated as noise.
const maxRatingsTotal = 1 << 31

// flexNumber decodes a JSON number or a numeric string. Anything else,
// including NaN and infinities, is zero.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	text := strings.Trim(string(data), `"`)
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		*n = 0
		return nil
	}
	*n = flexNumber(v)
	return nil
}

// count returns n as a review count. Negative, fractional and out of range
// values are zero.
func (n flexNumber) count() int {
	v := float64(n)
	if v < 0 || v >= maxRatingsTotal || v != math.Trunc(v) {
		return 0
	}
	return int(v)
}
