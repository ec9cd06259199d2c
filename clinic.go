package dentdir

import (
	"context"
	"slices"
	"strings"
)

// Status is the CRM-like contact state of a clinic.
type Status string

// Status values. StatusNone is the default for every new clinic.
const (
	StatusNone      Status = "none"
	StatusContacted Status = "contacted"
	StatusPositive  Status = "positive"
	StatusNegative  Status = "negative"
)

// Statuses lists all valid statuses in display order.
func Statuses() []Status {
	return []Status{StatusNone, StatusContacted, StatusPositive, StatusNegative}
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	return slices.Contains(Statuses(), s)
}

// ParseStatus converts a user-supplied string into a Status.
// Returns EINVALID for unknown values.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", Errorf(EINVALID, "invalid status %q: must be one of none, contacted, positive, negative", s)
	}
	return status, nil
}

// SourceLink attributes a clinic to the place it was found.
type SourceLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Clinic is a single directory entry.
// Candidates returned by a Searcher are Clinics without ID, Status and Notes.
type Clinic struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Phone            string       `json:"phone"`
	City             string       `json:"city"`
	District         string       `json:"district"`
	Address          string       `json:"address"`
	Website          string       `json:"website,omitempty"`
	Rating           float64      `json:"rating,omitempty"`
	UserRatingsTotal int          `json:"userRatingsTotal,omitempty"`
	MapsURI          string       `json:"mapsUri,omitempty"`
	Status           Status       `json:"status"`
	Notes            string       `json:"notes"`
	Sources          []string     `json:"sources,omitempty"`
	SourceLinks      []SourceLink `json:"sourceLinks,omitempty"`
}

// Validate returns an error if the clinic contains invalid fields.
func (c *Clinic) Validate() error {
	if c.ID == "" {
		return Errorf(EINVALID, "clinic ID required")
	}
	if NormalizeName(c.Name) == "" {
		return Errorf(EINVALID, "clinic name required")
	}
	if !c.Status.Valid() {
		return Errorf(EINVALID, "invalid status %q", c.Status)
	}
	return nil
}

// Clone returns a deep copy of the clinic.
func (c *Clinic) Clone() *Clinic {
	other := *c
	other.Sources = slices.Clone(c.Sources)
	other.SourceLinks = slices.Clone(c.SourceLinks)
	return &other
}

// Phones splits the phone field into individual numbers for display.
func (c *Clinic) Phones() []string {
	return SplitPhones(c.Phone)
}

// SplitPhones splits a free-text phone field on the delimiters the backend
// uses between numbers. Empty parts are dropped.
func SplitPhones(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', '/', '|', ';':
			return true
		}
		return false
	})
	phones := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			phones = append(phones, p)
		}
	}
	return phones
}

// ClinicService represents the persisted record store.
type ClinicService interface {
	// FindClinicByID retrieves a clinic by ID.
	// Returns ENOTFOUND if the clinic does not exist.
	FindClinicByID(ctx context.Context, id string) (*Clinic, error)

	// FindClinics retrieves clinics matching the filter in insertion order.
	FindClinics(ctx context.Context, filter ClinicFilter) ([]*Clinic, error)

	// MergeClinics appends the candidates that are not duplicates of the
	// stored clinics and persists the result. Returns the appended clinics.
	MergeClinics(ctx context.Context, candidates []*Clinic) ([]*Clinic, error)

	// SetStatus replaces the status of a clinic. An unknown id is a no-op
	// and reports false.
	SetStatus(ctx context.Context, id string, status Status) (bool, error)

	// SetNote replaces the notes of a clinic. An unknown id is a no-op
	// and reports false.
	SetNote(ctx context.Context, id string, note string) (bool, error)

	// ReplaceClinics discards the stored clinics and stores the given list.
	ReplaceClinics(ctx context.Context, clinics []*Clinic) error
}

// ClinicFilter represents a filter for FindClinics.
// Nil and empty fields match everything.
type ClinicFilter struct {
	Status   *Status `json:"status"`
	City     *string `json:"city"`
	District *string `json:"district"`
	Query    string  `json:"query"`
}

// Match reports whether the clinic passes the filter.
// City and district compare case-insensitively; Query matches a substring
// of name, address or phone.
func (f ClinicFilter) Match(c *Clinic) bool {
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	if f.City != nil && foldKey(c.City) != foldKey(*f.City) {
		return false
	}
	if f.District != nil && foldKey(c.District) != foldKey(*f.District) {
		return false
	}
	if q := foldKey(f.Query); q != "" {
		if !strings.Contains(foldKey(c.Name), q) &&
			!strings.Contains(foldKey(c.Address), q) &&
			!strings.Contains(c.Phone, strings.TrimSpace(f.Query)) {
			return false
		}
	}
	return true
}

// Summary counts clinics by status and by city.
type Summary struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"byStatus"`
	ByCity   map[string]int `json:"byCity"`
}

// Summarize computes a Summary over the given clinics.
func Summarize(clinics []*Clinic) Summary {
	s := Summary{
		Total:    len(clinics),
		ByStatus: make(map[Status]int),
		ByCity:   make(map[string]int),
	}
	for _, status := range Statuses() {
		s.ByStatus[status] = 0
	}
	for _, c := range clinics {
		s.ByStatus[c.Status]++
		city := strings.TrimSpace(c.City)
		if city == "" {
			city = "-"
		}
		s.ByCity[city]++
	}
	return s
}
