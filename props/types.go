package props

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusConfirmed          Status = "confirmed"
	StatusInUse              Status = "in_use"
	StatusBeingModified      Status = "being_modified"
	StatusOnOrder            Status = "on_order"
	StatusOutForRepair       Status = "out_for_repair"
	StatusDamaged            Status = "damaged"
	StatusMissing            Status = "missing"
	StatusCut                Status = "cut"
	StatusAvailableInStorage Status = "available_in_storage"
)

var statuses = []Status{
	StatusConfirmed, StatusInUse, StatusBeingModified, StatusOnOrder, StatusOutForRepair,
	StatusDamaged, StatusMissing, StatusCut, StatusAvailableInStorage,
}

func Statuses() []Status {
	return append([]Status(nil), statuses...)
}

func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range statuses {
		if s == known {
			return s, true
		}
	}
	return "", false
}

const MaxImages = 20

type Image struct {
	Key     string `json:"key"`
	URL     string `json:"url,omitempty"`
	Caption string `json:"caption"`
	IsMain  bool   `json:"is_main"`
}

type Prop struct {
	ID          int64     `json:"id"`
	ShowID      int64     `json:"show_id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Status      Status    `json:"status"`
	Quantity    int       `json:"quantity"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	WeightKg    float64   `json:"weight_kg"`
	Location    string    `json:"location"`
	Act         int       `json:"act"`
	Scene       int       `json:"scene"`
	Tags        []string  `json:"tags"`
	Images      []Image   `json:"images"`
	Source      string    `json:"source"`
	Notes       string    `json:"notes"`
	AssignedTo  *int64    `json:"assigned_to,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// CostsHidden is set when price and currency were redacted for the caller.
	CostsHidden bool `json:"costs_hidden,omitempty"`
}

// MainImage returns the image flagged as main, or the first one.
func (p *Prop) MainImage() *Image {
	if p == nil || len(p.Images) == 0 {
		return nil
	}
	for i := range p.Images {
		if p.Images[i].IsMain {
			return &p.Images[i]
		}
	}
	return &p.Images[0]
}

type StatusChange struct {
	ID        int64     `json:"id"`
	PropID    int64     `json:"prop_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Note      string    `json:"note"`
	ChangedBy int64     `json:"changed_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Filter struct {
	ShowID     int64
	Status     Status
	Category   string
	Location   string
	Search     string
	Tag        string
	AssignedTo int64
	Act        int
	Limit      int
	Offset     int
}

// NormalizeCategory lowercases and collapses whitespace so "Hand  Props" and "hand props" match.
func NormalizeCategory(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

func NormalizeTags(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.Join(strings.Fields(strings.ToLower(t)), " ")
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Validate normalizes p in place and checks numeric ranges.
func (p *Prop) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if len(p.Name) > 200 {
		return fmt.Errorf("%w: name too long", ErrInvalidInput)
	}
	if p.Status == "" {
		p.Status = StatusConfirmed
	}
	if _, ok := ParseStatus(string(p.Status)); !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, p.Status)
	}
	if p.Quantity < 0 || p.Price < 0 || p.WeightKg < 0 || p.Act < 0 || p.Scene < 0 {
		return fmt.Errorf("%w: negative value", ErrInvalidInput)
	}
	if p.Scene > 0 && p.Act == 0 {
		return fmt.Errorf("%w: scene without act", ErrInvalidInput)
	}
	p.Category = NormalizeCategory(p.Category)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	p.Location = strings.TrimSpace(p.Location)
	p.Description = strings.TrimSpace(p.Description)
	p.Tags = NormalizeTags(p.Tags)
	if p.Images == nil {
		p.Images = []Image{}
	}
	return nil
}
