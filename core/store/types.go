package store

import (
	"errors"
	"time"
)

var (
	// ErrVersionConflict is returned by optimistic updates when the stored version moved on.
	ErrVersionConflict = errors.New("version conflict")
	ErrDuplicate       = errors.New("duplicate")
	ErrLimitReached    = errors.New("limit reached")
)

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Salt         string     `json:"-"`
	PasswordSet  bool       `json:"password_set"`
	Active       bool       `json:"active"`
	Plan         string     `json:"plan"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type UserWithRoles struct {
	User
	Roles []string `json:"roles"`
}

type SessionRecord struct {
	ID         string
	UserID     int64
	Username   string
	Roles      []string
	IP         string
	UserAgent  string
	CSRFToken  string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time
	Revoked    bool
	RevokedAt  *time.Time
	RevokedBy  string
}

const (
	ShowStatusActive   = "active"
	ShowStatusArchived = "archived"
)

type Scene struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

type Act struct {
	Number int     `json:"number"`
	Name   string  `json:"name"`
	Scenes []Scene `json:"scenes"`
}

type Show struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Venue       string     `json:"venue"`
	Company     string     `json:"company"`
	StartsOn    *time.Time `json:"starts_on,omitempty"`
	EndsOn      *time.Time `json:"ends_on,omitempty"`
	Status      string     `json:"status"`
	Acts        []Act      `json:"acts"`
	LogoKey     string     `json:"logo_key,omitempty"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ShowMember struct {
	ID        int64     `json:"id"`
	ShowID    int64     `json:"show_id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	RoleID    string    `json:"role_id"`
	AddedBy   int64     `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

type PackList struct {
	ID          int64           `json:"id"`
	ShowID      int64           `json:"show_id"`
	OwnerID     int64           `json:"owner_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CreatedBy   int64           `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Containers  []PackContainer `json:"containers,omitempty"`
}

type PackContainer struct {
	ID          int64           `json:"id"`
	PackListID  int64           `json:"pack_list_id"`
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	MaxWeightKg float64         `json:"max_weight_kg"`
	Location    string          `json:"location"`
	Notes       string          `json:"notes"`
	Position    int             `json:"position"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Props       []ContainerProp `json:"props"`

	// Totals are derived on read.
	TotalWeightKg float64 `json:"total_weight_kg"`
	OverWeight    bool    `json:"over_weight"`
}

type ContainerProp struct {
	ID          int64     `json:"id"`
	ContainerID int64     `json:"container_id"`
	PropID      int64     `json:"prop_id"`
	PropName    string    `json:"prop_name"`
	WeightKg    float64   `json:"weight_kg"`
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	ShoppingPending   = "pending"
	ShoppingApproved  = "approved"
	ShoppingRejected  = "rejected"
	ShoppingPurchased = "purchased"
	ShoppingPickedUp  = "picked_up"
)

type ShoppingItem struct {
	ID               int64            `json:"id"`
	ShowID           int64            `json:"show_id"`
	Type             string           `json:"type"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	Quantity         int              `json:"quantity"`
	Budget           float64          `json:"budget"`
	Status           string           `json:"status"`
	SelectedOptionID *int64           `json:"selected_option_id,omitempty"`
	RequestedBy      int64            `json:"requested_by"`
	DecidedBy        int64            `json:"decided_by,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Options          []ShoppingOption `json:"options"`
}

type ShoppingOption struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	Shop      string    `json:"shop"`
	URL       string    `json:"url"`
	Price     float64   `json:"price"`
	Notes     string    `json:"notes"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type ShoppingFilter struct {
	Type   string
	Status string
}

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRevoked  = "revoked"
)

type Invitation struct {
	ID         int64      `json:"id"`
	TokenID    string     `json:"-"`
	ShowID     int64      `json:"show_id"`
	Email      string     `json:"email"`
	RoleID     string     `json:"role_id"`
	InvitedBy  int64      `json:"invited_by"`
	Status     string     `json:"status"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedBy *int64     `json:"accepted_by,omitempty"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

const (
	FeedbackNew     = "new"
	FeedbackTriaged = "triaged"
	FeedbackClosed  = "closed"
)

type Feedback struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
	Page          string    `json:"page"`
	ScreenshotKey string    `json:"screenshot_key,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Counter struct {
	UserID    int64     `json:"user_id"`
	Resource  string    `json:"resource"`
	ScopeID   int64     `json:"scope_id"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
