package boards

import "time"

type Board struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	ShowID      *int64    `json:"show_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Lists       []List    `json:"lists,omitempty"`
}

type List struct {
	ID        int64     `json:"id"`
	BoardID   int64     `json:"board_id"`
	Name      string    `json:"name"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Cards     []Card    `json:"cards"`
}

type Card struct {
	ID          int64      `json:"id"`
	BoardID     int64      `json:"board_id"`
	ListID      int64      `json:"list_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Assignees   []int64    `json:"assignees"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Position    int        `json:"position"`
	CreatedBy   int64      `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BoardFilter selects the personal boards of OwnerID plus every board bound to ShowIDs.
type BoardFilter struct {
	OwnerID int64
	ShowIDs []int64
}

// DefaultLists are created with every new board.
var DefaultLists = []string{"To do", "In progress", "Done"}
