package domain

import (
	"sort"
	"strings"
	"time"
)

// Contact is a person we follow up with
type Contact struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Name            string     `json:"name" gorm:"not null"`
	Email           string     `json:"email" gorm:"index"`
	Company         string     `json:"company"`
	Phone           string     `json:"phone"`
	Timezone        string     `json:"timezone"`
	Tags            string     `json:"tags"`
	Notes           string     `json:"notes"`
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Actions []Action `json:"actions,omitempty" gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE"`
}

// NextAction returns the earliest pending action by due date. Actions without
// a due date come after every dated one. Returns nil when nothing is pending.
func (c *Contact) NextAction() *Action {
	var next *Action
	for i := range c.Actions {
		a := &c.Actions[i]
		if a.Status != ActionStatusPending {
			continue
		}
		if next == nil || a.dueBefore(next) {
			next = a
		}
	}
	return next
}

// Matches reports whether q is a case-insensitive substring of name, email or company
func (c *Contact) Matches(q string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	for _, field := range []string{c.Name, c.Email, c.Company} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// SortByNextAction orders contacts by next action due date ascending, contacts
// with nothing pending last, ties broken by case-insensitive name.
func SortByNextAction(contacts []*Contact) {
	type key struct {
		due  *time.Time
		name string
	}
	keys := make(map[*Contact]key, len(contacts))
	for _, c := range contacts {
		k := key{name: strings.ToLower(c.Name)}
		if next := c.NextAction(); next != nil {
			k.due = next.DueDate
		}
		keys[c] = k
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := keys[contacts[i]], keys[contacts[j]]
		switch {
		case a.due != nil && b.due != nil && !a.due.Equal(*b.due):
			return a.due.Before(*b.due)
		case a.due != nil && b.due == nil:
			return true
		case a.due == nil && b.due != nil:
			return false
		}
		return a.name < b.name
	})
}
