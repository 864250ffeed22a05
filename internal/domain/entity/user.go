package entity

import "time"

// User owns videos; its name and email only feed notification payloads.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}
