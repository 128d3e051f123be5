package domain

import "time"

// Member is a campus user. The identity system owns this table; the core
// reads it for mention resolution and display only.
type Member struct {
	UserID        string    `gorm:"column:user_id;primaryKey;size:64" json:"user_id"`
	Username      string    `gorm:"column:username;uniqueIndex;size:64" json:"username"`
	StudentNumber string    `gorm:"column:student_number;index;size:32" json:"student_number,omitempty"`
	DisplayName   string    `gorm:"column:display_name;size:128" json:"display_name"`
	Email         string    `gorm:"column:email;size:255" json:"email,omitempty"`
	Role          string    `gorm:"column:role;size:32" json:"role"` // student, teacher, staff, admin
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Member) TableName() string {
	return "members"
}
