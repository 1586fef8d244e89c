package model

import "time"

// DateLayout is the calendar date format used for FoodLog dates.
const DateLayout = "2006-01-02"

// FoodLog records that a user consumed a food item on a given day.
// IsHealthy is copied from the food item when the log is created and is never
// updated afterwards.
type FoodLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	FoodID    uint      `json:"food_id" gorm:"not null;index"`
	Date      time.Time `json:"date" gorm:"type:date;not null;index"`
	IsHealthy bool      `json:"is_healthy" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User      `json:"-" gorm:"foreignKey:UserID"`
	Food *FoodItem `json:"food,omitempty" gorm:"foreignKey:FoodID"`
}

// Day returns the calendar date of t (in t's location) as midnight UTC, which is
// how FoodLog dates are stored.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
