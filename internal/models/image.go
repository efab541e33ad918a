package models

import "time"

// Visibility classifies who may see an image in the gallery listings.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the two known visibility tags.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Image is a single uploaded asset row in the images table. OwnerName
// is captured at upload time and never refreshed afterwards.
type Image struct {
	ID         int64      `json:"id"`
	ImageURL   string     `json:"image_url"`
	ImageName  string     `json:"image_name"`
	Permission Visibility `json:"permission"`
	DatePosted time.Time  `json:"date_posted"`
	OwnerName  string     `json:"owner_name"`
	OwnerID    int64      `json:"owner_id"`
}
