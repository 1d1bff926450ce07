package models

import "time"

// Metadata is the semantic name and description generated for an image
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewRecord is the input to record creation
type NewRecord struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageBase64 string  `json:"imageBase64"`
	Quantity    int     `json:"quantity"`
	Parent      *string `json:"parent,omitempty"`
}

// Record is a created catalog record
type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageBase64 string    `json:"imageBase64,omitempty"`
	Quantity    int       `json:"quantity"`
	ParentID    *string   `json:"parentId,omitempty"`
	VisualCode  string    `json:"visualCode"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Container is a record that other records can be placed into,
// addressed by its printed visual code
type Container struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	VisualCode string `json:"visualCode"`
}

// AsContainer projects a record onto its container view
func (r Record) AsContainer() Container {
	return Container{ID: r.ID, Name: r.Name, VisualCode: r.VisualCode}
}

// SimilarRecord is a similarity search hit
type SimilarRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	VisualCode  string  `json:"visualCode"`
	Similarity  float64 `json:"similarity"`
}
