package models

import "time"

type GenericResponse struct {
	Message string `json:"message"`
}

// FieldError describes one rejected field of an entity.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationResponse struct {
	Message string       `json:"message"`
	Detail  []FieldError `json:"detail,omitempty"`
}

// ImageUpload is returned after a product image was stored.
type ImageUpload struct {
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	SizeHuman   string `json:"size_human"`
	ContentType string `json:"content_type"`
	URL         string `json:"url,omitempty"`
}

// AuditEntry is one journaled admin intent.
type AuditEntry struct {
	CreatedAt time.Time `json:"created_at"`
	Id        string    `json:"id"`
	Resource  string    `json:"resource"`
	Operation string    `json:"operation"`
	EntityId  string    `json:"entity_id"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message"`
	RequestId string    `json:"request_id"`
}
