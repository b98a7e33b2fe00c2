package models

type Brand struct {
	Id   string `json:"_id,omitempty"`
	Name string `json:"name" validate:"required,min=3"`
}

func (b Brand) EntityID() string { return b.Id }

func (b Brand) Validate() error {
	return validate.Struct(b)
}

func (b Brand) ExportHeader() []string {
	return []string{"ID", "Name"}
}

func (b Brand) ExportRow() []interface{} {
	return []interface{}{b.Id, b.Name}
}
