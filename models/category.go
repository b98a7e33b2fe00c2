package models

type Category struct {
	Id   string `json:"_id,omitempty"`
	Name string `json:"name" validate:"required,min=3"`
}

func (c Category) EntityID() string { return c.Id }

func (c Category) Validate() error {
	return validate.Struct(c)
}

func (c Category) ExportHeader() []string {
	return []string{"ID", "Name"}
}

func (c Category) ExportRow() []interface{} {
	return []interface{}{c.Id, c.Name}
}
