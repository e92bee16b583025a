package role

type createInput struct {
	Name        string   `json:"name" validate:"required,min=1,max=100"`
	DisplayName string   `json:"display_name" validate:"max=100"`
	Description string   `json:"description" validate:"max=255"`
	Color       string   `json:"color" validate:"omitempty,hexcolor"`
	Permissions []string `json:"permissions" validate:"dive,required,max=100"`
}

type updateInput struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
	Color       *string `json:"color" validate:"omitempty,hexcolor"`
}

type permissionsInput struct {
	Permissions []string `json:"permissions" validate:"dive,required,max=100"`
}
