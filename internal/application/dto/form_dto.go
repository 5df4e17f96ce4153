package dto

// SetFieldsRequest entradas del usuario en un formulario abierto.
type SetFieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// FormResponse estado de un formulario de alta.
type FormResponse struct {
	ID         string            `json:"id"`
	Category   string            `json:"category"`
	Values     map[string]string `json:"values"`
	Trigger    string            `json:"trigger,omitempty"`
	Loading    bool              `json:"loading"`
	Source     string            `json:"source,omitempty"`
	Generation uint64            `json:"generation"`
}
