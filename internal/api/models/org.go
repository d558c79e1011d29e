package models

// Organization represents an organization record.
type Organization struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Plan  string  `json:"plan"`
	Notes *string `json:"notes,omitempty"`

	// ServedBy names the data-store provider that answered the request.
	ServedBy string `json:"servedBy,omitempty"`

	CreatedAt Timestamp `json:"createdAt"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// OrganizationCreateRequest is the payload for creating an organization.
type OrganizationCreateRequest struct {
	Name  string  `json:"name"`
	Plan  string  `json:"plan,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// OrganizationUpdateRequest is the payload for updating an organization.
// All fields are optional; only provided fields are applied.
type OrganizationUpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Plan  *string `json:"plan,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// PagedOrganizations is a paginated list of organizations.
type PagedOrganizations struct {
	Items []Organization    `json:"items"`
	Meta  PagedResponseMeta `json:"meta"`
}
