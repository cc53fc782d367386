package models

// Store is a storefront owned by a tenant. Public stores expose their active
// products through the storefront endpoints, addressed by slug.
type Store struct {
	TenantModel

	Name        string `json:"name" db:"name"`
	Slug        string `json:"slug" db:"slug"`
	Description string `json:"description,omitempty" db:"description"`

	IsPublic bool `json:"isPublic" db:"is_public"`
}
