package model

import "time"

// Roles stored in the users.role column and embedded in access tokens.
const (
	RoleUser      = "USER"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"
)

// User mirrors the users table. RegionCode is joined in from the regions
// table on reads; availability checks depend on it.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	RegionID     uint64
	RegionCode   string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Region is a geographic sales region. Movies are only sellable in regions
// they are licensed for via movie_regions.
type Region struct {
	ID   uint64
	Code string
	Name string
}
