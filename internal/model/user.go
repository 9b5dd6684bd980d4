package model

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// User roles as displayed by the console.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// User account states as displayed by the console.
const (
	UserActive   = "Active"
	UserInactive = "Inactive"
)

// superAdminEmail is always shown with the Admin role.
const superAdminEmail = "admin@email.com"

// User is a registered account as cached by the console.
type User struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	Avatar   string `json:"avatar"`
}

type userWire struct {
	ID       json.RawMessage `json:"id"`
	MongoID  json.RawMessage `json:"_id"`
	FullName string          `json:"fullName"`
	Email    string          `json:"email"`
	Role     string          `json:"role"`
	Status   string          `json:"status"`
	IsActive *bool           `json:"isActive"`
	Avatar   string          `json:"avatar"`
}

// DecodeUser converts one raw JSON record into a User, deriving the
// display role and status the way the admin console always has.
func DecodeUser(raw []byte) (User, error) {
	var w userWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return User{}, fmt.Errorf("decoding user: %w", err)
	}

	id := rawID(w.ID)
	if id == "" {
		id = rawID(w.MongoID)
	}
	if id == "" {
		return User{}, ErrMissingID
	}

	status := w.Status
	if status == "" {
		status = UserActive
		if w.IsActive != nil && !*w.IsActive {
			status = UserInactive
		}
	}

	role := firstNonEmpty(w.Role, RoleUser)
	if strings.EqualFold(w.Email, superAdminEmail) || w.Role == "super_admin" {
		role = RoleAdmin
	}

	name := firstNonEmpty(w.FullName, "Unknown User")

	avatar := w.Avatar
	if avatar == "" {
		avatar = placeholderAvatar(w.FullName)
	}

	return User{
		ID:       id,
		FullName: name,
		Email:    w.Email,
		Role:     role,
		Status:   status,
		Avatar:   avatar,
	}, nil
}

func placeholderAvatar(name string) string {
	if name == "" {
		name = "User"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=random"
}
