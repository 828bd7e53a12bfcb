package model

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

type Team struct {
	ID      string        `json:"team_id"`
	Name    string        `json:"team_name" validate:"required"`
	Quorum  int           `json:"quorum" validate:"required,min=1"`
	Members []*TeamMember `json:"members" validate:"required,min=1,dive"`
}

type TeamMember struct {
	UserID   string     `json:"user_id" validate:"required"`
	Username string     `json:"username" validate:"required"`
	Email    string     `json:"email" validate:"required,email"`
	Role     MemberRole `json:"role" validate:"required,oneof=owner member"`
	IsActive bool       `json:"is_active"`
}
