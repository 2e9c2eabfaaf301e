package project

type CreateProjectInput struct {
	Name        string `json:"name" form:"name" binding:"required" example:"Customer Portal Revamp"`
	Description string `json:"description" form:"description" example:"Rebuild of the customer portal"`
	Key         string `json:"key" form:"key" example:"CPR"`
}

// AddMemberInput identifies the user by id or email.
type AddMemberInput struct {
	UserID uint   `json:"userId" form:"userId" example:"2"`
	Email  string `json:"email" form:"email" example:"dev@example.com"`
	Role   string `json:"role" form:"role" example:"member"`
}

type ChangeRoleInput struct {
	Role string `json:"role" form:"role" binding:"required" example:"admin"`
}
