package user

type RegisterInput struct {
	Name     string `json:"name" form:"name" binding:"required" example:"Jane Doe"`
	Email    string `json:"email" form:"email" binding:"required" example:"jane@example.com"`
	Password string `json:"password" form:"password" binding:"required" example:"password123"`
}

type LoginInput struct {
	Email    string `json:"email" form:"email" binding:"required" example:"jane@example.com"`
	Password string `json:"password" form:"password" binding:"required" example:"password123"`
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword" form:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" form:"newPassword" binding:"required"`
}

type SetStatusInput struct {
	IsActive *bool `json:"isActive" binding:"required" example:"false"`
}

// Tokens is returned by login and refresh.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginResult struct {
	User User `json:"user"`
	Tokens
}
