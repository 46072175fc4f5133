package user

// Role 用户身份
type Role string

const (
	RoleStudent      Role = "Student"
	RoleCollege      Role = "College"
	RoleProfessional Role = "Professional"
)

// Valid 是否为合法身份；空值表示未设置
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleCollege, RoleProfessional:
		return true
	}
	return false
}

// User 当前登录用户资料
type User struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role,omitempty"`
	IsPremium bool   `json:"isPremium"`
	Avatar    string `json:"avatar,omitempty"`
}

// Patch 资料的部分更新，nil 字段保持不变
type Patch struct {
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty" binding:"omitempty,email"`
	Role      *Role   `json:"role,omitempty" binding:"omitempty,oneof=Student College Professional"`
	IsPremium *bool   `json:"isPremium,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

// Apply 将补丁浅合并到用户资料上
func (p Patch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsPremium != nil {
		u.IsPremium = *p.IsPremium
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	return u
}
