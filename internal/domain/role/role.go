package role

import "time"

// Role links users to permissions. Both lists keep insertion order and may
// hold duplicates; removal drops every occurrence.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Users       []string  `json:"users"`
	Permissions []int64   `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required,min=2,max=100"`
	Users       []string `json:"users" binding:"omitempty,dive,required"`
	Permissions []int64  `json:"permissions" binding:"omitempty,dive,gte=0"`
}

// UpdateRoleRequest replaces only the fields that are present. The id is
// never updatable.
type UpdateRoleRequest struct {
	Name        *string   `json:"name" binding:"omitempty,min=2,max=100"`
	Users       *[]string `json:"users"`
	Permissions *[]int64  `json:"permissions"`
}

func (p UpdateRoleRequest) Empty() bool {
	return p.Name == nil && p.Users == nil && p.Permissions == nil
}

// Apply returns r with the patch applied.
func (p UpdateRoleRequest) Apply(r Role) Role {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Users != nil {
		r.Users = append([]string{}, (*p.Users)...)
	}
	if p.Permissions != nil {
		r.Permissions = append([]int64{}, (*p.Permissions)...)
	}
	return r
}

func RemoveAllInt(list []int64, v int64) []int64 {
	out := make([]int64, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func RemoveAllString(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
