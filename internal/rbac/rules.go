package rbac

// Roles stored in users.role.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Permissions checked by the router.
const (
	PermCollegeWrite = "college:write"
	PermQuizTake     = "quiz:take"
	PermQuizResults  = "quiz:results"
	PermProfileEdit  = "profile:edit"
)

var RolePermissions = map[string][]string{
	RoleStudent: {
		"quiz:*",
		PermProfileEdit,
	},
	RoleAdmin: {
		"*",
	},
}
