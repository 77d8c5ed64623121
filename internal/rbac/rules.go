package rbac

// Default policy. Taking the quiz is public and needs no permission;
// guests can list their own submissions but cannot reconcile a deferred
// submission onto an account or save careers.
var RolePermissions = map[string][]string{
	"guest": {
		"submission:view-own",
	},
	"student": {
		"quiz:reconcile",
		"submission:view-own",
		"career:save",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
