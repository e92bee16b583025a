package auth

// Built-in role names. Role names are stored upper-case.
const (
	// RoleAdmin administers the whole community area.
	RoleAdmin = "ADMIN"
	// RoleInscrito is granted when a registration is approved.
	RoleInscrito = "INSCRITO"
	// RoleVisitante is the default role of a new account.
	RoleVisitante = "VISITANTE"
)

// Built-in permission codes seeded on first start.
const (
	// PermAdministrar allows everything in the administrative area.
	PermAdministrar = "administrar"
	// PermManageUsers allows managing accounts and their role assignments.
	PermManageUsers = "manage_users"
	// PermManageRoles allows managing roles, permissions and resource requirements.
	PermManageRoles = "manage_roles"
	// PermManageCourses allows creating and editing courses.
	PermManageCourses = "manage_courses"
	// PermManagePosts allows creating, editing and deleting posts.
	PermManagePosts = "manage_posts"
	// PermManagePolls allows creating and closing polls.
	PermManagePolls = "manage_polls"
	// PermManageEvents allows editing the calendar.
	PermManageEvents = "manage_events"
	// PermManageRegistrations allows approving and deleting registrations.
	PermManageRegistrations = "manage_registrations"
	// PermViewAudit allows reading the decision audit log.
	PermViewAudit = "view_audit"
	// PermCentralAccess allows entering the members area.
	PermCentralAccess = "central_access"
)
