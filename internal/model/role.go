package model

// Role values carried in the access token's "role" claim.  The identity
// provider issues them; this service only reads them.
const (
	RoleStudent = "STUDENT" // regular student; may request reservations
	RoleEntity  = "ENTITY"  // member of a student organisation's board
	RoleAdmin   = "ADMIN"   // university staff approving reservations
)
