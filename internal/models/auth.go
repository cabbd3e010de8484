package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access token payload issued by the auth service.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	SchoolID string   `json:"school_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// RequestContext carries the verified actor and tenant into every operation.
type RequestContext struct {
	TeacherID string
	SchoolID  string
	Role      UserRole
}

// Valid reports whether the context identifies both an actor and a school.
func (rc RequestContext) Valid() bool {
	return rc.TeacherID != "" && rc.SchoolID != ""
}

// IsAdmin reports whether the actor administers the school.
func (rc RequestContext) IsAdmin() bool {
	return rc.Role == RoleAdmin || rc.Role == RoleSuperAdmin
}

// RequestContextFromClaims builds a RequestContext from verified claims.
func RequestContextFromClaims(claims *JWTClaims) RequestContext {
	if claims == nil {
		return RequestContext{}
	}
	return RequestContext{TeacherID: claims.UserID, SchoolID: claims.SchoolID, Role: claims.Role}
}
