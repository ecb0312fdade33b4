package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/registrar/core"
)

var (
	jwtContextKey    = "userToken"
	jwtSigningMethod = middleware.AlgorithmHS256
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: jwtSigningMethod,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
// Users are managed elsewhere, the subject is the user's ID there.
type Claims struct {
	jwt.StandardClaims
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	IsTeacher bool     `json:"is_teacher,omitempty"` // -> TEACHER PORTAL
	IsAdmin   bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	Roles     []string `json:"roles,omitempty"`
}

func GetUserClaims(conf *core.Config, subject, username, email string, roles []string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   subject,
			Audience:  "Academia",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username:  username,
		Email:     email,
		IsTeacher: core.IsTeacher(roles),
		IsAdmin:   core.IsAdmin(roles),
		Roles:     roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(jwtSigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errTokenSigningFailed
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextPerson returns the authenticated caller, for the logs.
func contextPerson(ctx echo.Context) core.Person {
	var p core.Person
	if claims, err := getContextClaims(ctx); err == nil {
		p.ID = claims.Subject
		p.Username = claims.Username
		p.Email = claims.Email
	}
	return p
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		for _, role := range roles {
			for _, r := range claims.Roles {
				if r == role {
					return true
				}
			}
		}
	}
	return false
}
