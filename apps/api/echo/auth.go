package echoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/certify/core"
	"github.com/trezcool/certify/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsLearner    bool     `json:"is_learner,omitempty"`
	IsInstructor bool     `json:"is_instructor,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

type authenticator struct {
	conf      *core.Config
	users     *user.Service
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, users *user.Service) *authenticator {
	return &authenticator{
		conf:  conf,
		users: users,
		jwtConfig: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  "Learners",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		IsLearner:    usr.IsLearner(),
		IsInstructor: usr.IsInstructor(),
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *authenticator) parseToken(raw string) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(raw, new(Claims), func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != a.jwtConfig.SigningMethod {
			return nil, fmt.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return a.jwtConfig.SigningKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errUnauthorized
	}
	return token, nil
}

func (a *authenticator) sessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     a.conf.Server.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(a.conf.Server.JWTExpirationDelta),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionMiddleware authenticates page requests from the session cookie.
// Anonymous requests go through unchanged.
func (a *authenticator) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		cookie, err := ctx.Cookie(a.conf.Server.SessionCookie)
		if err != nil || cookie.Value == "" {
			return next(ctx)
		}
		token, err := a.parseToken(cookie.Value)
		if err != nil {
			return next(ctx)
		}
		ctx.Set(contextTokenKey, token)
		if _, err = a.contextUser(ctx); err != nil {
			// stale session: the user is gone or deactivated
			ctx.Set(contextTokenKey, nil)
		}
		return next(ctx)
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func (a *authenticator) contextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := a.users.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// pageUser returns the logged-in user of a page request, nil for anonymous visitors.
func pageUser(ctx echo.Context) *user.User {
	if _, err := getContextClaims(ctx); err != nil {
		return nil
	}
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return &usr
	}
	return nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := a.contextUser(ctx)
	if err != nil {
		return "", err
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(a.conf, GetUserClaims(a.conf, usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
