package middleware

// identity.go holds the caller identification used by the rate limiter's
// bucket keys. The JWT middleware stores claim values untyped, so the
// helpers here normalize whatever shape the claim arrived in.

import (
    "strconv"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
)

// currentUserID resolves a stable identifier for the authenticated caller,
// or "anon" for unauthenticated requests. It prefers the user_id value set
// by JWTAuth and falls back to the sub claim of a raw token when another
// auth layer stored one under "user".
func currentUserID(c echo.Context) string {
    if s := claimString(c.Get("user_id")); s != "" {
        return s
    }
    if tok, ok := c.Get("user").(*jwt.Token); ok {
        if cl, ok := tok.Claims.(jwt.MapClaims); ok {
            if s := claimString(cl["sub"]); s != "" {
                return s
            }
        }
    }
    return "anon"
}

// claimString renders a JWT claim value as a string. JSON numbers decode as
// float64 and handlers may re-set ids as uint64, so all three shapes occur.
func claimString(v any) string {
    switch t := v.(type) {
    case string:
        return t
    case float64:
        return strconv.FormatUint(uint64(t), 10)
    case uint64:
        return strconv.FormatUint(t, 10)
    }
    return ""
}
