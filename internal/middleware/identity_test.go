package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
)

func identityContext() echo.Context {
    req := httptest.NewRequest(http.MethodGet, "/", nil)
    return echo.New().NewContext(req, httptest.NewRecorder())
}

func TestCurrentUserIDClaimShapes(t *testing.T) {
    c := identityContext()
    assert.Equal(t, "anon", currentUserID(c))

    c.Set("user_id", "42") // string claim straight from JWTAuth
    assert.Equal(t, "42", currentUserID(c))

    c = identityContext()
    c.Set("user_id", float64(7)) // JSON-decoded numeric claim
    assert.Equal(t, "7", currentUserID(c))

    c = identityContext()
    c.Set("user_id", uint64(9)) // re-set by a handler after type assertion
    assert.Equal(t, "9", currentUserID(c))
}

func TestCurrentUserIDTokenFallback(t *testing.T) {
    c := identityContext()
    tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-3"})
    c.Set("user", tok)
    assert.Equal(t, "user-3", currentUserID(c))
}
