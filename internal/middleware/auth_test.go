package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/minhngodev/campus-api/internal/model"
	"github.com/stretchr/testify/assert"
)

func performWithRole(t *testing.T, role interface{}, guard gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/guarded", func(c *gin.Context) {
		if role != nil {
			c.Set("role", role)
		}
	}, guard, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	guard := RequireRoles(model.RoleAdmin, model.RoleStaff)

	assert.Equal(t, http.StatusOK, performWithRole(t, model.RoleStaff, guard).Code)
	assert.Equal(t, http.StatusOK, performWithRole(t, model.RoleAdmin, guard).Code)
}

func TestRequireRolesRejectsOtherRole(t *testing.T) {
	guard := RequireRoles(model.RoleAdmin, model.RoleStaff)

	assert.Equal(t, http.StatusForbidden, performWithRole(t, model.RoleStudent, guard).Code)
}

func TestRequireRolesRejectsMissingRole(t *testing.T) {
	guard := RequireRoles(model.RoleAdmin)

	assert.Equal(t, http.StatusForbidden, performWithRole(t, nil, guard).Code)
}
