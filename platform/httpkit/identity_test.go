package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func testContext(userID any, roles []string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != nil {
		c.Set(ContextUserIDKey, userID)
	}
	if roles != nil {
		c.Set(ContextRolesKey, roles)
	}
	return c, rec
}

func TestJurorScope(t *testing.T) {
	jurorID := uuid.New()

	c, _ := testContext(jurorID, []string{RoleJuror})
	scope := GetIdentity(c).JurorScope()
	if scope == nil || *scope != jurorID {
		t.Fatalf("juror must be scoped to their own id, got %v", scope)
	}

	c, _ = testContext(uuid.New(), []string{RoleJuror, RoleManager})
	if id := GetIdentity(c); !id.IsManager() || id.JurorScope() != nil {
		t.Fatal("managers see every juror's rows")
	}
}

func TestMustGetIdentityRejectsMissingUser(t *testing.T) {
	for name, userID := range map[string]any{"missing": nil, "wrong type": "not-a-uuid", "nil uuid": uuid.Nil} {
		t.Run(name, func(t *testing.T) {
			c, rec := testContext(userID, nil)
			if MustGetIdentity(c) != nil {
				t.Fatal("expected nil identity")
			}
			if rec.Code != http.StatusUnauthorized || !c.IsAborted() {
				t.Fatalf("expected aborted 401, got %d", rec.Code)
			}
		})
	}
}
