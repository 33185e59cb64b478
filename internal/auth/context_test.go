package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/firekit-dev/firekit/internal/auth/domain"
)

func TestCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Nil(t, CurrentUser(c))
	assert.Equal(t, "", UserFirebaseUID(c))

	SetCurrentUser(c, &domain.CurrentUser{UID: "u1", IDToken: "tok"}, "sess-1")
	assert.Equal(t, "u1", CurrentUser(c).UID)
	assert.Equal(t, "u1", UserFirebaseUID(c))
	assert.Equal(t, "sess-1", SessionID(c))
}
