package http

import "github.com/gin-gonic/gin"

// Register mounts the public auth routes on rg. requireUser guards the routes
// acting on the signed-in user; limit throttles the credential endpoints.
func (h *Handler) Register(rg *gin.RouterGroup, requireUser, limit gin.HandlerFunc) {
	creds := rg.Group("", limit)
	creds.POST("/sign-in/email", h.SignInWithEmail)
	creds.POST("/register", h.RegisterWithEmail)
	creds.POST("/password-reset", h.SendPasswordReset)

	rg.GET("/sign-in/google", h.StartGoogleSignIn)
	rg.GET("/google/callback", h.GoogleCallback)
	rg.POST("/logout", h.LogOut)

	user := rg.Group("", requireUser)
	user.POST("/verification", h.SendEmailVerification)
	user.GET("/profile", h.GetProfile)
	user.PUT("/profile", h.UpdateProfile)
	user.POST("/profile/photo", h.UploadPhoto)
	user.PUT("/password", h.UpdatePassword)
}
