package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/firekit-dev/firekit/internal/auth"
	"github.com/firekit-dev/firekit/internal/auth/domain"
	"github.com/firekit-dev/firekit/internal/auth/session"
)

// SignInWithEmail signs in with email and password and sets the session cookie
func (h *Handler) SignInWithEmail(c *gin.Context) {
	var req emailSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	s, err := h.authService.SignInWithEmail(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, "auth.sign_in_email", err)
		return
	}

	h.setSession(c, s)
	c.JSON(http.StatusOK, newSessionResponse(s))
}

// RegisterWithEmail creates an account, signs it in and sends the verification email
func (h *Handler) RegisterWithEmail(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	s, err := h.authService.RegisterWithEmail(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(c, "auth.register", err)
		return
	}

	h.setSession(c, s)
	c.JSON(http.StatusCreated, newSessionResponse(s))
}

// StartGoogleSignIn redirects to Google's consent screen.
func (h *Handler) StartGoogleSignIn(c *gin.Context) {
	if h.google == nil {
		writeError(c, "auth.google_start", domain.ErrGoogleSignInDisabled)
		return
	}

	state := uuid.NewString()
	if err := h.states.SaveState(c.Request.Context(), state, safeReturnPath(c.Query("return_to"))); err != nil {
		writeError(c, "auth.google_start", err)
		return
	}
	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

// GoogleCallback completes the Google code flow and signs the user in.
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		writeError(c, "auth.google_callback", domain.ErrGoogleSignInDisabled)
		return
	}
	ctx := c.Request.Context()

	returnTo, err := h.states.ConsumeState(ctx, c.Query("state"))
	if err != nil {
		writeError(c, "auth.google_callback", err)
		return
	}
	if e := c.Query("error"); e != "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": e})
		return
	}

	idToken, err := h.google.Exchange(ctx, c.Query("code"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "google sign-in failed"})
		return
	}

	s, err := h.authService.SignInWithGoogle(ctx, idToken, h.google.RedirectURL())
	if err != nil {
		writeError(c, "auth.sign_in_google", err)
		return
	}

	h.setSession(c, s)
	c.Redirect(http.StatusFound, returnTo)
}

// LogOut ends the session and sends the browser to the sign-in page.
func (h *Handler) LogOut(c *gin.Context) {
	if err := h.authService.LogOut(c.Request.Context(), auth.CurrentUser(c), auth.SessionID(c)); err != nil {
		writeError(c, "auth.log_out", err)
		return
	}
	session.ClearCookie(c.Writer, h.opts.Cookie)
	c.Redirect(http.StatusSeeOther, h.opts.SignInPath)
}

func (h *Handler) SendPasswordReset(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := h.authService.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, "auth.password_reset", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SendEmailVerification(c *gin.Context) {
	if err := h.authService.SendEmailVerificationToUser(c.Request.Context(), auth.CurrentUser(c)); err != nil {
		writeError(c, "auth.send_verification", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) setSession(c *gin.Context, s *domain.Session) {
	session.SetCookie(c.Writer, s.SessionID, s.ExpiresAt, h.opts.Cookie)
}

// safeReturnPath only allows local absolute paths.
func safeReturnPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
