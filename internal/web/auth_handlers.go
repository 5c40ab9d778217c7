package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/PulseNet/internal/auth"
	"github.com/Skufu/PulseNet/internal/render"
)

type credentialsForm struct {
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required"`
}

func (h *handler) authPage(c *gin.Context) {
	if h.currentSession(c) != nil {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	p, _ := h.page(c, "Sign in")
	c.HTML(http.StatusOK, "auth.html", render.AuthPage{Page: p, SignUp: c.Query("mode") == "signup"})
}

func (h *handler) renderAuth(c *gin.Context, status int, signUp bool, email, msg string) {
	p, _ := h.page(c, "Sign in")
	if msg != "" {
		p.Notice = &render.Notice{Level: "error", Message: msg}
	}
	c.HTML(status, "auth.html", render.AuthPage{Page: p, SignUp: signUp, Email: email})
}

func (h *handler) signIn(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderAuth(c, http.StatusBadRequest, false, form.Email, "Enter a valid email and password")
		return
	}

	s, err := h.deps.Gate.SignIn(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		status, msg := authFailure(err)
		if status == http.StatusBadGateway {
			h.logger.Error().Err(err).Msg("sign in")
		}
		h.renderAuth(c, status, false, form.Email, msg)
		return
	}
	h.setSessionCookie(c, s)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *handler) signUp(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderAuth(c, http.StatusBadRequest, true, form.Email, "Enter a valid email and password")
		return
	}

	res, err := h.deps.Gate.SignUp(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		status, msg := authFailure(err)
		if status == http.StatusBadGateway {
			h.logger.Error().Err(err).Msg("sign up")
		}
		h.renderAuth(c, status, true, form.Email, msg)
		return
	}

	if res.Session == nil {
		p, _ := h.page(c, "Check your email")
		c.HTML(http.StatusOK, "auth.html", render.AuthPage{Page: p, ConfirmationSent: res.ConfirmationSent, Email: form.Email})
		return
	}
	h.setSessionCookie(c, res.Session)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *handler) signOut(c *gin.Context) {
	if s := h.currentSession(c); s != nil {
		if err := h.deps.Gate.SignOut(c.Request.Context(), s); err != nil {
			h.logger.Warn().Err(err).Str("doctor_id", s.UserID).Msg("provider sign out")
		}
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/")
}

func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, auth.ErrEmailNotConfirmed):
		return http.StatusUnauthorized, "Please confirm your email before signing in"
	case errors.Is(err, auth.ErrAccountExists):
		return http.StatusConflict, "An account with this email already exists"
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, "Password must be at least 6 characters"
	}
	return http.StatusBadGateway, "Sign-in service is unavailable. Please try again."
}
