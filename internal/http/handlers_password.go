package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// genericResetMessage is returned for every forgot-password request so
// the endpoint cannot be used to probe which emails are registered.
const genericResetMessage = "If an account with that email exists, a reset link has been sent."

type forgotPasswordReq struct {
	Email string `json:"email"`
}

// @Summary Request a password reset link
// @Tags password
// @Accept json
// @Produce json
// @Param input body forgotPasswordReq true "Email"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /password/forgot [post]
func (s *Server) forgotPassword(c *gin.Context) {
	var req forgotPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Email is required"})
		return
	}
	if err := s.passwords.RequestReset(c, req.Email); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": genericResetMessage})
}

type verifyResetTokenReq struct {
	Token string `json:"token"`
}

// @Summary Verify a password reset token
// @Tags password
// @Accept json
// @Produce json
// @Param input body verifyResetTokenReq true "Raw token"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /password/verify-token [post]
func (s *Server) verifyResetToken(c *gin.Context) {
	var req verifyResetTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Reset token is required"})
		return
	}
	email, err := s.passwords.VerifyToken(c, req.Token)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Token is valid", "email": email})
}

type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// @Summary Set a new password using a reset token
// @Tags password
// @Accept json
// @Produce json
// @Param input body resetPasswordReq true "Token and new password"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /password/reset [post]
func (s *Server) resetPassword(c *gin.Context) {
	var req resetPasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Token and new password are required"})
		return
	}
	if err := s.passwords.Reset(c, req.Token, req.NewPassword); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Password reset successful."})
}
