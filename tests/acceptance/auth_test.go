package acceptance

import (
	"net/http"

	"github.com/prperemyshlev/donation-service/internal/dto"
)

func (s *Suite) TestRegister_Success() {
	auth := s.register("Ada", "ada@example.com")

	s.NotEmpty(auth.Token)
	s.Equal("Bearer", auth.TokenType)
	s.NotZero(auth.ExpiresIn)
	s.Equal("ada@example.com", auth.User.Email)
	s.Equal("user", auth.User.Role)
	s.NotEmpty(auth.User.ID)
}

func (s *Suite) TestRegister_DuplicateEmail() {
	s.register("Ada", "duplicate@example.com")

	resp := s.request(http.MethodPost, "/api/auth/register", dto.RegisterRequest{
		Name: "Ada Again", Email: "DUPLICATE@example.com", Password: "Password123",
	}, "")
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *Suite) TestLogin() {
	s.register("Ada", "login@example.com")

	resp := s.request(http.MethodPost, "/api/auth/login", dto.LoginRequest{
		Email: "login@example.com", Password: "WrongPassword1",
	}, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.request(http.MethodPost, "/api/auth/login", dto.LoginRequest{
		Email: "Login@Example.com", Password: "Password123",
	}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var auth dto.AuthResponse
	s.decode(resp, &auth)

	resp = s.request(http.MethodGet, "/api/auth/me", nil, auth.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var me dto.UserResponse
	s.decode(resp, &me)
	s.Equal(auth.User.ID, me.ID)
}

func (s *Suite) TestPasswordReset() {
	s.register("Ada", "reset@example.com")

	resp := s.request(http.MethodPost, "/api/password-reset/forgot-password", dto.ForgotPasswordRequest{Email: "reset@example.com"}, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	account, err := s.Repos.Account.GetByEmail(s.T().Context(), "reset@example.com")
	s.Require().NoError(err)
	s.Require().NotNil(account.ResetOTP)
	code := *account.ResetOTP

	reset := dto.ResetPasswordRequest{Email: "reset@example.com", OTP: code, NewPassword: "BrandNew123"}
	resp = s.request(http.MethodPost, "/api/password-reset/reset-password", reset, "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp = s.request(http.MethodPost, "/api/password-reset/reset-password", reset, "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp = s.request(http.MethodPost, "/api/auth/login", dto.LoginRequest{Email: "reset@example.com", Password: "BrandNew123"}, "")
	s.Equal(http.StatusOK, resp.StatusCode)
}
