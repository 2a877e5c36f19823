package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/prperemyshlev/donation-service/internal/dto"
)

func (s *Suite) request(method, path string, body any, token string) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, s.BaseURL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *Suite) decode(resp *http.Response, out any) {
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
}

func (s *Suite) register(name, email string) dto.AuthResponse {
	resp := s.request(http.MethodPost, "/api/auth/register", dto.RegisterRequest{
		Name: name, Email: email, Password: "Password123",
	}, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var auth dto.AuthResponse
	s.decode(resp, &auth)
	return auth
}
