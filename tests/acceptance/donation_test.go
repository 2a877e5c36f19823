package acceptance

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prperemyshlev/donation-service/internal/domain"
	"github.com/prperemyshlev/donation-service/internal/dto"
	"github.com/prperemyshlev/donation-service/internal/testutil"
	"github.com/shopspring/decimal"
)

const initializePath = "/api/donate/initialize?origin_url=https://give.example.org"

func (s *Suite) TestDonation_Lifecycle() {
	auth := s.register("Ada", "donor@example.com")

	resp := s.request(http.MethodPost, initializePath, dto.InitializeDonationRequest{
		Amount: decimal.RequireFromString("42.50"), Currency: "EUR",
	}, auth.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var initialized dto.InitializeDonationResponse
	s.decode(resp, &initialized)
	s.Gateway.Script(initialized.SessionID, domain.GatewayNoStatusYet, domain.GatewayPaid)

	resp = s.request(http.MethodGet, "/api/donate/verify/"+initialized.SessionID, nil, auth.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var verified dto.VerifyDonationResponse
	s.decode(resp, &verified)
	s.Equal("pending", verified.Status)

	resp = s.request(http.MethodGet, "/api/donate/verify/"+initialized.SessionID, nil, auth.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.decode(resp, &verified)
	s.Equal("success", verified.Status)
	s.True(decimal.RequireFromString("42.50").Equal(verified.Amount))
	s.Equal("eur", verified.Currency)

	resp = s.request(http.MethodGet, "/api/user/profile", nil, auth.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var profile dto.ProfileResponse
	s.decode(resp, &profile)
	s.Len(profile.DonationHistory.Donations, 1)
	s.Equal("42.50", profile.DonationHistory.TotalDonated["eur"].StringFixed(2))

	events, err := s.Repos.DonationEvent.ListByDonation(s.T().Context(), initialized.DonationID)
	s.Require().NoError(err)
	s.Len(events, 2)
}

func (s *Suite) TestDonation_ConcurrentVerifyRecordsOneTransition() {
	auth := s.register("Ada", "race@example.com")

	resp := s.request(http.MethodPost, initializePath, dto.InitializeDonationRequest{
		Amount: decimal.NewFromInt(10), Currency: "usd",
	}, auth.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var initialized dto.InitializeDonationResponse
	s.decode(resp, &initialized)
	s.Gateway.Script(initialized.SessionID, domain.GatewayPaid)

	var wg sync.WaitGroup
	statuses := make([]int, 6)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, s.BaseURL+"/api/donate/verify/"+initialized.SessionID, nil)
			req.Header.Set("Authorization", "Bearer "+auth.Token)
			r, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			statuses[i] = r.StatusCode
			_ = r.Body.Close()
		}(i)
	}
	wg.Wait()

	for _, code := range statuses {
		s.Equal(http.StatusOK, code)
	}

	stored, err := s.Repos.Donation.GetBySessionRef(s.T().Context(), initialized.SessionID)
	s.Require().NoError(err)
	s.Equal(domain.DonationSuccess, stored.Status)

	events, err := s.Repos.DonationEvent.ListByDonation(s.T().Context(), initialized.DonationID)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *Suite) TestDonation_Webhook() {
	auth := s.register("Ada", "hook@example.com")

	resp := s.request(http.MethodPost, initializePath, dto.InitializeDonationRequest{
		Amount: decimal.NewFromInt(5), Currency: "gbp",
	}, auth.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var initialized dto.InitializeDonationResponse
	s.decode(resp, &initialized)
	s.Gateway.Script(initialized.SessionID, domain.GatewayPaymentFailed)

	req, err := http.NewRequest(http.MethodPost, s.BaseURL+"/api/webhook/stripe", strings.NewReader(initialized.SessionID))
	s.Require().NoError(err)
	req.Header.Set("Stripe-Signature", testutil.WebhookSignature)
	hook, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer hook.Body.Close()
	s.Equal(http.StatusOK, hook.StatusCode)

	stored, err := s.Repos.Donation.GetBySessionRef(s.T().Context(), initialized.SessionID)
	s.Require().NoError(err)
	s.Equal(domain.DonationFailed, stored.Status)
}

func (s *Suite) TestDonation_HiddenFromOtherDonors() {
	owner := s.register("Ada", "owner@example.com")
	other := s.register("Bob", "other@example.com")

	resp := s.request(http.MethodPost, initializePath, dto.InitializeDonationRequest{
		Amount: decimal.NewFromInt(5), Currency: "usd",
	}, owner.Token)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var initialized dto.InitializeDonationResponse
	s.decode(resp, &initialized)

	resp = s.request(http.MethodGet, "/api/donate/"+initialized.DonationID, nil, other.Token)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}
