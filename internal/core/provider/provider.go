package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/go-resty/resty/v2"
)

// AccountProfile is the customer data the provider needs to open a virtual
// account.
type AccountProfile struct {
	AccountName      string `json:"accountName"`
	CustomerEmail    string `json:"customerEmail"`
	CurrencyCode     string `json:"currencyCode"`
	AccountReference string `json:"accountReference"`
	ContractCode     string `json:"contractCode"`
}

// VirtualAccount is the provider-issued account a wallet is bound to.
type VirtualAccount struct {
	AccountNumber string `json:"accountNumber"`
	BankCode      string `json:"bankCode"`
	BankName      string `json:"bankName"`
}

// AccountOpener opens external virtual accounts. Called once per wallet at
// creation time; never involved in balance mutation.
type AccountOpener interface {
	OpenVirtualAccount(ctx context.Context, profile AccountProfile) (*VirtualAccount, error)
}

// Config carries the provider endpoint and credentials.
type Config struct {
	BaseURL      string
	APIKey       string
	ContractCode string
	Timeout      time.Duration
}

// Client talks to the virtual-account provider over HTTP.
type Client struct {
	http         *resty.Client
	contractCode string
	log          logger.Logger
}

type reservedAccountResponse struct {
	RequestSuccessful bool   `json:"requestSuccessful"`
	ResponseMessage   string `json:"responseMessage"`
	ResponseBody      struct {
		Accounts []VirtualAccount `json:"accounts"`
	} `json:"responseBody"`
}

func NewClient(cfg Config, log logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(timeout).
		SetRetryCount(2)

	return &Client{http: httpClient, contractCode: cfg.ContractCode, log: log}
}

// OpenVirtualAccount reserves an account with the provider and returns its
// identifiers.
func (c *Client) OpenVirtualAccount(ctx context.Context, profile AccountProfile) (*VirtualAccount, error) {
	if profile.ContractCode == "" {
		profile.ContractCode = c.contractCode
	}

	var result reservedAccountResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(profile).
		SetResult(&result).
		Post("/api/v2/bank-transfer/reserved-accounts")
	if err != nil {
		c.log.Error("Provider request failed",
			logger.StringField("account_reference", profile.AccountReference),
			logger.ErrorField("error", err))
		return nil, fmt.Errorf("open virtual account: %w", err)
	}

	if resp.StatusCode() != 200 || !result.RequestSuccessful {
		c.log.Error("Provider rejected account request",
			logger.StringField("account_reference", profile.AccountReference),
			logger.IntField("status", resp.StatusCode()),
			logger.StringField("message", result.ResponseMessage))
		return nil, fmt.Errorf("open virtual account: provider returned status %d", resp.StatusCode())
	}

	if len(result.ResponseBody.Accounts) == 0 {
		return nil, fmt.Errorf("open virtual account: provider returned no accounts")
	}

	account := result.ResponseBody.Accounts[0]
	return &account, nil
}
