package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// StkResult is the synchronous acknowledgement from Safaricom. Exactly one of
// Accepted or Rejected is set; transport failures surface as an error from
// StkPush instead.
type StkResult struct {
	Accepted *StkAccepted
	Rejected *StkRejected
}

type StkAccepted struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
}

type StkRejected struct {
	Code    string
	Message string
}

// StkPusher issues a push-payment request to the provider.
type StkPusher interface {
	StkPush(ctx context.Context, phone string, amount int64, accountRef, description string) (*StkResult, error)
}

// DarajaService wraps the Safaricom Daraja API: OAuth token fetch plus the
// STK push endpoint.
type DarajaService struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	shortcode      string
	passkey        string
	callbackURL    string
	client         *http.Client
}

func NewDarajaService() *DarajaService {
	baseURL := os.Getenv("MPESA_BASE_URL")
	if baseURL == "" {
		baseURL = "https://sandbox.safaricom.co.ke"
	}
	return &DarajaService{
		baseURL:        baseURL,
		consumerKey:    os.Getenv("MPESA_CONSUMER_KEY"),
		consumerSecret: os.Getenv("MPESA_CONSUMER_SECRET"),
		shortcode:      os.Getenv("MPESA_SHORTCODE"),
		passkey:        os.Getenv("MPESA_PASSKEY"),
		callbackURL:    os.Getenv("MPESA_CALLBACK_URL"),
		client:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *DarajaService) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(s.consumerKey, s.consumerSecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode token response: %v", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("empty access token in response")
	}
	return tok.AccessToken, nil
}

// StkPush asks Safaricom to prompt the payer's phone for the given amount.
// A nil error with Rejected set means the provider synchronously declined the
// request; transport and decode failures return an error.
func (s *DarajaService) StkPush(ctx context.Context, phone string, amount int64, accountRef, description string) (*StkResult, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		log.Printf("Failed to obtain Daraja access token: %v", err)
		return nil, err
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(s.shortcode + s.passkey + timestamp))

	payload := map[string]interface{}{
		"BusinessShortCode": s.shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            phone,
		"PartyB":            s.shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       s.callbackURL,
		"AccountReference":  accountRef,
		"TransactionDesc":   description,
	}
	reqBody, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("STK push request failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	var ack struct {
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
		CustomerMessage     string `json:"CustomerMessage"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		MerchantRequestID   string `json:"MerchantRequestID"`
		ErrorCode           string `json:"errorCode"`
		ErrorMessage        string `json:"errorMessage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("failed to decode STK push response: %v", err)
	}

	if ack.ResponseCode == "0" {
		return &StkResult{Accepted: &StkAccepted{
			CheckoutRequestID: ack.CheckoutRequestID,
			MerchantRequestID: ack.MerchantRequestID,
			CustomerMessage:   ack.CustomerMessage,
		}}, nil
	}

	code := ack.ResponseCode
	message := ack.ResponseDescription
	if code == "" {
		code = ack.ErrorCode
		message = ack.ErrorMessage
	}
	log.Printf("STK push rejected: code=%s message=%s", code, message)
	return &StkResult{Rejected: &StkRejected{Code: code, Message: message}}, nil
}
