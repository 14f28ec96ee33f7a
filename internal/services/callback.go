package services

import (
	"encoding/json"
	"fmt"
)

// receiptFieldName is the metadata item that carries the M-Pesa receipt number
// in a successful callback.
const receiptFieldName = "MpesaReceiptNumber"

// callbackEnvelope mirrors the nested structure Safaricom posts to the
// callback URL.
type callbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  *struct {
				Item []struct {
					Name  string          `json:"Name"`
					Value json.RawMessage `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackEvent is the parsed form of a provider callback. Receipt is only
// populated for successful results that carried the receipt metadata item.
type CallbackEvent struct {
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Receipt           string
	Raw               []byte
}

// Success reports whether the provider confirmed the charge.
func (e CallbackEvent) Success() bool {
	return e.ResultCode == 0
}

// ParseCallback decodes the provider's callback envelope. It returns an error
// for unparseable JSON or an envelope missing the checkout request ID; callers
// acknowledge the provider either way and only act on a nil error. A success
// result without a receipt item parses fine with an empty Receipt so the
// caller can log and skip it.
func ParseCallback(body []byte) (CallbackEvent, error) {
	var env callbackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return CallbackEvent{}, fmt.Errorf("unparseable callback body: %v", err)
	}

	stk := env.Body.StkCallback
	if stk.CheckoutRequestID == "" {
		return CallbackEvent{}, fmt.Errorf("callback missing CheckoutRequestID")
	}

	event := CallbackEvent{
		CheckoutRequestID: stk.CheckoutRequestID,
		ResultCode:        stk.ResultCode,
		ResultDesc:        stk.ResultDesc,
		Raw:               body,
	}

	if stk.ResultCode == 0 && stk.CallbackMetadata != nil {
		for _, item := range stk.CallbackMetadata.Item {
			if item.Name != receiptFieldName {
				continue
			}
			// Receipt values arrive as strings, but be tolerant of
			// whatever the provider sends.
			var s string
			if err := json.Unmarshal(item.Value, &s); err == nil {
				event.Receipt = s
			}
			break
		}
	}

	return event, nil
}
