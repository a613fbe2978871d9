package mpesa

import "strconv"

// ResultCodeSuccess is the stkCallback result code for an approved payment.
const ResultCodeSuccess = 0

// CallbackEnvelope is the wire shape Daraja posts to the callback URL.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback reports the outcome of one push attempt, matched to its origin
// by CheckoutRequestID. Metadata items are only present on success.
type StkCallback struct {
	MerchantRequestID string   `json:"MerchantRequestID"`
	CheckoutRequestID string   `json:"CheckoutRequestID"`
	ResultCode        int      `json:"ResultCode"`
	ResultDesc        string   `json:"ResultDesc"`
	CallbackMetadata  Metadata `json:"CallbackMetadata"`
}

type Metadata struct {
	Items []MetadataItem `json:"Item"`
}

// MetadataItem is a name/value pair. Values arrive untyped: amounts and phone
// numbers come through as JSON numbers, receipt numbers as strings.
type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value"`
}

func (m Metadata) find(name string) (any, bool) {
	for _, item := range m.Items {
		if item.Name == name {
			return item.Value, true
		}
	}

	return nil, false
}

// Amount returns the paid amount in whole currency units.
func (cb StkCallback) Amount() (int64, bool) {
	v, ok := cb.CallbackMetadata.find("Amount")
	if !ok {
		return 0, false
	}

	f, ok := v.(float64)
	if !ok {
		return 0, false
	}

	return int64(f), true
}

// ReceiptNumber returns the gateway receipt number.
func (cb StkCallback) ReceiptNumber() (string, bool) {
	v, ok := cb.CallbackMetadata.find("MpesaReceiptNumber")
	if !ok {
		return "", false
	}

	s, ok := v.(string)

	return s, ok
}

// PhoneNumber returns the payer's number. Daraja encodes it as a JSON number.
func (cb StkCallback) PhoneNumber() (string, bool) {
	v, ok := cb.CallbackMetadata.find("PhoneNumber")
	if !ok {
		return "", false
	}

	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', 0, 64), true
	case string:
		return n, true
	}

	return "", false
}

// Ack is the fixed acknowledgment shape returned to the gateway. Anything
// else makes Daraja retry the callback indefinitely.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}
