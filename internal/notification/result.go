package notification

import (
	"encoding/json"
)

// Status is the outcome of one provider send.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Skip reasons.
const (
	ReasonNoRecipients        = "no_recipients"
	ReasonProviderDisabled    = "provider_disabled"
	ReasonWebPushNotAvailable = "webpush_not_available"
)

// Result is a provider's entry in the Notify result map. It takes one of
// three shapes: a delivery report, a skip with a reason, or an error
// recorded by the manager.
type Result struct {
	Status          Status
	Reason          string
	SentCount       int
	TotalRecipients int
	Results         []RecipientResult
	Error           string
}

// RecipientResult is the per-token or per-subscriber outcome inside a delivery report.
type RecipientResult struct {
	Token    string         `json:"token,omitempty"`
	UserID   string         `json:"user_id,omitempty"`
	Status   Status         `json:"status"`
	Response map[string]any `json:"response,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Skipped builds a skip result.
func Skipped(reason string) *Result {
	return &Result{Status: StatusSkipped, Reason: reason}
}

// Delivered builds a delivery report. The status is success when at least
// one message went out.
func Delivered(sent, total int, results []RecipientResult) *Result {
	status := StatusSuccess
	if sent == 0 {
		status = StatusError
	}
	return &Result{Status: status, SentCount: sent, TotalRecipients: total, Results: results}
}

// Reported builds a delivery report whose status is success regardless of
// how many recipients accepted the message. Email uses it since SMTP
// rejections are per address.
func Reported(sent, total int, results []RecipientResult) *Result {
	return &Result{Status: StatusSuccess, SentCount: sent, TotalRecipients: total, Results: results}
}

// Succeeded reports whether the entry is a delivery report with status success.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// MarshalJSON renders only the fields belonging to the result's shape.
func (r *Result) MarshalJSON() ([]byte, error) {
	switch {
	case r.Status == "":
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	case r.Status == StatusSkipped:
		return json.Marshal(struct {
			Status Status `json:"status"`
			Reason string `json:"reason"`
		}{r.Status, r.Reason})
	default:
		return json.Marshal(struct {
			Status          Status            `json:"status"`
			SentCount       int               `json:"sent_count"`
			TotalRecipients int               `json:"total_recipients"`
			Results         []RecipientResult `json:"results,omitempty"`
		}{r.Status, r.SentCount, r.TotalRecipients, r.Results})
	}
}

// UnmarshalJSON accepts any of the three shapes.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status          Status            `json:"status"`
		Reason          string            `json:"reason"`
		SentCount       int               `json:"sent_count"`
		TotalRecipients int               `json:"total_recipients"`
		Results         []RecipientResult `json:"results"`
		Error           string            `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Result(raw)
	return nil
}
