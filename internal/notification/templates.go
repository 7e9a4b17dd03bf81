package notification

import (
	"fmt"
	"maps"
)

type template struct {
	subject string
	body    string
}

var defaultTemplates = map[Type]template{
	TypeTransactionCreated:   {"New Transaction Created", "A new transaction has been created."},
	TypeTransactionCompleted: {"Transaction Completed", "Your transaction has been completed successfully."},
	TypeTransactionFailed:    {"Transaction Failed", "There was an issue with your transaction."},
	TypeProductCreated:       {"New Product Created", "A new product has been added to your account."},
	TypeProductUpdated:       {"Product Updated", "A product has been updated in your account."},
	TypeProductDeleted:       {"Product Deleted", "A product has been removed from your account."},
	TypeWeeklyReport:         {"Your Weekly Report", "Here is your weekly report."},
	TypeSystemAlert:          {"System Alert", "There is an important system alert."},
}

// Keys in the event data that replace the template output.
const (
	DataSubject  = "subject"
	DataBody     = "body"
	DataHTMLBody = "html_body"
)

// FormatDefault renders the built-in template for t. Non-empty string values
// under DataSubject, DataBody and DataHTMLBody override the template.
func FormatDefault(t Type, data map[string]any) Content {
	tmpl, ok := defaultTemplates[t]
	if !ok {
		tmpl = template{
			subject: fmt.Sprintf("Notification: %s", t),
			body:    fmt.Sprintf("You have a new notification of type %s", t),
		}
	}

	content := Content{
		Subject: tmpl.subject,
		Body:    tmpl.body,
		Data:    maps.Clone(data),
	}
	if content.Data == nil {
		content.Data = map[string]any{}
	}
	if s := stringValue(data, DataSubject); s != "" {
		content.Subject = s
	}
	if s := stringValue(data, DataBody); s != "" {
		content.Body = s
	}
	if s := stringValue(data, DataHTMLBody); s != "" {
		content.HTMLBody = s
	}
	return content
}

func stringValue(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// nestedString reads data[outer][inner] when both levels are present.
func nestedString(data map[string]any, outer, inner string) string {
	switch m := data[outer].(type) {
	case map[string]any:
		return stringValue(m, inner)
	case map[string]string:
		return m[inner]
	default:
		return ""
	}
}
