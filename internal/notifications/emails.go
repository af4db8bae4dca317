package notifications

import (
	"bytes"
	"fmt"
	"html/template"
)

const (
	SubjectPasswordReset  = "Password Reset Request"
	SubjectRefundReceived = "We received your refund request"
	SubjectRefundStatus   = "Your refund request was updated"
)

var resetTmpl = template.Must(template.New("reset").Parse(`
<h1>Password Reset Request</h1>
<p>You have requested to reset your password. Please click the link below to reset your password:</p>
<a href="{{.Link}}" target="_blank">Reset Password</a>
<p>This link will expire in {{.TTLMinutes}} minutes.</p>
<p>If you did not request this, please ignore this email.</p>
`))

var refundReceivedTmpl = template.Must(template.New("refund_received").Parse(`
<h1>Refund request received</h1>
<p>Hi {{.ClientName}},</p>
<p>We received your refund request for order <b>{{.OrderID}}</b> ({{printf "%.2f" .Amount}}).</p>
<p>Our team will review it shortly. You will get another email once a decision is made.</p>
`))

var refundStatusTmpl = template.Must(template.New("refund_status").Parse(`
<h1>Refund request update</h1>
<p>Hi {{.ClientName}},</p>
<p>Your refund request for order <b>{{.OrderID}}</b> is now: <b>{{.Status}}</b>.</p>
`))

func PasswordResetBody(resetLink string, ttlMinutes int) (string, error) {
	return render(resetTmpl, map[string]any{
		"Link":       resetLink,
		"TTLMinutes": ttlMinutes,
	})
}

func RefundReceivedBody(clientName, orderID string, amount float64) (string, error) {
	return render(refundReceivedTmpl, map[string]any{
		"ClientName": clientName,
		"OrderID":    orderID,
		"Amount":     amount,
	})
}

func RefundStatusBody(clientName, orderID, status string) (string, error) {
	return render(refundStatusTmpl, map[string]any{
		"ClientName": clientName,
		"OrderID":    orderID,
		"Status":     status,
	})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template %q: %w", t.Name(), err)
	}
	return buf.String(), nil
}
