package notifications

import (
	"bytes"
	"fmt"
	"html/template"
)

var (
	orderConfirmedTmpl = template.Must(template.New("order").Parse(`<p>Hi {{.Name}},</p>
<p>Your order <strong>{{.Number}}</strong> is confirmed.</p>
<table>
{{- range .Lines}}
<tr><td>{{.Title}}</td><td>x{{.Quantity}}</td><td>{{.Amount}}</td></tr>
{{- end}}
</table>
{{- if .Discount}}
<p>Discount: -{{.Discount}}</p>
{{- end}}
<p>Total paid: <strong>{{.Total}}</strong></p>
<p>Happy learning!</p>`))

	certificateTmpl = template.Must(template.New("certificate").Parse(`<p>Hi {{.Name}},</p>
<p>Congratulations on completing <strong>{{.Title}}</strong>.</p>
<p>Certificate {{.Serial}}. Anyone can check it with verification code <strong>{{.Code}}</strong>.</p>`))

	diplomaTmpl = template.Must(template.New("diploma").Parse(`<p>Hi {{.Name}},</p>
<p>You passed the <strong>{{.Title}}</strong> exam with {{.Score}}%.</p>
<p>Your diploma verification code is <strong>{{.Code}}</strong>.</p>`))
)

type orderLine struct {
	Title    string
	Quantity int
	Amount   string
}

type orderData struct {
	Name     string
	Number   string
	Lines    []orderLine
	Discount string
	Total    string
}

type credentialData struct {
	Name   string
	Title  string
	Serial string
	Code   string
	Score  int
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
