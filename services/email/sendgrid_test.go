package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certify/core"
)

func TestSendgridService_build(t *testing.T) {
	conf := core.NewTestConfig(t.TempDir() + "/certify.db")
	svc := NewSendgridService(conf, nil).(*sendgridService)

	m := svc.build(core.EmailMessage{
		To:           []mail.Address{{Name: "Ada", Address: "ada@certify.test"}},
		Bcc:          []mail.Address{{Address: "audit@certify.test"}},
		Subject:      "Certificate Earned!",
		TemplateName: "certificate_issued",
		TextContent:  "well done",
		HTMLContent:  "<p>well done</p>",
	})

	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Equal(t, "["+conf.AppName+"] Certificate Earned!", p.Subject)
	require.Len(t, p.To, 1)
	assert.Equal(t, "ada@certify.test", p.To[0].Address)
	assert.Empty(t, p.CC)
	require.Len(t, p.BCC, 1)
	assert.Equal(t, []string{"certificate_issued"}, m.Categories)
	assert.Equal(t, conf.DefaultFromEmail.Address, m.From.Address)

	require.Len(t, m.Content, 2)
	assert.Equal(t, "text/plain", m.Content[0].Type)
	assert.Equal(t, "text/html", m.Content[1].Type)
}
