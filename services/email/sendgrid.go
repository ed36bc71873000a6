package emailsvc

import (
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/certify/core"
)

type sendgridService struct {
	client     *sendgrid.Client
	from       *sgmail.Email
	subjPrefix string
	baseURL    string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) core.EmailService {
	return &sendgridService{
		client:     sendgrid.NewSendClient(conf.SendgridApiKey),
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		baseURL:    conf.BaseURL,
		logger:     logger,
	}
}

// SendMessages renders and sends each message in its own goroutine. Failures are logged.
func (svc *sendgridService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.deliver(msg)
	}
}

func (svc *sendgridService) deliver(msg *core.EmailMessage) {
	if err := msg.Render(svc.baseURL); err != nil {
		svc.logger.Error(fmt.Sprintf("rendering email %q: %v", msg.TemplateName, err), err)
		return
	}
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}

	res, err := svc.client.Send(svc.build(*msg))
	switch {
	case err != nil:
		svc.logger.Error(fmt.Sprintf("sending email %q: %v", msg.TemplateName, err), err)
	case res.StatusCode >= http.StatusBadRequest:
		svc.logger.Error(fmt.Sprintf("sending email %q: status %d", msg.TemplateName, res.StatusCode),
			map[string]interface{}{"body": res.Body})
	}
}

// build converts msg to a SendGrid v3 payload. Templated messages are tagged with their
// template name so deliveries can be filtered by kind in the SendGrid activity feed.
func (svc *sendgridService) build(msg core.EmailMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + msg.Subject
	p.AddTos(toSGEmails(msg.To)...)
	if len(msg.Cc) > 0 {
		p.AddCCs(toSGEmails(msg.Cc)...)
	}
	if len(msg.Bcc) > 0 {
		p.AddBCCs(toSGEmails(msg.Bcc)...)
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	if msg.TemplateName != "" {
		m.AddCategories(msg.TemplateName)
	}

	m.AddContent(sgmail.NewContent("text/plain", msg.TextContent))
	if msg.HTMLContent != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLContent))
	}
	return m
}

func toSGEmails(addrs []mail.Address) []*sgmail.Email {
	emails := make([]*sgmail.Email, 0, len(addrs))
	for _, a := range addrs {
		emails = append(emails, sgmail.NewEmail(a.Name, a.Address))
	}
	return emails
}
