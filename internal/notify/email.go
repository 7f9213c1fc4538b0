package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"text/template"

	"davinci-allocation/internal/config"
	"davinci-allocation/internal/domain"

	"go.uber.org/zap"
)

var confirmationBody = template.Must(template.New("confirmation").Parse(`Hi {{.StudentName}},

Your {{.Subject}} teacher {{.TeacherName}} is ready to meet you! Here's their email: {{.TeacherEmail}}

Please contact your teacher to schedule your first lesson. Remember to have the following ready:
1. Your learning goals and any specific areas you want to focus on
2. Any materials or textbooks you already have
3. Questions about the course structure or assessment methods

If you have any issues connecting with your teacher, please let us know.

Best regards,
The CGA Da Vinci Team
`))

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailNotifier sends the confirmation email to the student, copying guardian, teacher and
// requesting office. With sending disabled the message is logged instead.
type EmailNotifier struct {
	cfg      config.EmailConfig
	logger   *zap.Logger
	sendMail sendMailFunc
}

func NewEmailNotifier(cfg config.EmailConfig, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, logger: logger, sendMail: smtp.SendMail}
}

// Message a rendered confirmation email.
type Message struct {
	From    string
	To      string
	Cc      []string
	Subject string
	Body    string
}

// Recipients To followed by every Cc address.
func (m Message) Recipients() []string {
	return append([]string{m.To}, m.Cc...)
}

// Bytes RFC 5322 text of the message.
func (m Message) Bytes() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	if len(m.Cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(m.Cc, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return b.Bytes()
}

// BuildConfirmation renders the confirmation email.
func (n *EmailNotifier) BuildConfirmation(a domain.Allocation, teacher domain.TeacherInfo) (Message, error) {
	subject, _ := a.MatchSubject()
	data := struct {
		StudentName, Subject, TeacherName, TeacherEmail string
	}{a.StudentName, subject, teacherName(teacher), teacherEmail(teacher)}

	var body bytes.Buffer
	if err := confirmationBody.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render confirmation email: %w", err)
	}

	var cc []string
	for _, addr := range []string{a.GuardianEmail, data.TeacherEmail, a.RequestEmail} {
		if addr != "" {
			cc = append(cc, addr)
		}
	}
	return Message{
		From:    n.cfg.From,
		To:      a.StudentEmail,
		Cc:      cc,
		Subject: fmt.Sprintf("Da Vinci Allocation: %s with %s", subject, data.TeacherName),
		Body:    body.String(),
	}, nil
}

func (n *EmailNotifier) NotifyConfirmed(_ context.Context, allocation domain.Allocation, teacher domain.TeacherInfo) error {
	msg, err := n.BuildConfirmation(allocation, teacher)
	if err != nil {
		return failed("email", err)
	}

	if !n.cfg.Send {
		n.logger.Info("Email not sent (sending disabled)",
			zap.Strings("recipients", msg.Recipients()),
			zap.String("subject", msg.Subject),
			zap.String("body", msg.Body),
		)
		return nil
	}

	addr := net.JoinHostPort(n.cfg.Server, strconv.Itoa(n.cfg.Port))
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Server)
	}
	if err := n.sendMail(addr, auth, n.cfg.From, msg.Recipients(), msg.Bytes()); err != nil {
		n.logger.Error("Failed to send confirmation email",
			zap.String("allocation_id", allocation.ID),
			zap.Error(err),
		)
		return failed("email", err)
	}
	n.logger.Info("Confirmation email sent",
		zap.String("allocation_id", allocation.ID),
		zap.Strings("recipients", msg.Recipients()),
	)
	return nil
}
