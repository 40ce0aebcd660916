package mail

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type captureDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *captureDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSenderDefaultsFromToNoReply(t *testing.T) {
	d := &captureDialer{}
	s := NewSenderWithDialer(d, Config{Domain: "nowlisten.test"})
	require.Equal(t, "no-reply@nowlisten.test", s.From())

	err := s.Send(context.Background(), Message{To: "a@x.com", Subject: "hi", HTML: "<p>hi</p>", Text: "hi"})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	require.Equal(t, []string{`"Nowlisten" <no-reply@nowlisten.test>`}, m.GetHeader("From"))
	require.Equal(t, []string{"a@x.com"}, m.GetHeader("To"))
	require.Equal(t, []string{"hi"}, m.GetHeader("Subject"))

	var raw bytes.Buffer
	_, err = m.WriteTo(&raw)
	require.NoError(t, err)
	require.Contains(t, raw.String(), "text/plain")
	require.Contains(t, raw.String(), "text/html")
}

func TestSenderRejectsMissingRecipientAndCanceledContext(t *testing.T) {
	d := &captureDialer{}
	s := NewSenderWithDialer(d, Config{From: "team@nowlisten.test"})
	require.Error(t, s.Send(context.Background(), Message{Subject: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Send(ctx, Message{To: "a@x.com"}), context.Canceled)
	require.Empty(t, d.sent)
}

func TestSenderPropagatesDialError(t *testing.T) {
	boom := errors.New("smtp down")
	s := NewSenderWithDialer(&captureDialer{err: boom}, Config{Domain: "nowlisten.test"})
	require.ErrorIs(t, s.Send(context.Background(), Message{To: "a@x.com", HTML: "x"}), boom)
}

func TestInvitationMessage(t *testing.T) {
	msg, err := InvitationMessage("nowlisten.test", Invitation{
		InviteeEmail:  "a@x.com",
		WorkspaceName: "Acme <Ops>",
		InviterName:   "Owner",
		Token:         "tok123",
	})
	require.NoError(t, err)
	require.Equal(t, "a@x.com", msg.To)
	require.True(t, strings.HasPrefix(msg.Subject, "Owner invited you to Acme <Ops>"))
	require.Contains(t, msg.HTML, `href="https://nowlisten.test/invite/tok123"`)
	require.Contains(t, msg.HTML, "Acme &lt;Ops&gt;")
	require.Contains(t, msg.Text, "https://nowlisten.test/invite/tok123")

	_, err = InvitationMessage("nowlisten.test", Invitation{InviteeEmail: "a@x.com"})
	require.Error(t, err)
}
